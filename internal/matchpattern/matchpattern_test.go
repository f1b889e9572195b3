package matchpattern

import "testing"

func TestNormalizeValid(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"<all_urls>", "<all_urls>"},
		{"<ALL_URLS>", "<all_urls>"},
		{"https://example.com/*", "https://example.com/*"},
		{"https://example.com", "https://example.com/*"},
		{"http://*.example.com/path/*", "http://*.example.com/path/*"},
		{"*://example.com/*", "*://example.com/*"},
		{"example.com", "*://example.com/*"},
		{"*.github.com", "*://*.github.com/*"},
		{"HTTPS://Example.COM/Path", "https://example.com/Path"},
		{"  docs.google.com  ", "*://docs.google.com/*"},
		{"*://*/*", "*://*/*"},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Normalize(%q): expected %q got %q", c.in, c.want, got)
		}
	}
}

func TestNormalizeInvalid(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"ftp://example.com/*",
		"file:///etc/passwd",
		"https://example.com:8080/*",
		"https://exa mple.com/*",
		"https://ex*mple.com/*",
		"https://*.*.com/*",
		"https:///*",
		"https://-bad.com/*",
		"https://exämple.com/*",
	}
	for _, c := range cases {
		if got, err := Normalize(c); err == nil {
			t.Fatalf("Normalize(%q): expected error, got %q", c, got)
		}
	}
}

func TestNormalizeAll(t *testing.T) {
	patterns := []string{
		"example.com",
		"",
		"https://example.com/*",
		"*://example.com/*",
		"*.github.com",
	}
	got, err := NormalizeAll(patterns)
	if err != nil {
		t.Fatalf("NormalizeAll returned error: %v", err)
	}
	// The shorthand and the explicit *:// form collapse to one entry.
	want := []string{"*://example.com/*", "https://example.com/*", "*://*.github.com/*"}
	if len(got) != len(want) {
		t.Fatalf("expected %d patterns got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %q got %q", i, want[i], got[i])
		}
	}
}

func TestNormalizeAllRejectsInvalidMember(t *testing.T) {
	if _, err := NormalizeAll([]string{"example.com", "ftp://nope.com"}); err == nil {
		t.Fatalf("expected error for invalid member")
	}
}
