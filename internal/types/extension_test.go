package types

import "testing"

func TestCanTransition_ForwardOnly(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusAnalyzing, true},
		{StatusPending, StatusBuilding, true},
		{StatusAnalyzing, StatusBuilding, true},
		{StatusBuilding, StatusPackaging, true},
		{StatusPackaging, StatusComplete, true},
		{StatusBuilding, StatusPending, false},
		{StatusPackaging, StatusBuilding, false},
		{StatusPackaging, StatusAnalyzing, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Fatalf("CanTransition(%q, %q) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCanTransition_FailedReachableFromAnyNonTerminal(t *testing.T) {
	for _, from := range []string{StatusPending, StatusAnalyzing, StatusBuilding, StatusPackaging} {
		if !CanTransition(from, StatusFailed) {
			t.Fatalf("expected %q -> failed to be allowed", from)
		}
	}
}

func TestCanTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, from := range []string{StatusComplete, StatusFailed} {
		for _, to := range []string{StatusPending, StatusAnalyzing, StatusBuilding, StatusPackaging, StatusComplete, StatusFailed} {
			if CanTransition(from, to) {
				t.Fatalf("expected no transition out of %q, but %q -> %q allowed", from, from, to)
			}
		}
	}
}

func TestCanTransition_UnknownStatusRejected(t *testing.T) {
	if CanTransition("queued", StatusBuilding) {
		t.Fatalf("expected unknown from-status to be rejected")
	}
	if CanTransition(StatusPending, "done") {
		t.Fatalf("expected unknown to-status to be rejected")
	}
}
