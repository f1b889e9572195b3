// Package matchpattern validates and normalizes Chrome host match
// patterns. Every target site accepted by the API flows through here, so
// the grammar below is the only one the platform understands:
//
//	<all_urls>
//	<scheme>://<host><path>   scheme is http, https or *
//	example.com               shorthand, normalized to *://example.com/*
//
// The host is either *, *.domain, or a plain domain. Wildcards anywhere
// else in the host are rejected, as are ports and embedded whitespace.
package matchpattern

import (
	"fmt"
	"strings"
)

const AllURLs = "<all_urls>"

var schemes = map[string]bool{
	"http":  true,
	"https": true,
	"*":     true,
}

// Normalize returns the canonical form of a single pattern or an error
// describing why it is invalid. Scheme and host are lowercased, a bare
// domain gains the *:// scheme and /* path, a missing path becomes /*.
func Normalize(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "", fmt.Errorf("match pattern is empty")
	}
	if strings.ContainsAny(p, " \t\n") {
		return "", fmt.Errorf("match pattern %q contains whitespace", raw)
	}
	if strings.EqualFold(p, AllURLs) {
		return AllURLs, nil
	}

	scheme := "*"
	rest := p
	if idx := strings.Index(p, "://"); idx >= 0 {
		scheme = strings.ToLower(p[:idx])
		rest = p[idx+3:]
		if !schemes[scheme] {
			return "", fmt.Errorf("match pattern %q has unsupported scheme %q", raw, scheme)
		}
	}

	host := rest
	path := "/*"
	if idx := strings.Index(rest, "/"); idx >= 0 {
		host = rest[:idx]
		path = rest[idx:]
	}
	host = strings.ToLower(host)

	if host == "" {
		return "", fmt.Errorf("match pattern %q has an empty host", raw)
	}
	if strings.Contains(host, ":") {
		return "", fmt.Errorf("match pattern %q must not include a port", raw)
	}
	if err := validateHost(host); err != nil {
		return "", fmt.Errorf("match pattern %q: %w", raw, err)
	}
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("match pattern %q has an invalid path %q", raw, path)
	}

	return scheme + "://" + host + path, nil
}

// NormalizeAll normalizes every pattern, dropping blanks and duplicates
// while preserving first-seen order. The first invalid pattern fails the
// whole set.
func NormalizeAll(raws []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		normalized, err := Normalize(raw)
		if err != nil {
			return nil, err
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out, nil
}

func validateHost(host string) error {
	if host == "*" {
		return nil
	}
	domain := host
	if strings.HasPrefix(host, "*.") {
		domain = host[2:]
	}
	if domain == "" {
		return fmt.Errorf("host %q has no domain after the wildcard", host)
	}
	if strings.Contains(domain, "*") {
		return fmt.Errorf("host %q may only use a leading *. wildcard", host)
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return fmt.Errorf("host %q has an empty label", host)
		}
		for _, r := range label {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
				return fmt.Errorf("host %q contains invalid character %q", host, r)
			}
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return fmt.Errorf("host %q has a label with a leading or trailing hyphen", host)
		}
	}
	return nil
}
