// Package utils holds domain-name canonicalization for the send-eligibility
// engine. Blocklist matching is only as strong as its normalization: a target
// that slips through in a non-canonical spelling bypasses the pattern match,
// so both stored patterns and runtime targets are funneled through here.
package utils

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
)

const (
	// MaxPatternLength is the longest accepted stored blocklist pattern.
	MaxPatternLength = 255
	// MaxTargetLength is the longest accepted runtime target (may be a full URL).
	MaxTargetLength = 2000

	maxDomainLength = 253
	maxLabelLength  = 63
)

// CanonicalDomain returns a domain name in canonical form:
// - Control and other non-printable characters removed
// - Trimmed of surrounding whitespace
// - Lowercased
// - No trailing dots
// It never validates; callers that need validation use NormalizePattern or
// NormalizeTarget.
func CanonicalDomain(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// NormalizePattern canonicalizes a stored blocklist pattern. The input may be
// a bare domain, a full http(s) URL, or a wildcard of the form "*.base".
// The returned pattern keeps its "*." prefix for wildcards; wildcard reports
// which shape was accepted. Invalid input is rejected, never coerced.
func NormalizePattern(s string) (pattern string, wildcard bool, err error) {
	if len(s) > MaxPatternLength {
		return "", false, fmt.Errorf("pattern exceeds %d characters", MaxPatternLength)
	}
	d := CanonicalDomain(s)
	if d == "" {
		return "", false, fmt.Errorf("pattern is empty")
	}

	if d == "*" || d == "*." {
		return "", false, fmt.Errorf("bare wildcard is not a valid pattern")
	}
	if base, ok := strings.CutPrefix(d, "*."); ok {
		if strings.Contains(base, "*") {
			return "", false, fmt.Errorf("pattern contains more than one wildcard")
		}
		if err := validateLabels(base); err != nil {
			return "", false, err
		}
		if ps, icann := publicsuffix.PublicSuffix(base); icann && ps == base {
			return "", false, fmt.Errorf("wildcard base %q is a public suffix", base)
		}
		// Wildcard label sequences are kept verbatim; "*.www.example.com"
		// deliberately targets the www subtree.
		return "*." + base, true, nil
	}
	if strings.Contains(d, "*") {
		return "", false, fmt.Errorf("wildcard must be a leading %q", "*.")
	}

	if strings.Contains(d, "://") {
		d, err = hostFromURL(d)
		if err != nil {
			return "", false, err
		}
	}
	if err := validateLabels(d); err != nil {
		return "", false, err
	}
	return stripWWW(d), false, nil
}

// NormalizeTarget canonicalizes a recipient domain or URL for matching.
func NormalizeTarget(s string) (string, error) {
	if len(s) > MaxTargetLength {
		return "", fmt.Errorf("target exceeds %d characters", MaxTargetLength)
	}
	d := CanonicalDomain(s)
	if d == "" {
		return "", fmt.Errorf("target is empty")
	}
	if strings.Contains(d, "*") {
		return "", fmt.Errorf("target must not contain a wildcard")
	}

	if strings.Contains(d, "://") {
		host, err := hostFromURL(d)
		if err != nil {
			return "", err
		}
		d = host
	}
	if err := validateLabels(d); err != nil {
		return "", err
	}
	return stripWWW(d), nil
}

// hostFromURL extracts the host from an http(s) URL and refuses hosts that
// point at internal infrastructure, so a crafted URL cannot be used to probe
// patterns against non-public addresses.
func hostFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("url has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return "", fmt.Errorf("refusing loopback host %q", host)
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
			addr.IsLinkLocalMulticast() || addr.IsUnspecified() {
			return "", fmt.Errorf("refusing non-public address %q", host)
		}
	}
	return host, nil
}

// validateLabels enforces RFC 1035 label rules on a dot-separated name.
func validateLabels(d string) error {
	if d == "" {
		return fmt.Errorf("domain is empty")
	}
	if len(d) > maxDomainLength {
		return fmt.Errorf("domain exceeds %d characters", maxDomainLength)
	}
	for _, label := range strings.Split(d, ".") {
		if label == "" {
			return fmt.Errorf("domain %q contains an empty label", d)
		}
		if len(label) > maxLabelLength {
			return fmt.Errorf("label %q exceeds %d characters", label, maxLabelLength)
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return fmt.Errorf("label %q has a leading or trailing hyphen", label)
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
				continue
			}
			return fmt.Errorf("label %q contains invalid character %q", label, c)
		}
	}
	return nil
}

// stripWWW removes a single leading "www." label so "www.example.com" and
// "example.com" name the same entity. Only one label is stripped;
// "www.www.example.com" keeps one www.
func stripWWW(d string) string {
	if rest, ok := strings.CutPrefix(d, "www."); ok && rest != "" {
		return rest
	}
	return d
}
