package utils

import (
	"strings"
	"testing"
)

func TestCanonicalDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple domain",
			input:    "example.com",
			expected: "example.com",
		},
		{
			name:     "uppercase domain",
			input:    "EXAMPLE.COM",
			expected: "example.com",
		},
		{
			name:     "surrounding whitespace",
			input:    "  example.com \t",
			expected: "example.com",
		},
		{
			name:     "trailing dots removed",
			input:    "example.com...",
			expected: "example.com",
		},
		{
			name:     "control characters stripped",
			input:    "exam\x00ple.c\x1fom",
			expected: "example.com",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalDomain(tt.input); got != tt.expected {
				t.Errorf("CanonicalDomain(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizePattern(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		want         string
		wantWildcard bool
		wantErr      bool
	}{
		{name: "plain domain", input: "example.com", want: "example.com"},
		{name: "uppercase with whitespace", input: " Example.COM ", want: "example.com"},
		{name: "www prefix stripped", input: "www.example.com", want: "example.com"},
		{name: "only one www stripped", input: "www.www.example.com", want: "www.example.com"},
		{name: "url pattern", input: "https://Example.com/path?x=1", want: "example.com"},
		{name: "wildcard", input: "*.example.com", want: "*.example.com", wantWildcard: true},
		{name: "wildcard keeps www", input: "*.www.example.com", want: "*.www.example.com", wantWildcard: true},
		{name: "bare wildcard", input: "*", wantErr: true},
		{name: "double wildcard", input: "*.*.example.com", wantErr: true},
		{name: "wildcard not leading", input: "foo.*.example.com", wantErr: true},
		{name: "wildcard on public suffix", input: "*.com", wantErr: true},
		{name: "wildcard on multi-label public suffix", input: "*.co.uk", wantErr: true},
		{name: "empty", input: "   ", wantErr: true},
		{name: "empty label", input: "foo..example.com", wantErr: true},
		{name: "leading hyphen label", input: "-foo.example.com", wantErr: true},
		{name: "trailing hyphen label", input: "foo-.example.com", wantErr: true},
		{name: "internal hyphen ok", input: "foo-bar.example.com", want: "foo-bar.example.com"},
		{name: "invalid character", input: "foo_bar.example.com", wantErr: true},
		{name: "label too long", input: strings.Repeat("a", 64) + ".example.com", wantErr: true},
		{name: "pattern too long", input: strings.Repeat("a", 256), wantErr: true},
		{name: "ftp url rejected", input: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, wildcard, err := NormalizePattern(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizePattern(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePattern(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePattern(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if wildcard != tt.wantWildcard {
				t.Errorf("NormalizePattern(%q) wildcard = %v, want %v", tt.input, wildcard, tt.wantWildcard)
			}
		})
	}
}

func TestNormalizePattern_Idempotent(t *testing.T) {
	inputs := []string{"example.com", "*.example.com", "a.b.example.com", "*.www.example.com"}
	for _, in := range inputs {
		first, _, err := NormalizePattern(in)
		if err != nil {
			t.Fatalf("NormalizePattern(%q) unexpected error: %v", in, err)
		}
		second, _, err := NormalizePattern(first)
		if err != nil {
			t.Fatalf("NormalizePattern(%q) unexpected error: %v", first, err)
		}
		if first != second {
			t.Errorf("normalization is not idempotent: %q -> %q -> %q", in, first, second)
		}
	}
}

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain domain", input: "example.com", want: "example.com"},
		{name: "www stripped", input: "WWW.Example.com", want: "example.com"},
		{name: "https url", input: "https://foo.example.com/mail?to=x", want: "foo.example.com"},
		{name: "http url with port", input: "http://foo.example.com:8080/", want: "foo.example.com"},
		{name: "url with www host", input: "https://www.example.com/", want: "example.com"},
		{name: "scheme rejected", input: "gopher://example.com", wantErr: true},
		{name: "localhost url", input: "http://localhost/admin", wantErr: true},
		{name: "localhost subdomain", input: "http://svc.localhost/", wantErr: true},
		{name: "loopback ip", input: "http://127.0.0.1/", wantErr: true},
		{name: "private ipv4", input: "http://10.0.0.8/", wantErr: true},
		{name: "private 192 range", input: "https://192.168.1.1/", wantErr: true},
		{name: "link local", input: "http://169.254.169.254/latest/meta-data", wantErr: true},
		{name: "ipv6 loopback", input: "http://[::1]/", wantErr: true},
		{name: "unspecified", input: "http://0.0.0.0/", wantErr: true},
		{name: "wildcard target", input: "*.example.com", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "path without scheme", input: "example.com/path", wantErr: true},
		{name: "too long", input: "https://" + strings.Repeat("a", 2000) + ".com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTarget(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeTarget(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeTarget(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeTarget(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTarget_Idempotent(t *testing.T) {
	for _, in := range []string{"example.com", "a.b.example.com", "foo-bar.example.com"} {
		first, err := NormalizeTarget(in)
		if err != nil {
			t.Fatalf("NormalizeTarget(%q) unexpected error: %v", in, err)
		}
		second, err := NormalizeTarget(first)
		if err != nil {
			t.Fatalf("NormalizeTarget(%q) unexpected error: %v", first, err)
		}
		if first != second {
			t.Errorf("normalization is not idempotent: %q -> %q -> %q", in, first, second)
		}
	}
}
