package target

import (
	"errors"
	"testing"
)

func TestPolicy_Allows(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		denied  []string
		host    string
		want    bool
	}{
		{
			name: "no patterns - allow all",
			host: "example.com",
			want: true,
		},
		{
			name:    "allowed exact",
			allowed: []string{"example.com"},
			host:    "example.com",
			want:    true,
		},
		{
			name:    "allowed single label wildcard",
			allowed: []string{"*.example.com"},
			host:    "www.example.com",
			want:    true,
		},
		{
			name:    "single label wildcard does not cross dots",
			allowed: []string{"*.example.com"},
			host:    "a.b.example.com",
			want:    false,
		},
		{
			name:    "super wildcard crosses dots",
			allowed: []string{"**.example.com"},
			host:    "a.b.example.com",
			want:    true,
		},
		{
			name:    "not in allowed list",
			allowed: []string{"example.com"},
			host:    "example.org",
			want:    false,
		},
		{
			name:    "denied takes precedence",
			allowed: []string{"**"},
			denied:  []string{"localhost", "127.0.0.*"},
			host:    "127.0.0.1",
			want:    false,
		},
		{
			name:   "case insensitive",
			denied: []string{"INTERNAL.example.com"},
			host:   "Internal.Example.com.",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPolicy(tt.allowed, tt.denied)
			if err != nil {
				t.Fatalf("NewPolicy: %v", err)
			}
			if got := p.Allows(tt.host); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestPolicy_NilAllowsAll(t *testing.T) {
	var p *Policy
	if !p.Allows("anything.example") {
		t.Error("nil policy should allow every host")
	}
}

func TestNewPolicy_InvalidPattern(t *testing.T) {
	if _, err := NewPolicy([]string{"[unterminated"}, nil); err == nil {
		t.Error("expected error for invalid allowed pattern")
	}
	if _, err := NewPolicy(nil, []string{"[unterminated"}); err == nil {
		t.Error("expected error for invalid denied pattern")
	}
}

func TestPolicy_Check(t *testing.T) {
	p, err := NewPolicy(nil, []string{"blocked.example"})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	if _, err := p.Check("https://ok.example/"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	_, err = p.Check("https://blocked.example/")
	if !errors.Is(err, ErrHostDenied) || !errors.Is(err, ErrInvalidURL) {
		t.Errorf("expected denied host error wrapping ErrInvalidURL, got %v", err)
	}

	_, err = p.Check("not-a-url")
	if !errors.Is(err, ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}
}
