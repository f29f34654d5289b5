package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := Wrap(ErrProvider, "scan", "search", "query failed", base)
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected provider marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "scan: search: query failed") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected default provider marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %v", err)
	}
}

func TestRateLimitIsProviderSubtype(t *testing.T) {
	err := Wrap(ErrRateLimit, "scan", "search", "429 from provider", nil)
	if !errors.Is(err, ErrRateLimit) {
		t.Fatalf("expected rate-limit marker, got %v", err)
	}
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("rate limit should classify as provider error, got %v", err)
	}
}

func TestIsRowScoped(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{Wrap(ErrProvider, "scan", "search", "boom", nil), true},
		{Wrap(ErrRateLimit, "scan", "search", "slow down", nil), true},
		{Wrap(ErrPersistence, "commit", "upsert", "disk full", nil), true},
		{Wrap(ErrParse, "parse", "decode", "bad header", nil), false},
		{fmt.Errorf("plain"), false},
	}
	for _, tc := range cases {
		if got := IsRowScoped(tc.err); got != tc.want {
			t.Errorf("IsRowScoped(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
