package services_test

import (
	"errors"
	"strings"
	"testing"

	"tether/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("open failed")
	err := services.Wrap(services.ErrMalformed, "descriptor", "parse", "bad json", base)

	if !errors.Is(err, services.ErrMalformed) {
		t.Error("expected malformed marker")
	}
	if !errors.Is(err, base) {
		t.Error("expected wrapped base error")
	}
	msg := err.Error()
	for _, part := range []string{"descriptor", "parse", "bad json", "open failed"} {
		if !strings.Contains(msg, part) {
			t.Errorf("expected %q in %q", part, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "mount", "scan", "walk aborted", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Error("expected transient marker for nil")
	}
}

func TestNeedsReview(t *testing.T) {
	cases := []struct {
		marker error
		want   bool
	}{
		{services.ErrMalformed, true},
		{services.ErrConfiguration, true},
		{services.ErrValidation, true},
		{services.ErrTransient, false},
		{services.ErrTimeout, false},
		{services.ErrStore, false},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "c", "op", "", nil)
		if got := services.NeedsReview(err); got != tc.want {
			t.Errorf("NeedsReview(%v) = %v, want %v", tc.marker, got, tc.want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := t.Context()
	if _, ok := services.ItemHashFromContext(ctx); ok {
		t.Error("expected no hash on fresh context")
	}

	ctx = services.WithItemHash(ctx, "AABB")
	ctx = services.WithPassID(ctx, "pass-7")

	if hash, ok := services.ItemHashFromContext(ctx); !ok || hash != "AABB" {
		t.Errorf("hash round trip failed: %q %v", hash, ok)
	}
	if id, ok := services.PassIDFromContext(ctx); !ok || id != "pass-7" {
		t.Errorf("pass id round trip failed: %q %v", id, ok)
	}
}
