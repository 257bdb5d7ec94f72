package models

import (
	"testing"
	"time"
)

func TestMediaValidateRejectsPermanentWithExpiry(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	m := &Media{StorePermanently: true, ExpiresAt: &expires}
	if err := m.Validate(); err == nil {
		t.Fatalf("Validate() = nil, want an error for store_permanently with expires_at set")
	}
}

func TestMediaValidateAcceptsPermanentWithoutExpiry(t *testing.T) {
	m := &Media{StorePermanently: true}
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMediaValidateAcceptsTemporaryWithExpiry(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	m := &Media{StorePermanently: false, ExpiresAt: &expires}
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMediaKindValid(t *testing.T) {
	for _, k := range []MediaKind{MediaKindImage, MediaKindVideo, MediaKindAudio, MediaKindDocument} {
		if !k.Valid() {
			t.Errorf("Valid() = false for %q", k)
		}
	}
	if MediaKind("bogus").Valid() {
		t.Fatalf("Valid() = true for an unknown media kind")
	}
}

func TestStoreBehaviorValid(t *testing.T) {
	for _, b := range []StoreBehavior{StoreBehaviorOff, StoreBehaviorOn, StoreBehaviorAuto} {
		if !b.Valid() {
			t.Errorf("Valid() = false for %q", b)
		}
	}
	if StoreBehavior("2").Valid() {
		t.Fatalf("Valid() = true for an unknown store behavior")
	}
}

func TestMediaAttrsAccessorsDecodeEmptyAsZeroValue(t *testing.T) {
	m := &Media{Kind: MediaKindImage}
	attrs, err := m.ImageAttrs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attrs.Width != nil || attrs.Height != nil {
		t.Fatalf("expected zero-value attrs for empty Attributes, got %+v", attrs)
	}
}

func TestMediaAttrsAccessorsDecodePayload(t *testing.T) {
	m := &Media{Kind: MediaKindVideo, Attributes: []byte(`{"width":1920,"height":1080,"duration_seconds":12.5}`)}
	attrs, err := m.VideoAttrs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attrs.Width == nil || *attrs.Width != 1920 {
		t.Fatalf("Width = %v, want 1920", attrs.Width)
	}
	if attrs.DurationSeconds == nil || *attrs.DurationSeconds != 12.5 {
		t.Fatalf("DurationSeconds = %v, want 12.5", attrs.DurationSeconds)
	}
}
