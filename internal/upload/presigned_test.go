package upload

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseFileIDFromKeyRecoversEmbeddedUUID(t *testing.T) {
	id := uuid.New()
	got := parseFileIDFromKey("uploads/" + id.String() + ".jpg")
	if got != id {
		t.Fatalf("parseFileIDFromKey() = %s, want %s", got, id)
	}
}

func TestParseFileIDFromKeyHandlesNestedKey(t *testing.T) {
	id := uuid.New()
	got := parseFileIDFromKey("media/acme/" + id.String() + ".png")
	if got != id {
		t.Fatalf("parseFileIDFromKey() = %s, want %s", got, id)
	}
}

func TestParseFileIDFromKeyFallsBackOnGarbage(t *testing.T) {
	got := parseFileIDFromKey("uploads/not-a-uuid.jpg")
	if got == uuid.Nil {
		t.Fatalf("parseFileIDFromKey() returned the nil UUID instead of a fresh one")
	}
	other := parseFileIDFromKey("uploads/not-a-uuid.jpg")
	if got == other {
		t.Fatalf("fallback should mint a fresh UUID per call, got %s twice", got)
	}
}
