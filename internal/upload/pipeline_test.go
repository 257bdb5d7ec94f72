package upload

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

func TestSanitizeFilenameKeepsCleanName(t *testing.T) {
	id := uuid.New()
	got := sanitizeFilename("vacation-photo.jpg", id, "jpg")
	if got != "vacation-photo.jpg" {
		t.Fatalf("sanitizeFilename() = %q, want %q", got, "vacation-photo.jpg")
	}
}

func TestSanitizeFilenameStripsDisallowedCharacters(t *testing.T) {
	id := uuid.New()
	got := sanitizeFilename("my photo!@#.jpg", id, "jpg")
	want := "myphoto.jpg"
	if got != want {
		t.Fatalf("sanitizeFilename() = %q, want %q", got, want)
	}
}

func TestSanitizeFilenameFallsBackWhenTooShort(t *testing.T) {
	id := uuid.New()
	got := sanitizeFilename("!@#", id, "jpg")
	want := id.String() + ".jpg"
	if got != want {
		t.Fatalf("sanitizeFilename() = %q, want %q", got, want)
	}
}

func TestExtOfLowercasesAndStripsDot(t *testing.T) {
	if got := extOf("Photo.JPG"); got != "jpg" {
		t.Fatalf("extOf() = %q, want %q", got, "jpg")
	}
	if got := extOf("noext"); got != "" {
		t.Fatalf("extOf() = %q, want empty string", got)
	}
}

func TestStorageKeyCollapsesDefaultTenant(t *testing.T) {
	id := uuid.New()
	got := storageKey(models.DefaultTenantID, id, "jpg")
	want := "media/" + id.String() + ".jpg"
	if got != want {
		t.Fatalf("storageKey() = %q, want %q", got, want)
	}
}

func TestStorageKeyIncludesNonDefaultTenant(t *testing.T) {
	id := uuid.New()
	got := storageKey("acme", id, "jpg")
	want := "media/acme/" + id.String() + ".jpg"
	if got != want {
		t.Fatalf("storageKey() = %q, want %q", got, want)
	}
}

func TestResolveStoreBehaviorPermanentHasNoExpiry(t *testing.T) {
	permanent, expires := resolveStoreBehavior(models.StoreBehaviorOn)
	if !permanent {
		t.Fatalf("resolveStoreBehavior(On) permanent = false, want true")
	}
	if expires != nil {
		t.Fatalf("resolveStoreBehavior(On) expires = %v, want nil", expires)
	}
}

func TestBatchDeleteRejectsOversizedBatch(t *testing.T) {
	svc := &Service{}
	ids := make([]uuid.UUID, MaxBatchDeleteIDs+1)
	for i := range ids {
		ids[i] = uuid.New()
	}
	_, err := svc.BatchDelete(context.Background(), "acme", ids)
	if !mdlerr.Is(err, mdlerr.KindBadRequest) {
		t.Fatalf("BatchDelete(%d ids) error = %v, want KindBadRequest", len(ids), err)
	}
}

func TestBatchDeleteRejectsEmptyBatch(t *testing.T) {
	svc := &Service{}
	_, err := svc.BatchDelete(context.Background(), "acme", nil)
	if !mdlerr.Is(err, mdlerr.KindBadRequest) {
		t.Fatalf("BatchDelete(no ids) error = %v, want KindBadRequest", err)
	}
}

func TestResolveStoreBehaviorOffAndAutoExpire(t *testing.T) {
	for _, b := range []models.StoreBehavior{models.StoreBehaviorOff, models.StoreBehaviorAuto} {
		permanent, expires := resolveStoreBehavior(b)
		if permanent {
			t.Errorf("resolveStoreBehavior(%v) permanent = true, want false", b)
		}
		if expires == nil {
			t.Errorf("resolveStoreBehavior(%v) expires = nil, want a future time", b)
		}
	}
}
