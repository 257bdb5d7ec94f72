package validator

import (
	"testing"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

func imagePolicy() Policy {
	return DefaultPolicies[models.MediaKindImage]
}

func TestValidateAllRejectsEmptyFile(t *testing.T) {
	err := ValidateAll(imagePolicy(), "photo.jpg", "image/jpeg", 0)
	if !mdlerr.Is(err, mdlerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}

func TestValidateAllRejectsOversizedFile(t *testing.T) {
	policy := imagePolicy()
	err := ValidateAll(policy, "photo.jpg", "image/jpeg", policy.MaxSizeBytes+1)
	if !mdlerr.Is(err, mdlerr.KindPayloadTooLarge) {
		t.Fatalf("expected KindPayloadTooLarge, got %v", err)
	}
}

func TestValidateAllAcceptsFileAtExactMaxSize(t *testing.T) {
	policy := imagePolicy()
	if err := ValidateAll(policy, "photo.jpg", "image/jpeg", policy.MaxSizeBytes); err != nil {
		t.Fatalf("size exactly at the maximum should pass, got %v", err)
	}
}

func TestValidateAllRejectsDisallowedExtension(t *testing.T) {
	err := ValidateAll(imagePolicy(), "payload.exe", "image/jpeg", 1024)
	if !mdlerr.Is(err, mdlerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}

func TestValidateAllRejectsDisallowedContentType(t *testing.T) {
	err := ValidateAll(imagePolicy(), "photo.jpg", "application/octet-stream", 1024)
	if !mdlerr.Is(err, mdlerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}

func TestValidateAllRejectsMismatchedExtensionAndContentType(t *testing.T) {
	// png extension, but jpeg content-type: both individually allowed for
	// images, so only the cross-check can reject this combination.
	err := ValidateAll(imagePolicy(), "photo.png", "image/jpeg", 1024)
	if !mdlerr.Is(err, mdlerr.KindInvalidInput) {
		t.Fatalf("expected cross-check rejection, got %v", err)
	}
}

func TestValidateAllAcceptsWellFormedImage(t *testing.T) {
	if err := ValidateAll(imagePolicy(), "photo.jpg", "image/jpeg", 1024); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAllSkipsCrossCheckForUnknownExtension(t *testing.T) {
	policy := Policy{
		MaxSizeBytes:        1024,
		AllowedExtensions:   set("bin"),
		AllowedContentTypes: set("application/octet-stream"),
	}
	if err := ValidateAll(policy, "file.bin", "application/octet-stream", 512); err != nil {
		t.Fatalf("unexpected error for extension with no cross-check entry: %v", err)
	}
}

func TestValidateAllContentTypeMatchIsCaseInsensitive(t *testing.T) {
	if err := ValidateAll(imagePolicy(), "photo.jpg", "IMAGE/JPEG", 1024); err != nil {
		t.Fatalf("unexpected error for uppercase content-type: %v", err)
	}
}
