package mdlerr

import (
	"errors"
	"testing"
)

func TestNewSetsKindAndMessage(t *testing.T) {
	err := New(KindNotFound, "media not found")
	if err.Kind != KindNotFound {
		t.Fatalf("Kind = %v, want KindNotFound", err.Kind)
	}
	if err.Error() != "media not found" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestWrapIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindDatabase, "query media", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected Wrap result to unwrap to cause")
	}
	want := "query media: connection refused"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAsAndIs(t *testing.T) {
	wrapped := errors.New("boom")
	err := error(Wrap(KindStorage, "put object", wrapped))

	got, ok := As(err)
	if !ok {
		t.Fatalf("As() = false, want true")
	}
	if got.Kind != KindStorage {
		t.Fatalf("Kind = %v, want KindStorage", got.Kind)
	}
	if !Is(err, KindStorage) {
		t.Fatalf("Is(err, KindStorage) = false")
	}
	if Is(err, KindNotFound) {
		t.Fatalf("Is(err, KindNotFound) = true, want false")
	}

	if _, ok := As(errors.New("plain error")); ok {
		t.Fatalf("As() on a plain error = true, want false")
	}
}

func TestMetaTableCoversEveryKind(t *testing.T) {
	kinds := []Kind{
		KindDatabase, KindStorage, KindMediaProcessing, KindMediaConversion,
		KindInvalidInput, KindBadRequest, KindNotFound, KindPayloadTooLarge,
		KindInternal, KindUnauthorized, KindInsufficientDiskSpace,
		KindInsufficientMemory, KindHighCPUUsage, KindHighMemoryUsage,
		KindInvalidMetadataKey, KindInvalidMetadataValue,
		KindMetadataKeyLimitExceeded, KindMetadataFilterLimitExceeded,
		KindMetadataKeyNotFound, KindUsageLimitExceeded, KindSubscriptionRequired,
	}
	for _, k := range kinds {
		e := New(k, "x")
		status, code, _, _, _, _ := e.Meta()
		if status == 0 || code == "" {
			t.Errorf("Kind %v has no metadata entry", k)
		}
	}
}

func TestNotFoundConstructor(t *testing.T) {
	err := NotFound("media")
	if err.Kind != KindNotFound {
		t.Fatalf("Kind = %v, want KindNotFound", err.Kind)
	}
	if err.Error() != "media not found" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestUnrecoverableMarksExtra(t *testing.T) {
	err := Unrecoverable(New(KindMediaProcessing, "bad codec"))
	if v, ok := err.Extra["unrecoverable"]; !ok || v != true {
		t.Fatalf("Extra[unrecoverable] = %v, want true", v)
	}
}

func TestMetaReflectsHTTPStatus(t *testing.T) {
	err := New(KindPayloadTooLarge, "too big")
	status, code, recoverable, _, _, _ := err.Meta()
	if status != 413 {
		t.Fatalf("status = %d, want 413", status)
	}
	if code != "PAYLOAD_TOO_LARGE" {
		t.Fatalf("code = %q", code)
	}
	if recoverable {
		t.Fatalf("recoverable = true, want false for invalid input class")
	}
}
