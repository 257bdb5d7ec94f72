package httputil

import (
	"errors"
	"testing"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
)

func TestRenderErrorNonSensitiveKeepsMessage(t *testing.T) {
	status, body := RenderError(mdlerr.NotFound("media"), true)
	if status != 404 {
		t.Fatalf("status = %d, want 404", status)
	}
	if body.Error != "media not found" {
		t.Fatalf("Error = %q, want the specific message even in production", body.Error)
	}
	if body.Code != "NOT_FOUND" {
		t.Fatalf("Code = %q, want NOT_FOUND", body.Code)
	}
	if body.Details != "" || body.ErrorType != "" {
		t.Fatalf("production response must not carry details/error_type, got %q/%q", body.Details, body.ErrorType)
	}
}

func TestRenderErrorSensitiveHidesMessageInProduction(t *testing.T) {
	err := mdlerr.Database("insert media", errors.New("pq: relation does not exist"))
	status, body := RenderError(err, true)
	if status != 500 {
		t.Fatalf("status = %d, want 500", status)
	}
	if body.Error != genericMessage {
		t.Fatalf("sensitive error leaked its message in production: %q", body.Error)
	}
	if body.Details != "" {
		t.Fatalf("sensitive error leaked details: %q", body.Details)
	}
}

func TestRenderErrorDevIncludesDetailsForNonSensitive(t *testing.T) {
	_, body := RenderError(mdlerr.InvalidInput("bad filename"), false)
	if body.Details == "" {
		t.Fatalf("non-production response should carry details")
	}
	if body.ErrorType != "InvalidInput" {
		t.Fatalf("ErrorType = %q, want InvalidInput", body.ErrorType)
	}
}

func TestRenderErrorUnknownErrorBecomesInternal(t *testing.T) {
	status, body := RenderError(errors.New("boom"), true)
	if status != 500 {
		t.Fatalf("status = %d, want 500", status)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Fatalf("Code = %q, want INTERNAL_ERROR", body.Code)
	}
	if body.Error != genericMessage {
		t.Fatalf("unknown error leaked its message: %q", body.Error)
	}
}
