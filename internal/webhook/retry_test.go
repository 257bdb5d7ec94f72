package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeremybastin1207/mindia-go/internal/models"
)

func TestAttemptSendsSignedRequest(t *testing.T) {
	var gotSignature, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := &RetryDriver{Client: srv.Client(), Guard: NewSSRFGuard("127.0.0.1")}
	hook := models.Webhook{URL: srv.URL, Secret: "shh"}
	payload := []byte(`{"event":"file.uploaded"}`)

	status, respBody, err := d.attempt(context.Background(), hook, payload)
	if err != nil {
		t.Fatalf("attempt() error: %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if respBody != "ok" {
		t.Fatalf("respBody = %q, want %q", respBody, "ok")
	}
	if gotBody != string(payload) {
		t.Fatalf("server received body %q, want %q", gotBody, payload)
	}
	if gotSignature != "v1="+Sign(payload, "shh") {
		t.Fatalf("signature header = %q, want %q", gotSignature, "v1="+Sign(payload, "shh"))
	}
}

func TestAttemptRejectsSSRFGuardedTarget(t *testing.T) {
	d := &RetryDriver{Client: http.DefaultClient, Guard: NewSSRFGuard()}
	hook := models.Webhook{URL: "http://127.0.0.1/hook"}

	_, _, err := d.attempt(context.Background(), hook, []byte("{}"))
	if err == nil {
		t.Fatalf("attempt() to a loopback target should be rejected by the SSRF guard")
	}
}

func TestAttemptOmitsSignatureHeaderWithoutSecret(t *testing.T) {
	var sawHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawHeader = r.Header["X-Webhook-Signature"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := &RetryDriver{Client: srv.Client(), Guard: NewSSRFGuard("127.0.0.1")}
	hook := models.Webhook{URL: srv.URL}

	if _, _, err := d.attempt(context.Background(), hook, []byte("{}")); err != nil {
		t.Fatalf("attempt() error: %v", err)
	}
	if sawHeader {
		t.Fatalf("X-Webhook-Signature header present without a configured secret")
	}
}
