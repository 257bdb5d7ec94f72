package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
)

func TestLocalUploadDownloadRoundTrip(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}

	ctx := context.Background()
	key := "media/default/file.txt"
	want := []byte("hello mindia")

	if err := local.Upload(ctx, key, bytes.NewReader(want), "text/plain"); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	r, err := local.Download(ctx, key)
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Download() content = %q, want %q", got, want)
	}
}

func TestLocalExistsAndContentLength(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}
	ctx := context.Background()
	key := "file.bin"

	exists, err := local.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if exists {
		t.Fatalf("Exists() = true before upload")
	}

	data := []byte("0123456789")
	if err := local.Upload(ctx, key, bytes.NewReader(data), "application/octet-stream"); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	exists, err = local.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if !exists {
		t.Fatalf("Exists() = false after upload")
	}

	length, err := local.ContentLength(ctx, key)
	if err != nil {
		t.Fatalf("ContentLength() error: %v", err)
	}
	if length != int64(len(data)) {
		t.Fatalf("ContentLength() = %d, want %d", length, len(data))
	}
}

func TestLocalDeleteIsIdempotent(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}
	ctx := context.Background()
	if err := local.Delete(ctx, "never-existed.bin"); err != nil {
		t.Fatalf("Delete() on a missing key returned an error: %v", err)
	}
}

func TestLocalCopy(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}
	ctx := context.Background()
	src, dst := "src.txt", "dst.txt"
	want := []byte("copy me")

	if err := local.Upload(ctx, src, bytes.NewReader(want), "text/plain"); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if err := local.Copy(ctx, src, dst); err != nil {
		t.Fatalf("Copy() error: %v", err)
	}

	r, err := local.Download(ctx, dst)
	if err != nil {
		t.Fatalf("Download(dst) error: %v", err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if !bytes.Equal(got, want) {
		t.Fatalf("Copy() content = %q, want %q", got, want)
	}
}

func TestLocalResolveRejectsPathTraversal(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}
	ctx := context.Background()

	_, err = local.Download(ctx, "../../etc/passwd")
	if !mdlerr.Is(err, mdlerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput for a path-traversal key, got %v", err)
	}
}

func TestLocalResolveRejectsEmptyKey(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}
	if err := local.Delete(context.Background(), ""); !mdlerr.Is(err, mdlerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput for an empty key, got %v", err)
	}
}

func TestLocalDownloadMissingKeyReturnsNotFound(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}
	_, err = local.Download(context.Background(), "missing.txt")
	if !mdlerr.Is(err, mdlerr.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestLocalGetPresignedURLRequiresPublicBaseURL(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}
	_, err = local.GetPresignedURL(context.Background(), "file.txt", 0)
	if err == nil {
		t.Fatalf("GetPresignedURL() without a PublicBaseURL configured should error")
	}

	local.PublicBaseURL = "https://cdn.example.com"
	url, err := local.GetPresignedURL(context.Background(), "a b.txt", 0)
	if err != nil {
		t.Fatalf("GetPresignedURL() error: %v", err)
	}
	want := "https://cdn.example.com/a%20b.txt"
	if url != want {
		t.Fatalf("GetPresignedURL() = %q, want %q", url, want)
	}
}
