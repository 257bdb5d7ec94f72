// Package storage provides the object-store abstraction: a single
// interface implemented by a local-filesystem backend and an
// S3-compatible backend, so the upload pipeline and queue workers never
// branch on which one is configured.
package storage

import (
	"context"
	"io"
	"time"
)

// BackendType names which concrete backend a StorageLocation was written
// through, persisted alongside the key so a later read doesn't have to
// guess.
type BackendType string

const (
	BackendLocal BackendType = "local"
	BackendS3    BackendType = "s3"
)

// Backend is implemented by Local and S3. Every method is tenant-agnostic;
// callers are responsible for namespacing keys by tenant before calling
// in.
type Backend interface {
	Type() BackendType

	// Upload writes data in a single request (one PutObject on S3); no
	// implementation switches to multipart here. Callers with large data
	// use UploadStream.
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error

	// UploadStream is the same contract as Upload but signals to backends
	// that can exploit it (S3) that the reader may be large and unsized,
	// forcing a multipart upload regardless of declared size.
	UploadStream(ctx context.Context, key string, data io.Reader, contentType string) error

	Download(ctx context.Context, key string) (io.ReadCloser, error)

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	ContentLength(ctx context.Context, key string) (int64, error)

	Copy(ctx context.Context, srcKey, dstKey string) error

	// GetPresignedURL returns a time-limited URL authorizing a single GET
	// of the object at key, used by read-redirect responses.
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)

	// PresignPut returns a time-limited URL authorizing a single PUT of
	// the given content type to key; the content type is bound into the
	// signature so the client cannot upload under a different one. Used
	// by the two-phase upload flow.
	PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
}

// MultipartThreshold is the size at or above which the upload pipeline
// writes through UploadStream (multipart on S3) instead of Upload,
// matching the 5 MiB minimum part size S3 enforces.
const MultipartThreshold = 5 * 1024 * 1024
