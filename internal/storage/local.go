package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
)

// Local implements Backend against a rooted directory on disk. Every key
// is resolved relative to root and re-validated to stay inside it; keys
// carrying ".." segments or a leading slash are rejected before any
// filesystem call.
type Local struct {
	root string
	// PublicBaseURL, when set, is prefixed to a key to form the "URL"
	// GetPresignedURL returns for local storage. No real presigning is
	// possible without an HTTP server component issuing tokens.
	PublicBaseURL string
}

func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, mdlerr.StorageErr("resolve local storage root", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, mdlerr.StorageErr("create local storage root", err)
	}
	return &Local{root: abs}, nil
}

func (l *Local) Type() BackendType { return BackendLocal }

func (l *Local) resolve(key string) (string, error) {
	if key == "" {
		return "", mdlerr.InvalidInput("storage key must not be empty")
	}
	if strings.HasPrefix(key, "/") {
		return "", mdlerr.InvalidInput(fmt.Sprintf("storage key %q must be relative", key))
	}
	for _, seg := range strings.Split(filepath.ToSlash(key), "/") {
		if seg == ".." {
			return "", mdlerr.InvalidInput(fmt.Sprintf("storage key %q escapes storage root", key))
		}
	}
	full := filepath.Join(l.root, filepath.FromSlash(key))
	if !strings.HasPrefix(full, l.root+string(os.PathSeparator)) && full != l.root {
		return "", mdlerr.InvalidInput(fmt.Sprintf("storage key %q escapes storage root", key))
	}
	return full, nil
}

func (l *Local) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	return l.write(key, data)
}

func (l *Local) UploadStream(ctx context.Context, key string, data io.Reader, contentType string) error {
	return l.write(key, data)
}

func (l *Local) write(key string, data io.Reader) error {
	full, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return mdlerr.StorageErr("create parent directory", err)
	}
	tmp := full + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return mdlerr.StorageErr("open temp file", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		os.Remove(tmp)
		return mdlerr.StorageErr("write file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return mdlerr.StorageErr("fsync file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return mdlerr.StorageErr("close file", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return mdlerr.StorageErr("rename into place", err)
	}
	return nil
}

func (l *Local) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mdlerr.NotFound("object")
		}
		return nil, mdlerr.StorageErr("open file", err)
	}
	return f, nil
}

// Delete is idempotent: deleting a key that does not exist is not an error,
// matching S3's DeleteObject semantics so callers don't need to branch by
// backend.
func (l *Local) Delete(ctx context.Context, key string) error {
	full, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return mdlerr.StorageErr("delete file", err)
	}
	return nil
}

func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	full, err := l.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, mdlerr.StorageErr("stat file", err)
}

func (l *Local) ContentLength(ctx context.Context, key string) (int64, error) {
	full, err := l.resolve(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, mdlerr.NotFound("object")
		}
		return 0, mdlerr.StorageErr("stat file", err)
	}
	return info.Size(), nil
}

func (l *Local) Copy(ctx context.Context, srcKey, dstKey string) error {
	r, err := l.Download(ctx, srcKey)
	if err != nil {
		return err
	}
	defer r.Close()
	return l.write(dstKey, r)
}

// GetPresignedURL for local storage only makes sense when a PublicBaseURL
// is configured (e.g. a sidecar static file server); it carries no real
// expiry enforcement since there is no token to check, a limitation worth
// calling out rather than silently pretending to honor expires.
func (l *Local) GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return l.publicURL(key)
}

// PresignPut on local storage returns the same public URL as GET access:
// clients must upload through the normal channel, per the local-backend
// presign semantics the S3 path doesn't share.
func (l *Local) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	return l.publicURL(key)
}

func (l *Local) publicURL(key string) (string, error) {
	if l.PublicBaseURL == "" {
		return "", mdlerr.New(mdlerr.KindInternal, "local backend has no PublicBaseURL configured for presigned URLs")
	}
	base := strings.TrimSuffix(l.PublicBaseURL, "/")
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return base + "/" + strings.Join(segs, "/"), nil
}
