// Package validator implements the upload validation policy:
// per-media-kind size/extension/content-type checks plus an
// extension<->content-type cross-check. It only ever inspects filename,
// content-type, and byte length, never file contents.
package validator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

// Policy is the (max_size, allowed_extensions, allowed_content_types)
// tuple selected by media kind.
type Policy struct {
	MaxSizeBytes        int64
	AllowedExtensions   map[string]bool
	AllowedContentTypes map[string]bool
}

// crossCheck maps a lowercased extension to the content types that are
// acceptable for it. Extensions absent from this table skip the
// cross-check entirely.
var crossCheck = map[string][]string{
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"png":  {"image/png"},
	"gif":  {"image/gif"},
	"webp": {"image/webp"},
	"mp4":  {"video/mp4"},
	"mov":  {"video/quicktime"},
	"webm": {"video/webm"},
	"wav":  {"audio/wav", "audio/wave", "audio/x-wav"},
	"mp3":  {"audio/mpeg", "audio/mp3"},
	"ogg":  {"audio/ogg"},
	"pdf":  {"application/pdf"},
	"doc":  {"application/msword"},
	"docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
}

// DefaultPolicies gives every media kind a reasonable out-of-the-box
// policy; operators override per-tenant via configuration loaded at the
// call site, not here (policies stay pure data).
var DefaultPolicies = map[models.MediaKind]Policy{
	models.MediaKindImage: {
		MaxSizeBytes:        25 * 1024 * 1024,
		AllowedExtensions:   set("jpg", "jpeg", "png", "gif", "webp"),
		AllowedContentTypes: set("image/jpeg", "image/png", "image/gif", "image/webp"),
	},
	models.MediaKindVideo: {
		MaxSizeBytes:        2 * 1024 * 1024 * 1024,
		AllowedExtensions:   set("mp4", "mov", "webm"),
		AllowedContentTypes: set("video/mp4", "video/quicktime", "video/webm"),
	},
	models.MediaKindAudio: {
		MaxSizeBytes:        200 * 1024 * 1024,
		AllowedExtensions:   set("wav", "mp3", "ogg"),
		AllowedContentTypes: set("audio/wav", "audio/wave", "audio/x-wav", "audio/mpeg", "audio/mp3", "audio/ogg"),
	},
	models.MediaKindDocument: {
		MaxSizeBytes:        50 * 1024 * 1024,
		AllowedExtensions:   set("pdf", "doc", "docx"),
		AllowedContentTypes: set("application/pdf", "application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"),
	},
}

func set(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

// ValidateAll runs the full sequence: empty check, size check, extension
// check, content-type check, then the cross-check. The size, extension,
// content-type and cross-check failures carry the offending values in
// Extra so callers/logs can render them without re-deriving; the
// empty-file and missing-extension failures carry none.
func ValidateAll(policy Policy, filename, contentType string, length int64) error {
	if length == 0 {
		return mdlerr.WithExtra(mdlerr.KindInvalidInput, "file is empty", nil)
	}
	if length > policy.MaxSizeBytes {
		return mdlerr.WithExtra(mdlerr.KindPayloadTooLarge,
			fmt.Sprintf("file size %d exceeds maximum %d", length, policy.MaxSizeBytes),
			map[string]any{"size": length, "max": policy.MaxSizeBytes})
	}

	ext := extensionOf(filename)
	if ext == "" {
		return mdlerr.New(mdlerr.KindInvalidInput, "filename has no extension")
	}
	if !policy.AllowedExtensions[ext] {
		return mdlerr.WithExtra(mdlerr.KindInvalidInput,
			fmt.Sprintf("extension %q is not allowed", ext),
			map[string]any{"extension": ext, "allowed": keysOf(policy.AllowedExtensions)})
	}

	lowerCT := strings.ToLower(contentType)
	if !policy.AllowedContentTypes[lowerCT] {
		return mdlerr.WithExtra(mdlerr.KindInvalidInput,
			fmt.Sprintf("content-type %q is not allowed", lowerCT),
			map[string]any{"content_type": lowerCT, "allowed": keysOf(policy.AllowedContentTypes)})
	}

	if expected, known := crossCheck[ext]; known {
		if !contains(expected, lowerCT) {
			return mdlerr.WithExtra(mdlerr.KindInvalidInput,
				fmt.Sprintf("content-type %q does not match extension %q (expected one of %v)", lowerCT, ext, expected),
				map[string]any{"content_type": lowerCT, "extension": ext, "expected": expected})
		}
	}

	return nil
}

func extensionOf(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func keysOf(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func contains(vals []string, target string) bool {
	for _, v := range vals {
		if v == target {
			return true
		}
	}
	return false
}
