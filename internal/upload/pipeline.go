// Package upload implements the ingestion pipeline:
// extract -> validate -> scan -> process -> store -> persist -> notify,
// plus the two-phase presigned flow. Virus scanning, metadata extraction,
// and sanitization are pluggable collaborators; this package defines the
// interfaces, never the implementations.
package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeremybastin1207/mindia-go/internal/capacity"
	"github.com/jeremybastin1207/mindia-go/internal/db"
	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
	"github.com/jeremybastin1207/mindia-go/internal/storage"
	"github.com/jeremybastin1207/mindia-go/internal/validator"
)

// ScanVerdict is the outcome of the pluggable virus scanner.
type ScanVerdict int

const (
	ScanClean ScanVerdict = iota
	ScanInfected
	ScanError
)

// VirusScanner is the pluggable scan step; the concrete client (ClamAV
// or otherwise) is supplied by the application.
type VirusScanner interface {
	Scan(ctx context.Context, data io.Reader) (ScanVerdict, error)
}

// Processor runs the kind-specific metadata-extraction and sanitization
// pair (EXIF stripping, codec probing); the pipeline only needs the
// shape, not the codec internals.
type Processor interface {
	Process(ctx context.Context, kind models.MediaKind, data io.Reader) (sanitized io.Reader, attributes []byte, err error)
}

// Notifier fires the fire-and-forget side effects of a completed upload.
// Failures here must never fail the upload. Direct uploads use
// NotifyUploaded (webhook fan-out plus moderation/embedding task
// submission); presigned completion uses NotifyUploadedWebhookOnly, which
// fires the file.uploaded webhook and nothing else.
type Notifier interface {
	NotifyUploaded(ctx context.Context, m *models.Media)
	NotifyUploadedWebhookOnly(ctx context.Context, m *models.Media)
}

// Config carries the installation policy knobs.
type Config struct {
	ClamAVFailClosed      bool
	SemanticSearchEnabled bool
	ModerationEnabled     bool
	PresignExpiry         time.Duration
}

type Service struct {
	Store     *db.Store
	Backend   storage.Backend
	Policies  map[models.MediaKind]validator.Policy
	Scanner   VirusScanner
	Processor Processor
	Notifier  Notifier
	Capacity  *capacity.Checker
	Config    Config
}

var filenameCharClass = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// sanitizeFilename restricts the name to [A-Za-z0-9._-], falling back to
// a synthesized name if the result is empty or too short.
func sanitizeFilename(original string, fileID uuid.UUID, ext string) string {
	cleaned := filenameCharClass.ReplaceAllString(original, "")
	if len(cleaned) < 3 {
		return fileID.String() + "." + ext
	}
	return cleaned
}

func extOf(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// storageKey builds "media/{tenant_id}/{uuid}.{ext}", collapsed to
// "media/{uuid}.{ext}" for the default tenant.
func storageKey(tenantID string, fileID uuid.UUID, ext string) string {
	name := fileID.String() + "." + ext
	if tenantID == "" || tenantID == models.DefaultTenantID {
		return "media/" + name
	}
	return "media/" + tenantID + "/" + name
}

// DirectUpload runs the full direct-multipart pipeline: validate, scan,
// process, store, persist, notify.
func (s *Service) DirectUpload(ctx context.Context, tenantID string, kind models.MediaKind, filename, contentType string, size int64, data io.Reader, storeBehavior models.StoreBehavior, folderID *uuid.UUID) (*models.Media, error) {
	if !kind.Valid() {
		return nil, mdlerr.InvalidInput("unknown media kind")
	}
	if !storeBehavior.Valid() {
		storeBehavior = models.StoreBehaviorAuto
	}

	policy, ok := s.Policies[kind]
	if !ok {
		return nil, mdlerr.Internal("resolve validator policy", nil)
	}
	if err := validator.ValidateAll(policy, filename, contentType, size); err != nil {
		return nil, err
	}

	if s.Capacity != nil {
		if err := s.Capacity.CheckAll(ctx, uint64(size)); err != nil {
			return nil, err
		}
	}

	if s.Scanner != nil {
		verdict, err := s.Scanner.Scan(ctx, data)
		if err != nil {
			if s.Config.ClamAVFailClosed {
				return nil, mdlerr.New(mdlerr.KindInvalidInput, "scanning unavailable")
			}
			// fail open: the scan error is discarded and the upload
			// proceeds; nothing is logged and the caller is not told.
		} else if verdict == ScanInfected {
			return nil, mdlerr.InvalidInput("file failed virus scan")
		}
	}

	var attributes []byte
	reader := data
	if s.Processor != nil {
		sanitized, attrs, err := s.Processor.Process(ctx, kind, data)
		if err != nil {
			return nil, mdlerr.Wrap(mdlerr.KindMediaProcessing, "processing failed", err)
		}
		reader = sanitized
		attributes = attrs
	}

	fileID := uuid.New()
	ext := extOf(filename)
	sanitizedName := sanitizeFilename(filename, fileID, ext)
	key := storageKey(tenantID, fileID, ext)

	if size >= storage.MultipartThreshold {
		if err := s.Backend.UploadStream(ctx, key, reader, contentType); err != nil {
			return nil, err
		}
	} else {
		if err := s.Backend.Upload(ctx, key, reader, contentType); err != nil {
			return nil, err
		}
	}

	storePermanently, expiresAt := resolveStoreBehavior(storeBehavior)

	m := &models.Media{
		ID:                fileID,
		TenantID:          tenantID,
		Kind:              kind,
		OriginalFilename:  filename,
		SanitizedFilename: sanitizedName,
		ContentType:       contentType,
		SizeBytes:         size,
		FolderID:          folderID,
		StoreBehavior:     storeBehavior,
		StorePermanently:  storePermanently,
		ExpiresAt:         expiresAt,
		Attributes:        attributes,
		ProcessingStatus:  models.ProcessingStatusPending,
	}
	if err := m.Validate(); err != nil {
		_ = s.Backend.Delete(ctx, key)
		return nil, mdlerr.InvalidInput(err.Error())
	}

	loc := &models.StorageLocation{Backend: string(s.Backend.Type()), Key: key}
	if pu, ok := s.Backend.(publicURLer); ok {
		loc.URL = pu.PublicURL(key)
	}

	if err := s.Store.CreateMediaWithStorage(ctx, m, loc); err != nil {
		// no orphan object may remain if the DB insert fails
		_ = s.Backend.Delete(ctx, key)
		return nil, err
	}

	if s.Notifier != nil {
		s.Notifier.NotifyUploaded(ctx, m)
	}

	return m, nil
}

type publicURLer interface {
	PublicURL(key string) string
}

// MaxBatchDeleteIDs caps a single batch-delete request.
const MaxBatchDeleteIDs = 50

// BatchDelete soft-deletes up to MaxBatchDeleteIDs media rows; anything
// larger is rejected before touching the database.
func (s *Service) BatchDelete(ctx context.Context, tenantID string, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, mdlerr.New(mdlerr.KindBadRequest, "no media ids given")
	}
	if len(ids) > MaxBatchDeleteIDs {
		return 0, mdlerr.New(mdlerr.KindBadRequest, fmt.Sprintf("batch delete accepts at most %d ids per request", MaxBatchDeleteIDs))
	}
	return s.Store.BatchDeleteMedia(ctx, tenantID, ids)
}

// resolveStoreBehavior derives store_permanently / expires_at: "1" is
// permanent, "0"/"auto" expire 24h out by default (the same default the
// presigned completion path uses).
func resolveStoreBehavior(behavior models.StoreBehavior) (bool, *time.Time) {
	if behavior == models.StoreBehaviorOn {
		return true, nil
	}
	expires := time.Now().Add(24 * time.Hour)
	return false, &expires
}
