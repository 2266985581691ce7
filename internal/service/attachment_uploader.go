package service

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/storage"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const defaultAttachmentName = "attachment"

// RawAttachment is a client file that has not reached the attachment store yet.
type RawAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AttachmentStore is the subset of the blob store used for uploads.
type AttachmentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (storage.StoredObject, error)
}

// AttachmentBatchUploader uploads a batch of files all-or-nothing.
type AttachmentBatchUploader interface {
	UploadAll(ctx context.Context, files []RawAttachment) ([]domain.Attachment, error)
}

// UploaderConfig bounds attachment batches and names the store folder.
type UploaderConfig struct {
	Folder       string
	MaxFiles     int
	MaxFileBytes int64
}

// AttachmentUploader pushes attachment batches to the store concurrently.
type AttachmentUploader struct {
	store   AttachmentStore
	cfg     UploaderConfig
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAttachmentUploader constructs the uploader. metrics may be nil.
func NewAttachmentUploader(store AttachmentStore, cfg UploaderConfig, metrics *observability.Metrics, logger *zap.Logger) *AttachmentUploader {
	if cfg.Folder == "" {
		cfg.Folder = "ticket-attachments"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentUploader{store: store, cfg: cfg, metrics: metrics, logger: logger}
}

// UploadAll uploads every file in parallel and returns the attachments in
// input order. The first failure fails the whole batch. Blobs that were
// already written stay in the store.
func (u *AttachmentUploader) UploadAll(ctx context.Context, files []RawAttachment) ([]domain.Attachment, error) {
	if len(files) == 0 {
		return []domain.Attachment{}, nil
	}
	if err := u.validate(files); err != nil {
		return nil, err
	}

	start := time.Now()
	results := make([]domain.Attachment, len(files))
	var stored atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i := range files {
		g.Go(func() error {
			att, err := u.uploadOne(gctx, files[i])
			if err != nil {
				return fmt.Errorf("upload %q: %w", files[i].Filename, err)
			}
			results[i] = att
			stored.Add(1)
			return nil
		})
	}
	err := g.Wait()

	u.metrics.ObserveUploadBatch(time.Since(start))
	u.metrics.RecordUploads("success", int(stored.Load()))
	if err != nil {
		u.metrics.RecordUploads("failure", len(files)-int(stored.Load()))
		u.logger.Warn("attachment batch failed",
			zap.Int("files", len(files)),
			zap.Int64("orphaned", stored.Load()),
			zap.Error(err))
		return nil, apperrors.NewUploadFailure(err)
	}
	return results, nil
}

func (u *AttachmentUploader) uploadOne(ctx context.Context, file RawAttachment) (domain.Attachment, error) {
	original := strings.TrimSpace(file.Filename)
	if original == "" {
		original = defaultAttachmentName
	}
	safe := storage.SafeFilename(original)
	if safe == "" {
		safe = defaultAttachmentName
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}

	key := path.Join(u.cfg.Folder, uuid.NewString()+"-"+safe)
	obj, err := u.store.Put(ctx, key, file.Data, contentType, map[string]string{
		"folder":   u.cfg.Folder,
		"filename": safe,
	})
	if err != nil {
		return domain.Attachment{}, err
	}
	return domain.Attachment{
		URL:         obj.URL,
		ExternalID:  obj.Key,
		Filename:    original,
		ContentType: contentType,
		SizeBytes:   int64(len(file.Data)),
	}, nil
}

func (u *AttachmentUploader) validate(files []RawAttachment) error {
	if u.cfg.MaxFiles > 0 && len(files) > u.cfg.MaxFiles {
		return apperrors.NewValidationError("too many attachments", map[string]any{
			"max_files": u.cfg.MaxFiles,
			"received":  len(files),
		})
	}
	if u.cfg.MaxFileBytes <= 0 {
		return nil
	}
	for _, f := range files {
		if int64(len(f.Data)) > u.cfg.MaxFileBytes {
			return apperrors.NewValidationError("attachment too large", map[string]any{
				"filename":       f.Filename,
				"max_file_bytes": u.cfg.MaxFileBytes,
			})
		}
	}
	return nil
}
