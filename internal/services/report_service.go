package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"leakbox/internal/metrics"
	"leakbox/internal/models"
	"leakbox/internal/storage"
	"leakbox/internal/store"
)

var (
	ErrEmptyContent       = errors.New("content is required")
	ErrContentTooLong     = errors.New("content exceeds the maximum length")
	ErrEmptyAttachment    = errors.New("attachment is empty")
	ErrAttachmentTooLarge = errors.New("attachment exceeds the maximum size")
)

// IsValidationError reports whether err is a submit validation failure,
// as opposed to a storage failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrContentTooLong) ||
		errors.Is(err, ErrEmptyAttachment) ||
		errors.Is(err, ErrAttachmentTooLarge)
}

// Upload is one file payload attached to a submission.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ReportService orchestrates submit, audit and delete. Credential checks
// happen in middleware before any of these run, so every method here may
// assume the caller is authorized.
type ReportService struct {
	reports *store.ReportStore
	blob    storage.BlobStore

	maxContentLength  int
	maxAttachmentSize int64
}

func NewReportService(reports *store.ReportStore, blob storage.BlobStore, maxContentLength int, maxAttachmentSize int64) *ReportService {
	return &ReportService{
		reports:           reports,
		blob:              blob,
		maxContentLength:  maxContentLength,
		maxAttachmentSize: maxAttachmentSize,
	}
}

// Submit validates the report, stores every attachment, then creates the
// record. All-or-nothing: if any attachment write fails, files already
// stored for this submission are rolled back and no report exists.
func (s *ReportService) Submit(ctx context.Context, content string, uploads []Upload) (*models.Report, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > s.maxContentLength {
		return nil, ErrContentTooLong
	}
	for _, u := range uploads {
		if len(u.Data) == 0 {
			return nil, ErrEmptyAttachment
		}
		if int64(len(u.Data)) > s.maxAttachmentSize {
			return nil, ErrAttachmentTooLarge
		}
	}

	// Attachment writes for one submission may run in parallel; the
	// report row is only created once all of them are durable.
	attachments := make([]models.Attachment, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range uploads {
		g.Go(func() error {
			ref, err := s.blob.Store(gctx, u.Data, u.FileName)
			if err != nil {
				return err
			}
			sum := sha256.Sum256(u.Data)
			attachments[i] = models.Attachment{
				Reference:   ref,
				FileName:    u.FileName,
				ContentType: u.ContentType,
				Size:        int64(len(u.Data)),
				SHA256:      hex.EncodeToString(sum[:]),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.rollbackUploads(attachments)
		return nil, err
	}

	report, err := s.reports.Create(ctx, content, attachments)
	if err != nil {
		s.rollbackUploads(attachments)
		return nil, err
	}

	metrics.ReportsSubmitted.Inc()
	metrics.AttachmentsStored.Add(float64(len(attachments)))
	return report, nil
}

// rollbackUploads removes files stored for a submission that did not
// complete. Failures are logged; the orphan sweep is the backstop.
func (s *ReportService) rollbackUploads(attachments []models.Attachment) {
	for _, a := range attachments {
		if a.Reference == "" {
			continue
		}
		if err := s.blob.Delete(context.Background(), a.Reference); err != nil {
			slog.Warn("submit rollback failed", "reference", a.Reference, "error", err)
		}
	}
}

func (s *ReportService) Audit(ctx context.Context, id uint64, audited bool) (*models.Report, error) {
	report, err := s.reports.SetAudited(ctx, id, audited)
	if err != nil {
		return nil, err
	}
	metrics.ReportsAudited.Inc()
	return report, nil
}

func (s *ReportService) Delete(ctx context.Context, id uint64) error {
	if err := s.reports.Delete(ctx, id); err != nil {
		return err
	}
	metrics.ReportsDeleted.Inc()
	return nil
}

func (s *ReportService) List(ctx context.Context, filter store.Filter, page, limit int) ([]models.Report, int64, error) {
	return s.reports.List(ctx, filter, page, limit)
}

// Attachment resolves a stored file for direct-link rendering, returning
// the payload plus the content type recorded at submission.
func (s *ReportService) Attachment(ctx context.Context, reference string) ([]byte, string, error) {
	data, err := s.blob.Retrieve(ctx, reference)
	if err != nil {
		return nil, "", err
	}
	contentType := "application/octet-stream"
	if meta, err := s.reports.AttachmentMeta(ctx, reference); err == nil && meta.ContentType != "" {
		contentType = meta.ContentType
	}
	return data, contentType, nil
}
