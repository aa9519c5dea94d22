package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"leakbox/internal/models"
	"leakbox/internal/storage"
)

var ErrReportNotFound = errors.New("report not found")

// Filter selects which reports List returns.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterPending Filter = "pending"
	FilterAudited Filter = "audited"
)

// ReportStore owns report records and their attachment references. Writes
// to the same report id are serialized through a per-id mutex so a
// concurrent audit and delete can never interleave; unrelated reports
// proceed in parallel.
type ReportStore struct {
	db   *gorm.DB
	blob storage.BlobStore

	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func NewReportStore(db *gorm.DB, blob storage.BlobStore) *ReportStore {
	return &ReportStore{
		db:    db,
		blob:  blob,
		locks: make(map[uint64]*sync.Mutex),
	}
}

func (s *ReportStore) lockID(id uint64) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Create inserts the report and its attachment rows in one transaction;
// the report becomes visible with all references or not at all.
func (s *ReportStore) Create(ctx context.Context, content string, attachments []models.Attachment) (*models.Report, error) {
	report := &models.Report{
		Content:     content,
		Attachments: attachments,
	}
	for i := range report.Attachments {
		report.Attachments[i].SortOrder = i
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return report, nil
}

// Get returns one report with its attachments.
func (s *ReportStore) Get(ctx context.Context, id uint64) (*models.Report, error) {
	var report models.Report
	err := s.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		First(&report, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns reports most recent first. Each call restarts from the
// requested page; no cursor is retained.
func (s *ReportStore) List(ctx context.Context, filter Filter, page, limit int) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Report{})
	switch filter {
	case FilterPending:
		query = query.Where("audited = ?", false)
	case FilterAudited:
		query = query.Where("audited = ?", true)
	case FilterAll:
	default:
		return nil, 0, fmt.Errorf("unknown filter %q", filter)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// SetAudited flips the audit flag. Setting the same value twice is
// idempotent and returns the current state.
func (s *ReportStore) SetAudited(ctx context.Context, id uint64, audited bool) (*models.Report, error) {
	unlock := s.lockID(id)
	defer unlock()

	result := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", id).
		Update("audited", audited)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Update matched no row, or matched a row already holding the
		// value. Distinguish by reading back.
		report, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return report, nil
	}
	return s.Get(ctx, id)
}

// Delete removes the report record and cascades to its attachment files.
// The record delete is transactional; file cleanup afterwards is
// best-effort, an orphaned file being a lesser harm than an undeletable
// record. The orphan sweep picks up any leftovers.
func (s *ReportStore) Delete(ctx context.Context, id uint64) error {
	unlock := s.lockID(id)
	defer unlock()

	var refs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var attachments []models.Attachment
		if err := tx.Where("report_id = ?", id).Find(&attachments).Error; err != nil {
			return err
		}
		for _, a := range attachments {
			refs = append(refs, a.Reference)
		}

		result := tx.Delete(&models.Report{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrReportNotFound
		}
		return tx.Where("report_id = ?", id).Delete(&models.Attachment{}).Error
	})
	if err != nil {
		return err
	}

	for _, ref := range refs {
		if err := s.blob.Delete(ctx, ref); err != nil {
			slog.Warn("attachment cleanup failed", "report_id", id, "reference", ref, "error", err)
		}
	}
	return nil
}

// Counts reports total and pending report counts for diagnostics.
func (s *ReportStore) Counts(ctx context.Context) (total, pending int64, err error) {
	if err = s.db.WithContext(ctx).Model(&models.Report{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = s.db.WithContext(ctx).Model(&models.Report{}).Where("audited = ?", false).Count(&pending).Error; err != nil {
		return 0, 0, err
	}
	return total, pending, nil
}

// AttachmentMeta looks up the attachment row for a stored reference.
func (s *ReportStore) AttachmentMeta(ctx context.Context, reference string) (*models.Attachment, error) {
	var attachment models.Attachment
	err := s.db.WithContext(ctx).First(&attachment, "reference = ?", reference).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

// ReferencedSet returns every attachment reference currently recorded,
// for the orphan sweep.
func (s *ReportStore) ReferencedSet(ctx context.Context) (map[string]struct{}, error) {
	var refs []string
	if err := s.db.WithContext(ctx).Model(&models.Attachment{}).Pluck("reference", &refs).Error; err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		set[r] = struct{}{}
	}
	return set, nil
}
