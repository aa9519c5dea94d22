package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"leakbox/internal/models"
	"leakbox/internal/storage"
)

// setupTestStore creates a ReportStore backed by a temporary SQLite DB
// and a disk blob store.
func setupTestStore(t *testing.T) (*ReportStore, storage.BlobStore, context.Context) {
	t.Helper()

	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(dir+"/test.db?_busy_timeout=3000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Report{}, &models.Attachment{}))

	blob, err := storage.NewDiskStore(dir + "/uploads")
	require.NoError(t, err)

	return NewReportStore(db, blob), blob, context.Background()
}

func createWithFiles(t *testing.T, s *ReportStore, blob storage.BlobStore, ctx context.Context, content string, files int) *models.Report {
	t.Helper()

	var attachments []models.Attachment
	for i := 0; i < files; i++ {
		payload := []byte(fmt.Sprintf("%s file %d", content, i))
		ref, err := blob.Store(ctx, payload, fmt.Sprintf("file%d.bin", i))
		require.NoError(t, err)
		attachments = append(attachments, models.Attachment{
			Reference: ref,
			FileName:  fmt.Sprintf("file%d.bin", i),
			Size:      int64(len(payload)),
		})
	}

	report, err := s.Create(ctx, content, attachments)
	require.NoError(t, err)
	return report
}

func TestCreateDefaults(t *testing.T) {
	s, blob, ctx := setupTestStore(t)

	report := createWithFiles(t, s, blob, ctx, "leak A", 2)
	assert.NotZero(t, report.ID)
	assert.False(t, report.Audited)
	assert.Len(t, report.Attachments, 2)

	got, err := s.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "leak A", got.Content)
	assert.Len(t, got.Attachments, 2)
	assert.Equal(t, 0, got.Attachments[0].SortOrder)
	assert.Equal(t, 1, got.Attachments[1].SortOrder)
}

func TestListFiltersAndOrder(t *testing.T) {
	s, blob, ctx := setupTestStore(t)

	first := createWithFiles(t, s, blob, ctx, "first", 0)
	second := createWithFiles(t, s, blob, ctx, "second", 0)
	_, err := s.SetAudited(ctx, first.ID, true)
	require.NoError(t, err)

	all, total, err := s.List(ctx, FilterAll, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, all, 2)
	// Most recent first; ties on created_at fall back to id.
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	pending, total, err := s.List(ctx, FilterPending, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	audited, total, err := s.List(ctx, FilterAudited, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, audited, 1)
	assert.Equal(t, first.ID, audited[0].ID)
}

func TestListPagination(t *testing.T) {
	s, blob, ctx := setupTestStore(t)

	for i := 0; i < 5; i++ {
		createWithFiles(t, s, blob, ctx, fmt.Sprintf("report %d", i), 0)
	}

	page1, total, err := s.List(ctx, FilterAll, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page1, 2)

	page3, _, err := s.List(ctx, FilterAll, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestSetAuditedIdempotent(t *testing.T) {
	s, blob, ctx := setupTestStore(t)
	report := createWithFiles(t, s, blob, ctx, "toggle me", 0)

	got, err := s.SetAudited(ctx, report.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Audited)

	// Second call with the same flag returns the same state, no error.
	got, err = s.SetAudited(ctx, report.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Audited)

	got, err = s.SetAudited(ctx, report.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Audited)
}

func TestSetAuditedNotFound(t *testing.T) {
	s, blob, ctx := setupTestStore(t)
	createWithFiles(t, s, blob, ctx, "only one", 0)

	_, err := s.SetAudited(ctx, 9999, true)
	assert.ErrorIs(t, err, ErrReportNotFound)

	// Store unchanged.
	_, total, err := s.List(ctx, FilterAll, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestDeleteCascadesToFiles(t *testing.T) {
	s, blob, ctx := setupTestStore(t)
	report := createWithFiles(t, s, blob, ctx, "doomed", 3)

	var refs []string
	for _, a := range report.Attachments {
		refs = append(refs, a.Reference)
	}

	require.NoError(t, s.Delete(ctx, report.ID))

	_, err := s.Get(ctx, report.ID)
	assert.ErrorIs(t, err, ErrReportNotFound)

	_, total, err := s.List(ctx, FilterAll, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	for _, ref := range refs {
		_, err := blob.Retrieve(ctx, ref)
		assert.ErrorIs(t, err, storage.ErrNotFound, "reference %s should be gone", ref)
	}
}

func TestDeleteNotFound(t *testing.T) {
	s, _, ctx := setupTestStore(t)
	assert.ErrorIs(t, s.Delete(ctx, 42), ErrReportNotFound)
}

func TestConcurrentAuditAndDelete(t *testing.T) {
	s, blob, ctx := setupTestStore(t)
	report := createWithFiles(t, s, blob, ctx, "contested", 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.SetAudited(ctx, report.ID, true)
	}()
	go func() {
		defer wg.Done()
		s.Delete(ctx, report.ID)
	}()
	wg.Wait()

	// The final state is either "audited, present" or "absent"; never a
	// half-deleted record.
	got, err := s.Get(ctx, report.ID)
	if err == nil {
		assert.True(t, got.Audited)
		assert.Len(t, got.Attachments, 1)
	} else {
		assert.ErrorIs(t, err, ErrReportNotFound)
		refs, listErr := blob.ListOlderThan(ctx, time.Now().Add(time.Hour))
		require.NoError(t, listErr)
		assert.Empty(t, refs)
	}
}

func TestCountsAndReferencedSet(t *testing.T) {
	s, blob, ctx := setupTestStore(t)

	a := createWithFiles(t, s, blob, ctx, "a", 1)
	createWithFiles(t, s, blob, ctx, "b", 2)
	_, err := s.SetAudited(ctx, a.ID, true)
	require.NoError(t, err)

	total, pending, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.EqualValues(t, 1, pending)

	set, err := s.ReferencedSet(ctx)
	require.NoError(t, err)
	assert.Len(t, set, 3)
}
