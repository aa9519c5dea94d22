package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"leakbox/internal/models"
	"leakbox/internal/storage"
	"leakbox/internal/store"
)

func setupTestService(t *testing.T) (*ReportService, *store.ReportStore, *storage.DiskStore, context.Context) {
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

	reports := store.NewReportStore(db, blob)
	svc := NewReportService(reports, blob, 2000, 5<<20)
	return svc, reports, blob, context.Background()
}

func TestSubmit(t *testing.T) {
	svc, _, blob, ctx := setupTestService(t)

	uploads := []Upload{
		{FileName: "one.png", ContentType: "image/png", Data: []byte("png bytes")},
		{FileName: "two.txt", ContentType: "text/plain", Data: []byte("text bytes")},
	}
	report, err := svc.Submit(ctx, "leak A", uploads)
	require.NoError(t, err)

	assert.False(t, report.Audited)
	require.Len(t, report.Attachments, len(uploads))
	assert.Equal(t, "one.png", report.Attachments[0].FileName)
	assert.Len(t, report.Attachments[0].SHA256, 64)

	for _, a := range report.Attachments {
		data, err := blob.Retrieve(ctx, a.Reference)
		require.NoError(t, err)
		assert.EqualValues(t, len(data), a.Size)
	}
}

func TestSubmitNoAttachments(t *testing.T) {
	svc, _, _, ctx := setupTestService(t)

	report, err := svc.Submit(ctx, "text only", nil)
	require.NoError(t, err)
	assert.False(t, report.Audited)
	assert.Empty(t, report.Attachments)
}

func TestSubmitValidation(t *testing.T) {
	svc, reports, blob, ctx := setupTestService(t)

	tests := []struct {
		name    string
		content string
		uploads []Upload
		wantErr error
	}{
		{name: "empty content", content: "", wantErr: ErrEmptyContent},
		{name: "whitespace content", content: "   \n ", wantErr: ErrEmptyContent},
		{name: "oversized content", content: strings.Repeat("x", 2001), wantErr: ErrContentTooLong},
		{
			name:    "empty attachment",
			content: "ok",
			uploads: []Upload{{FileName: "empty.bin"}},
			wantErr: ErrEmptyAttachment,
		},
		{
			name:    "oversized attachment",
			content: "ok",
			uploads: []Upload{{FileName: "big.bin", Data: make([]byte, 5<<20+1)}},
			wantErr: ErrAttachmentTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tt.content, tt.uploads)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}

	// Rejected submissions must leave both stores untouched.
	_, total, err := reports.List(ctx, store.FilterAll, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	refs, err := blob.ListOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, refs)
}

// failingBlobStore wraps a real store but fails the Nth Store call.
// Store runs concurrently within a submission, so the counter is atomic.
type failingBlobStore struct {
	storage.BlobStore
	failAt int32
	calls  atomic.Int32
}

func (f *failingBlobStore) Store(ctx context.Context, payload []byte, suggestedName string) (string, error) {
	if f.calls.Add(1) == f.failAt {
		return "", errors.New("disk full")
	}
	return f.BlobStore.Store(ctx, payload, suggestedName)
}

func TestSubmitRollsBackOnPartialFailure(t *testing.T) {
	_, reports, blob, ctx := setupTestService(t)

	failing := &failingBlobStore{BlobStore: blob, failAt: 3}
	svc := NewReportService(reports, failing, 2000, 5<<20)

	uploads := []Upload{
		{FileName: "a.bin", Data: []byte("aaa")},
		{FileName: "b.bin", Data: []byte("bbb")},
		{FileName: "c.bin", Data: []byte("ccc")},
	}
	_, err := svc.Submit(ctx, "partial", uploads)
	require.Error(t, err)
	assert.False(t, IsValidationError(err))

	// No report row, and every file stored before the failure was
	// rolled back.
	_, total, err := reports.List(ctx, store.FilterAll, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	refs, err := blob.ListOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestAuditAndDelete(t *testing.T) {
	svc, _, _, ctx := setupTestService(t)

	report, err := svc.Submit(ctx, "leak A", []Upload{{FileName: "img.png", Data: []byte("10kb-ish")}})
	require.NoError(t, err)
	ref := report.Attachments[0].Reference

	audited, err := svc.Audit(ctx, report.ID, true)
	require.NoError(t, err)
	assert.True(t, audited.Audited)
	require.Len(t, audited.Attachments, 1)
	assert.Equal(t, ref, audited.Attachments[0].Reference)

	require.NoError(t, svc.Delete(ctx, report.ID))

	_, total, err := svc.List(ctx, store.FilterAll, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	_, _, err = svc.Attachment(ctx, ref)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAuditUnknownID(t *testing.T) {
	svc, _, _, ctx := setupTestService(t)

	_, err := svc.Audit(ctx, 123, true)
	assert.ErrorIs(t, err, store.ErrReportNotFound)
}

func TestAttachmentContentType(t *testing.T) {
	svc, _, _, ctx := setupTestService(t)

	report, err := svc.Submit(ctx, "typed", []Upload{
		{FileName: "img.png", ContentType: "image/png", Data: []byte("bytes")},
	})
	require.NoError(t, err)

	data, contentType, err := svc.Attachment(ctx, report.Attachments[0].Reference)
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestSweepRemovesOnlyOldOrphans(t *testing.T) {
	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(dir+"/test.db?_busy_timeout=3000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Report{}, &models.Attachment{}))

	uploadsDir := filepath.Join(dir, "uploads")
	blob, err := storage.NewDiskStore(uploadsDir)
	require.NoError(t, err)
	reports := store.NewReportStore(db, blob)
	svc := NewReportService(reports, blob, 2000, 5<<20)
	ctx := context.Background()

	report, err := svc.Submit(ctx, "keep me", []Upload{{FileName: "kept.bin", Data: []byte("kept")}})
	require.NoError(t, err)
	keptRef := report.Attachments[0].Reference

	// Simulate a submission aborted after storing its file.
	orphanRef, err := blob.Store(ctx, []byte("orphan"), "orphan.bin")
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(uploadsDir, keptRef), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(uploadsDir, orphanRef), past, past))

	// A file younger than the grace period stays even when unreferenced.
	freshRef, err := blob.Store(ctx, []byte("fresh"), "fresh.bin")
	require.NoError(t, err)

	sweepOnce(reports, blob, 30*time.Minute)

	_, err = blob.Retrieve(ctx, keptRef)
	assert.NoError(t, err, "referenced file must survive the sweep")
	_, err = blob.Retrieve(ctx, freshRef)
	assert.NoError(t, err, "fresh file must survive the sweep")
	_, err = blob.Retrieve(ctx, orphanRef)
	assert.ErrorIs(t, err, storage.ErrNotFound, "old orphan must be swept")
}
