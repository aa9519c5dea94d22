package services

import (
	"context"
	"log/slog"
	"time"

	"leakbox/internal/storage"
	"leakbox/internal/store"
)

// StartSweep runs a goroutine that periodically removes stored files no
// report references. Files younger than grace are left alone so an
// in-flight submission is never swept between storing its attachments
// and creating the record.
func StartSweep(reports *store.ReportStore, blob storage.BlobStore, interval, grace time.Duration, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sweepOnce(reports, blob, grace)
			case <-done:
				return
			}
		}
	}()
}

func sweepOnce(reports *store.ReportStore, blob storage.BlobStore, grace time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	candidates, err := blob.ListOlderThan(ctx, time.Now().Add(-grace))
	if err != nil {
		slog.Error("orphan sweep failed to list files", "error", err)
		return
	}
	if len(candidates) == 0 {
		return
	}

	referenced, err := reports.ReferencedSet(ctx)
	if err != nil {
		slog.Error("orphan sweep failed to load references", "error", err)
		return
	}

	var removed int
	for _, ref := range candidates {
		if _, ok := referenced[ref]; ok {
			continue
		}
		if err := blob.Delete(ctx, ref); err != nil {
			slog.Warn("orphan sweep delete failed", "reference", ref, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("orphan sweep completed", "removed", removed)
	}
}
