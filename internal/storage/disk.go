package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const createAttempts = 4

// DiskStore keeps attachments as flat files in a directory it owns
// exclusively. Names are derived from the payload hash so identical
// suggested names never collide; a uuid suffix resolves hash-prefix
// collisions between distinct uploads.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Store(ctx context.Context, payload []byte, suggestedName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sum := sha256.Sum256(payload)
	base := hex.EncodeToString(sum[:])[:20]
	ext := safeExt(suggestedName)

	name := base + ext
	for attempt := 0; attempt < createAttempts; attempt++ {
		if attempt > 0 {
			name = base + "_" + uuid.New().String()[:8] + ext
		}
		err := s.writeExclusive(name, payload)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("store attachment: %w", err)
		}
	}
	return "", fmt.Errorf("store attachment: could not find a free name for %q", suggestedName)
}

// writeExclusive creates the file atomically (O_EXCL) and fsyncs it so
// the payload is durable before the reference is handed out.
func (s *DiskStore) writeExclusive(name string, payload []byte) error {
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	return f.Close()
}

func (s *DiskStore) Delete(ctx context.Context, reference string) error {
	if err := validateReference(reference); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, reference))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete attachment %s: %w", reference, err)
	}
	return nil
}

func (s *DiskStore) Retrieve(ctx context.Context, reference string) ([]byte, error) {
	if err := validateReference(reference); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, reference))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve attachment %s: %w", reference, err)
	}
	return data, nil
}

func (s *DiskStore) ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list uploads dir: %w", err)
	}
	var refs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			refs = append(refs, e.Name())
		}
	}
	return refs, nil
}

// validateReference rejects anything that could escape the uploads dir.
func validateReference(reference string) error {
	if reference == "" ||
		strings.ContainsAny(reference, "/\\") ||
		strings.Contains(reference, "..") {
		return ErrNotFound
	}
	return nil
}

// safeExt extracts a filename extension safe to embed in a reference.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
