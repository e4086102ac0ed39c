package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// tempPrefix marks in-flight writes so flushes never count them.
const tempPrefix = ".flatten-"

// FileStoreConfig configures the file store.
type FileStoreConfig struct {
	// Dir is the root directory; namespaces become sub directories.
	Dir string

	// DeleteConcurrency bounds parallel file deletions during flushes.
	// Default: 8
	DeleteConcurrency int
}

// FileStore keeps one file per key below a root directory.
type FileStore struct {
	dir         string
	concurrency int
}

// NewFileStore creates a file store rooted at cfg.Dir, creating it if needed.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("cache: file store directory is required")
	}
	if cfg.DeleteConcurrency <= 0 {
		cfg.DeleteConcurrency = 8
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create store directory: %w", err)
	}
	return &FileStore{dir: cfg.Dir, concurrency: cfg.DeleteConcurrency}, nil
}

// Dir returns the root directory of the store.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

// Get reads the page stored under key. Returns (nil, false) on miss or read failure.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, ok, _ := s.lookup(ctx, key)
	return data, ok
}

// lookup is Get that reports read failures other than a missing file.
func (s *FileStore) lookup(_ context.Context, key string) ([]byte, bool, error) {
	if ValidateKey(key) != nil {
		return nil, false, nil
	}
	data, err := os.ReadFile(s.path(key))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("cache: read %s: %w", key, err)
	}
	return data, true, nil
}

// SetForever writes value to the file for key. The write goes through a
// temporary file and a rename so readers never see a partial page.
func (s *FileStore) SetForever(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	target := s.path(key)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: create namespace directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: write page: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close page: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("cache: commit page: %w", err)
	}
	return nil
}

// Delete removes the file for key. Idempotent - no error on miss.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: delete page: %w", err)
	}
	return nil
}

// DeleteMatching removes the files inside the namespace directory whose
// name contains substr. Individual failures are skipped.
func (s *FileStore) DeleteMatching(ctx context.Context, namespace, substr string) (int, error) {
	dir := filepath.Join(s.dir, filepath.FromSlash(strings.Trim(namespace, Separator)))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache: list namespace: %w", err)
	}

	var deleted atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, tempPrefix) || !strings.Contains(name, substr) {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if os.Remove(filepath.Join(dir, name)) == nil {
				deleted.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(deleted.Load()), nil
}

// Clear removes everything inside the namespace directory but keeps the
// directory itself.
func (s *FileStore) Clear(_ context.Context, namespace string) error {
	dir := filepath.Join(s.dir, filepath.FromSlash(strings.Trim(namespace, Separator)))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("cache: list namespace: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("cache: clear namespace: %w", errors.Join(errs...))
	}
	return nil
}

// Ping checks that the root directory is still present.
func (s *FileStore) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("cache: store directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cache: %s is not a directory", s.dir)
	}
	return nil
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)
