package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fsnotify/fsnotify"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// FileKV stores one file per key under dir, written atomically with 0600
// permissions.
type FileKV struct {
	dir string
}

// NewFileKV returns a FileKV rooted at dir, creating it if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store.NewFileKV: create %s: %w", dir, err)
	}
	return &FileKV{dir: dir}, nil
}

// Path returns the file backing key.
func (f *FileKV) Path(key string) string {
	name := strings.Trim(unsafeKeyChars.ReplaceAllString(key, "_"), "_")
	if name == "" {
		name = "default"
	}
	return filepath.Join(f.dir, name+".json")
}

// Get implements KV.
func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Set implements KV. The value is written to a temp file and renamed into
// place so readers never observe a partial write.
func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	path := f.Path(key)
	tmp, err := os.CreateTemp(f.dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(value); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("chmod %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// Delete implements KV.
func (f *FileKV) Delete(_ context.Context, key string) error {
	err := os.Remove(f.Path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Watch implements Watcher using fsnotify on the store directory, so that a
// logout or login performed by another process is noticed.
func (f *FileKV) Watch(ctx context.Context, key string, fn func(Change)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("store.Watch: %w", err)
	}
	if err := w.Add(f.dir); err != nil {
		w.Close() //nolint:errcheck
		return fmt.Errorf("store.Watch: %w", err)
	}

	target := f.Path(key)
	go func() {
		defer w.Close() //nolint:errcheck
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				_, statErr := os.Stat(target)
				fn(Change{Key: key, Deleted: errors.Is(statErr, fs.ErrNotExist)})
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Close implements KV.
func (f *FileKV) Close() error { return nil }
