package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileKV stores each key as `<dir>/<key>.json`. Writes go through a temp
// file and rename so a single key is never observed half-written.
type FileKV struct {
	dir string
}

// NewFileKV returns a backend rooted at dir. The directory is created on the
// first write.
func NewFileKV(dir string) *FileKV {
	return &FileKV{dir: strings.TrimSpace(dir)}
}

// Dir reports the backing directory.
func (f *FileKV) Dir() string {
	return f.dir
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Get reads the file for key.
func (f *FileKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put writes entries in sorted key order so `groups` lands before
// `selectedGroup`.
func (f *FileKV) Put(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.dir == "" {
		return errors.New("storage: file backend directory is empty")
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("storage: create %s: %w", f.dir, err)
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := entries[key]
		if value == nil {
			if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("storage: remove %s: %w", key, err)
			}
			continue
		}
		if err := writeAtomic(f.dir, f.path(key), value); err != nil {
			return fmt.Errorf("storage: write %s: %w", key, err)
		}
	}
	return nil
}

func writeAtomic(dir, target string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".formbuilder-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
