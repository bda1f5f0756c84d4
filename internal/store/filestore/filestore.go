// Package filestore keeps each record in its own JSON file under a data
// directory, e.g. data/admin.json and data/users/alice.json.
package filestore

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kimhsiao/photolib/backend/internal/store"
)

const (
	ext       = ".json"
	tmpPrefix = ".tmp-"
)

// Backend is a store.Backend over a directory tree.
type Backend struct {
	// Base directory holding all record files
	baseDir string
}

// New creates the base directory if needed and returns a Backend over it.
func New(baseDir string) (*Backend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Backend{baseDir: baseDir}, nil
}

// Dir returns the base directory.
func (b *Backend) Dir() string {
	return b.baseDir
}

// Path returns the file that holds key. A key "ns/name" maps to
// <base>/ns/<escaped name>.json; the name is path-escaped as a whole so a
// username can never leave its directory.
func (b *Backend) Path(key string) string {
	ns, name, found := strings.Cut(key, "/")
	if !found {
		return filepath.Join(b.baseDir, url.PathEscape(key)+ext)
	}
	return filepath.Join(b.baseDir, url.PathEscape(ns), url.PathEscape(name)+ext)
}

// Get reads the record for key.
func (b *Backend) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(b.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.NotFound(key)
		}
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	return data, nil
}

// Put writes data to a temp file beside the target, syncs it, then renames
// it into place so a crash never leaves a partial record.
func (b *Backend) Put(key string, data []byte) error {
	target := b.Path(key)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to move record into place: %w", err)
	}
	committed = true
	return nil
}

// Delete removes the record for key.
func (b *Backend) Delete(key string) error {
	if err := os.Remove(b.Path(key)); err != nil {
		if os.IsNotExist(err) {
			return store.NotFound(key)
		}
		return fmt.Errorf("failed to delete record file: %w", err)
	}
	return nil
}

// Keys lists every stored key starting with prefix. Leftover temp files
// are ignored.
func (b *Backend) Keys(prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(b.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || strings.HasPrefix(name, tmpPrefix) || !strings.HasSuffix(name, ext) {
			return nil
		}

		rel, err := filepath.Rel(b.baseDir, path)
		if err != nil {
			return err
		}
		segments := strings.Split(filepath.ToSlash(strings.TrimSuffix(rel, ext)), "/")
		if len(segments) > 2 {
			return nil
		}
		for i, seg := range segments {
			unescaped, err := url.PathUnescape(seg)
			if err != nil {
				return nil
			}
			segments[i] = unescaped
		}

		key := strings.Join(segments, "/")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return keys, nil
}

// Close is a no-op; files are closed after every operation.
func (b *Backend) Close() error {
	return nil
}
