package mirror

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultLockTimeout is the default timeout for acquiring the destination lock.
const DefaultLockTimeout = 5 * time.Second

// lockFileName is created in the mirror root while a sync runs.
const lockFileName = ".dell-catalog-mirror.lock"

// partSuffix is appended to files being downloaded.
const partSuffix = ".part"

// storageInterface defines operations on the mirror directory.
// Implemented by *storage for production; tests substitute their own.
type storageInterface interface {
	// root returns the mirror root directory.
	root() string

	// resolve maps a slash separated catalog path to a file below root.
	// Returns false if the path is empty or escapes root.
	resolve(catalogPath string) (string, bool)

	// managedFiles returns every file below root that is not directly in root,
	// keyed by pathKey and mapped to its path as found on disk.
	managedFiles() (map[string]string, error)

	// hashFile returns the MD5 hex digest of a file.
	hashFile(path string) (string, error)

	// ensureDir creates a directory and all parent directories if they don't exist.
	ensureDir(path string) error

	// writeStream copies r into path through a temporary file and returns
	// the MD5 digest and size of the data written.
	writeStream(path string, r io.Reader) (string, int64, error)

	// atomicWrite writes data to a file using write-then-rename for atomicity.
	atomicWrite(path string, data []byte) error

	// remove deletes a single file.
	remove(path string) error

	// removeEmptyDirs deletes empty directories below root.
	removeEmptyDirs() error
}

// storage handles all filesystem operations on a mirror root.
// Implements storageInterface.
type storage struct {
	// baseDir is the mirror root.
	baseDir string
}

// Ensure storage implements storageInterface.
var _ storageInterface = (*storage)(nil)

// newStorage returns storage rooted at dir, which must be an existing directory.
func newStorage(dir string) (*storage, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDestinationMissing, dir)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageError, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDestinationMissing, dir)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageError, err)
	}
	return &storage{baseDir: abs}, nil
}

func (s *storage) root() string {
	return s.baseDir
}

func (s *storage) resolve(catalogPath string) (string, bool) {
	rel := filepath.FromSlash(strings.TrimLeft(catalogPath, "/"))
	if rel == "" || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.Join(s.baseDir, rel), true
}

func (s *storage) managedFiles() (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Dir(path) == s.baseDir {
			return nil
		}
		files[pathKey(path)] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %v", ErrStorageError, s.baseDir, err)
	}
	return files, nil
}

func (s *storage) hashFile(path string) (string, error) {
	sum, err := fileMD5(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageError, err)
	}
	return sum, nil
}

func (s *storage) ensureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %v", ErrStorageError, path, err)
	}
	return nil
}

func (s *storage) writeStream(path string, r io.Reader) (string, int64, error) {
	if err := s.ensureDir(filepath.Dir(path)); err != nil {
		return "", 0, err
	}

	tmp := path + partSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrStorageError, err)
	}

	h := md5.New()
	n, copyErr := io.Copy(io.MultiWriter(f, h), r)
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(tmp)
		return "", n, copyErr
	}
	if closeErr != nil {
		os.Remove(tmp)
		return "", n, fmt.Errorf("%w: %v", ErrStorageError, closeErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", n, fmt.Errorf("%w: failed to rename temp file: %v", ErrStorageError, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func (s *storage) atomicWrite(path string, data []byte) error {
	if err := s.ensureDir(filepath.Dir(path)); err != nil {
		return err
	}

	// Write to temp file first
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write temp file: %v", ErrStorageError, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to rename temp file: %v", ErrStorageError, err)
	}
	return nil
}

func (s *storage) remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStorageError, err)
	}
	return nil
}

// removeEmptyDirs removes empty directories below the root, deepest first.
// The root itself is never removed.
func (s *storage) removeEmptyDirs() error {
	var dirs []string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != s.baseDir {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageError, err)
	}

	// Longer paths first so children go before their parents.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		os.Remove(dir)
	}
	return nil
}
