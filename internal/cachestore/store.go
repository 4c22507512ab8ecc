package cachestore

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/y0sshi/conveyor/internal/ctxlog"
)

// Store is a directory of cache entries, one gzip tarball per key.
type Store struct {
	root string
}

// New creates a store rooted at the given directory. The directory is
// created lazily on the first save.
func New(root string) *Store {
	return &Store{root: root}
}

// entryPath returns the archive path for a key.
func (s *Store) entryPath(key string) string {
	return filepath.Join(s.root, key+".tar.gz")
}

// Save archives the given path prefixes (resolved relative to baseDir) under
// the key. The archive is written to a temporary file and renamed into place,
// so readers never observe a partial entry. Prefixes that do not exist are
// skipped; saving an entry that archives nothing is still a valid (empty)
// entry.
func (s *Store) Save(ctx context.Context, key, baseDir string, paths []string) error {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating cache root: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, key+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp cache entry: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	gz := gzip.NewWriter(tmp)
	tw := tar.NewWriter(gz)

	for _, prefix := range paths {
		absPrefix := filepath.Join(baseDir, prefix)
		if _, err := os.Lstat(absPrefix); errors.Is(err, fs.ErrNotExist) {
			logger.Debug("Cache path prefix missing, skipping.", "prefix", prefix)
			continue
		}
		if err := addTree(tw, baseDir, absPrefix); err != nil {
			return fmt.Errorf("archiving %q: %w", prefix, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("finishing compression: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp cache entry: %w", err)
	}

	if err := os.Rename(tmpName, s.entryPath(key)); err != nil {
		return fmt.Errorf("committing cache entry: %w", err)
	}
	committed = true
	logger.Debug("Cache entry saved.", "key", key, "prefixes", len(paths))
	return nil
}

// Restore unpacks the entry for key into destDir. A missing entry is not an
// error: it reports a miss and restores nothing.
func (s *Store) Restore(ctx context.Context, key, destDir string) (bool, error) {
	logger := ctxlog.FromContext(ctx)

	f, err := os.Open(s.entryPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("Cache miss.", "key", key)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("opening cache entry: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return false, fmt.Errorf("reading cache entry: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	restored := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, fmt.Errorf("reading archive: %w", err)
		}
		if err := extractEntry(tr, hdr, destDir); err != nil {
			return false, err
		}
		restored++
	}

	logger.Debug("Cache entry restored.", "key", key, "entries", restored)
	return true, nil
}

// addTree writes the file tree rooted at absPath into the archive, with
// names relative to baseDir.
func addTree(tw *tar.Writer, baseDir, absPath string) error {
	return filepath.Walk(absPath, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}

// extractEntry writes one archive entry under destDir, rejecting names that
// would escape it.
func extractEntry(tr *tar.Reader, hdr *tar.Header, destDir string) error {
	name := filepath.FromSlash(hdr.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("archive entry %q escapes the restore directory", hdr.Name)
	}
	target := filepath.Join(destDir, name)

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, fs.FileMode(hdr.Mode)&fs.ModePerm)
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		_ = os.Remove(target)
		return os.Symlink(hdr.Linkname, target)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(hdr.Mode)&fs.ModePerm)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		// Device nodes and the like have no business in a build cache.
		return nil
	}
}
