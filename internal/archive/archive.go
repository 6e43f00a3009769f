// Package archive unpacks downloaded tile-index zips.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsafePath  = errors.New("archive: entry escapes extraction directory")
	ErrNoShapefile = errors.New("archive: no shapefile found")
)

// ExtractDir is the archive path without its extension.
func ExtractDir(zipPath string) string {
	return strings.TrimSuffix(zipPath, filepath.Ext(zipPath))
}

// Extract unpacks every entry of zipPath below dir and returns the files written.
func Extract(zipPath, dir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", zipPath, err)
	}
	defer func() { _ = zr.Close() }()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, f := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return written, fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return written, err
		}
		written = append(written, target)
	}
	return written, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, rc)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return nil
}

// FindShapefile prefers <dir>/<base(dir)>.shp, else the first .shp in walk order.
func FindShapefile(dir string) (string, error) {
	preferred := filepath.Join(dir, filepath.Base(dir)+".shp")
	if st, err := os.Stat(preferred); err == nil && !st.IsDir() {
		return preferred, nil
	}

	var found string
	errStop := errors.New("stop")
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".shp") {
			found = p
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return "", fmt.Errorf("search %s: %w", dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w in %s", ErrNoShapefile, dir)
	}
	return found, nil
}
