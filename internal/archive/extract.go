// Package archive extracts the tar.gz project archives served by the MCP
// download endpoints.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"reorc-cli/internal/core"
)

// ExtractTo unpacks the tar.gz archive at archivePath into destDir,
// creating destDir if needed. Entries that would escape destDir are
// rejected. A truncated or malformed archive is reported as
// ErrArchiveCorrupt.
func ExtractTo(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrArchiveCorrupt, err)
	}
	defer gz.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", destDir, err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrArchiveCorrupt, err)
		}

		target, err := securePath(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// Symlinks, devices and the rest are not part of project
			// archives; skip rather than fail.
			continue
		}
	}
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", target, err)
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("%w: writing %s: %v", core.ErrArchiveCorrupt, target, err)
	}
	return f.Close()
}

// securePath resolves an archive entry name under destDir and rejects
// entries that would land outside it.
func securePath(destDir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: absolute entry path %q", core.ErrArchiveCorrupt, name)
	}
	target := filepath.Join(destDir, filepath.Clean(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: entry path %q escapes archive root", core.ErrArchiveCorrupt, name)
	}
	return target, nil
}

// IsCorrupt reports whether err indicates a damaged archive.
func IsCorrupt(err error) bool {
	return errors.Is(err, core.ErrArchiveCorrupt)
}
