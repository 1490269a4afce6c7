package testutil

import (
	"archive/tar"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// WriteArchive writes a tar.gz archive at path containing the given files,
// keyed by relative path inside the archive.
func WriteArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating archive file: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for name, content := range files {
		hdr := &tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing archive header for %s: %v", name, err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing archive entry %s: %v", name, err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
}

// ArchiveBytes builds a tar.gz archive in memory and returns its bytes.
func ArchiveBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	tmp, err := os.CreateTemp(t.TempDir(), "archive-*.tar.gz")
	if err != nil {
		t.Fatalf("creating temp archive: %v", err)
	}
	tmp.Close()

	WriteArchive(t, tmp.Name(), files)

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		t.Fatalf("reading temp archive: %v", err)
	}
	return data
}
