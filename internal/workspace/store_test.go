package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reorc-cli/internal/core"
)

// newTestStore creates a Store with one model project containing a few
// files, including git metadata that listings must skip.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	store := NewStore(base)

	projectDir := filepath.Join(base, "local-model-projects", "demo")
	for _, dir := range []string{
		filepath.Join(projectDir, "models"),
		filepath.Join(projectDir, ".git", "refs"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("creating %s: %v", dir, err)
		}
	}
	files := map[string]string{
		"README.md":           "hello",
		"models/orders.sql":   "select 1",
		".git/HEAD":           "ref: refs/heads/main",
		".git/refs/something": "x",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(projectDir, rel), []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
	return store, projectDir
}

func TestListFiles(t *testing.T) {
	store, _ := newTestStore(t)

	t.Run("lists project root", func(t *testing.T) {
		report, err := store.ListFiles("demo", "")
		if err != nil {
			t.Fatalf("ListFiles() error = %v", err)
		}
		if report.Path != "." {
			t.Errorf("Path = %q, want %q", report.Path, ".")
		}
		if report.TotalFiles != 1 {
			t.Errorf("TotalFiles = %d, want 1", report.TotalFiles)
		}
		if report.TotalDirectories != 1 {
			t.Errorf("TotalDirectories = %d, want 1 (.git skipped)", report.TotalDirectories)
		}
		if report.Directories[0].Name != "models" {
			t.Errorf("Directories[0].Name = %q, want %q", report.Directories[0].Name, "models")
		}
	})

	t.Run("lists subdirectory", func(t *testing.T) {
		report, err := store.ListFiles("demo", "models")
		if err != nil {
			t.Fatalf("ListFiles() error = %v", err)
		}
		if report.TotalFiles != 1 || report.Files[0].Name != "orders.sql" {
			t.Errorf("Files = %+v, want orders.sql", report.Files)
		}
		if report.Files[0].Path != filepath.Join("models", "orders.sql") {
			t.Errorf("Files[0].Path = %q, want project-relative path", report.Files[0].Path)
		}
	})

	t.Run("missing project is ErrNotFound", func(t *testing.T) {
		_, err := store.ListFiles("ghost", "")
		if !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("missing subdirectory is ErrNotFound", func(t *testing.T) {
		_, err := store.ListFiles("demo", "nope")
		if !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestReadFile(t *testing.T) {
	store, _ := newTestStore(t)

	t.Run("reads content", func(t *testing.T) {
		report, err := store.ReadFile("demo", "README.md")
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if report.Content != "hello" {
			t.Errorf("Content = %q, want %q", report.Content, "hello")
		}
		if report.Size != 5 {
			t.Errorf("Size = %d, want 5", report.Size)
		}
	})

	t.Run("missing file is ErrNotFound", func(t *testing.T) {
		_, err := store.ReadFile("demo", "absent.txt")
		if !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("directory is ErrInvalidTarget", func(t *testing.T) {
		_, err := store.ReadFile("demo", "models")
		if !errors.Is(err, core.ErrInvalidTarget) {
			t.Fatalf("error = %v, want ErrInvalidTarget", err)
		}
	})
}

func TestWriteFile(t *testing.T) {
	store, projectDir := newTestStore(t)

	t.Run("creates intermediate directories", func(t *testing.T) {
		report, err := store.WriteFile("demo", "models/staging/new.sql", []byte("select 2"))
		if err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if report.Status != "success" {
			t.Errorf("Status = %q, want success", report.Status)
		}

		got, err := os.ReadFile(filepath.Join(projectDir, "models", "staging", "new.sql"))
		if err != nil {
			t.Fatalf("reading written file: %v", err)
		}
		if string(got) != "select 2" {
			t.Errorf("content = %q, want %q", got, "select 2")
		}
	})

	t.Run("missing project is ErrNotFound", func(t *testing.T) {
		_, err := store.WriteFile("ghost", "a.txt", []byte("x"))
		if !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestDeleteFile(t *testing.T) {
	store, projectDir := newTestStore(t)

	t.Run("removes the file", func(t *testing.T) {
		if _, err := store.DeleteFile("demo", "README.md"); err != nil {
			t.Fatalf("DeleteFile() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(projectDir, "README.md")); !os.IsNotExist(err) {
			t.Error("file still exists after delete")
		}
	})

	t.Run("directory is ErrInvalidTarget", func(t *testing.T) {
		_, err := store.DeleteFile("demo", "models")
		if !errors.Is(err, core.ErrInvalidTarget) {
			t.Fatalf("error = %v, want ErrInvalidTarget", err)
		}
	})
}

func TestCountRecursive(t *testing.T) {
	_, projectDir := newTestStore(t)

	files, dirs, err := CountRecursive(projectDir)
	if err != nil {
		t.Fatalf("CountRecursive() error = %v", err)
	}
	// README.md and models/orders.sql; .git and its contents excluded.
	if files != 2 {
		t.Errorf("files = %d, want 2", files)
	}
	if dirs != 1 {
		t.Errorf("dirs = %d, want 1", dirs)
	}
}

func TestSnapshotFiles(t *testing.T) {
	_, projectDir := newTestStore(t)

	set, err := SnapshotFiles(projectDir)
	if err != nil {
		t.Fatalf("SnapshotFiles() error = %v", err)
	}
	if _, ok := set["README.md"]; !ok {
		t.Error("snapshot missing README.md")
	}
	if _, ok := set[filepath.Join("models", "orders.sql")]; !ok {
		t.Error("snapshot missing models/orders.sql")
	}
	// Unlike listings, snapshots keep git metadata.
	if _, ok := set[filepath.Join(".git", "HEAD")]; !ok {
		t.Error("snapshot missing .git/HEAD")
	}
}

func TestRoots(t *testing.T) {
	base := t.TempDir()
	store := NewStore(base)

	for name, fn := range map[string]func() (string, error){
		"local-model-projects":    store.ModelsRoot,
		"local-source-databases":  store.SourcesRoot,
		"local-semantic-projects": store.SemanticRoot,
	} {
		root, err := fn()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if filepath.Base(root) != name {
			t.Errorf("root = %q, want base name %q", root, name)
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			t.Errorf("root %s not created: %v", name, err)
		}
	}
}
