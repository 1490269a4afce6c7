// Package workspace owns the three local roots that hold per-project
// working copies: model projects, source-database catalogs and semantic
// projects. Roots are created lazily on first use; every file operation is
// scoped under a root plus a project code.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"reorc-cli/internal/core"
)

const (
	modelsDirName   = "local-model-projects"
	sourcesDirName  = "local-source-databases"
	semanticDirName = "local-semantic-projects"

	// gitDirName is excluded from listings and recursive counts.
	gitDirName = ".git"
)

// Store provides file access scoped to the local workspace roots.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir (usually ".").
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// ModelsRoot returns the absolute path of the model-projects root,
// creating it if absent.
func (s *Store) ModelsRoot() (string, error) {
	return s.ensureRoot(modelsDirName)
}

// SourcesRoot returns the absolute path of the source-databases root,
// creating it if absent.
func (s *Store) SourcesRoot() (string, error) {
	return s.ensureRoot(sourcesDirName)
}

// SemanticRoot returns the absolute path of the semantic-projects root,
// creating it if absent.
func (s *Store) SemanticRoot() (string, error) {
	return s.ensureRoot(semanticDirName)
}

func (s *Store) ensureRoot(name string) (string, error) {
	root := filepath.Join(s.baseDir, name)
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", name, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", name, err)
	}
	return abs, nil
}

// ProjectDir returns the model-project directory for a project code.
// The directory itself is not created.
func (s *Store) ProjectDir(projectCode string) (string, error) {
	root, err := s.ModelsRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, projectCode), nil
}

// FileEntry describes one file in a listing.
type FileEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// DirEntry describes one directory in a listing.
type DirEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// ListReport is the result of listing a project directory.
type ListReport struct {
	ProjectCode      string      `json:"project_code"`
	Path             string      `json:"path"`
	Files            []FileEntry `json:"files"`
	Directories      []DirEntry  `json:"directories"`
	TotalFiles       int         `json:"total_files"`
	TotalDirectories int         `json:"total_directories"`
}

// ListFiles lists the immediate contents of a project directory, or of a
// subdirectory within it. The .git directory is skipped. Returns
// ErrNotFound when the project or subdirectory is absent.
func (s *Store) ListFiles(projectCode, directoryPath string) (*ListReport, error) {
	basePath, err := s.ProjectDir(projectCode)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(basePath); err != nil {
		return nil, fmt.Errorf("%w: project directory %s", core.ErrNotFound, basePath)
	}

	targetPath := basePath
	if directoryPath != "" {
		targetPath = filepath.Join(basePath, directoryPath)
		if _, err := os.Stat(targetPath); err != nil {
			return nil, fmt.Errorf("%w: directory %s", core.ErrNotFound, directoryPath)
		}
	}

	entries, err := os.ReadDir(targetPath)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", targetPath, err)
	}

	report := &ListReport{
		ProjectCode: projectCode,
		Path:        directoryPath,
		Files:       []FileEntry{},
		Directories: []DirEntry{},
	}
	if report.Path == "" {
		report.Path = "."
	}

	for _, entry := range entries {
		rel, err := filepath.Rel(basePath, filepath.Join(targetPath, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("resolving relative path: %w", err)
		}

		if entry.IsDir() {
			if entry.Name() == gitDirName {
				continue
			}
			report.Directories = append(report.Directories, DirEntry{
				Name: entry.Name(),
				Path: rel,
				Type: "directory",
			})
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		report.Files = append(report.Files, FileEntry{
			Name: entry.Name(),
			Path: rel,
			Type: "file",
			Size: info.Size(),
		})
	}

	report.TotalFiles = len(report.Files)
	report.TotalDirectories = len(report.Directories)
	return report, nil
}

// ReadReport is the result of reading one project file.
type ReadReport struct {
	ProjectCode string `json:"project_code"`
	FilePath    string `json:"file_path"`
	Content     string `json:"content"`
	Size        int64  `json:"size"`
}

// ReadFile reads a file from a project directory. Returns ErrNotFound when
// the project or file is absent and ErrInvalidTarget when the path is a
// directory.
func (s *Store) ReadFile(projectCode, filePath string) (*ReadReport, error) {
	fullPath, err := s.resolveExisting(projectCode, filePath)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}

	return &ReadReport{
		ProjectCode: projectCode,
		FilePath:    filePath,
		Content:     string(content),
		Size:        int64(len(content)),
	}, nil
}

// WriteReport is the result of a write or delete.
type WriteReport struct {
	ProjectCode string `json:"project_code"`
	FilePath    string `json:"file_path"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

// WriteFile writes content to a file in a project directory, creating
// intermediate directories as needed. Only the project root itself must
// already exist.
func (s *Store) WriteFile(projectCode, filePath string, content []byte) (*WriteReport, error) {
	basePath, err := s.ProjectDir(projectCode)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(basePath); err != nil {
		return nil, fmt.Errorf("%w: project directory %s", core.ErrNotFound, basePath)
	}

	fullPath := filepath.Join(basePath, filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("creating parent directory: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", filePath, err)
	}

	return &WriteReport{
		ProjectCode: projectCode,
		FilePath:    filePath,
		Status:      "success",
		Message:     fmt.Sprintf("File %s written successfully", filePath),
	}, nil
}

// DeleteFile removes a file from a project directory. Returns ErrNotFound
// when the project or file is absent and ErrInvalidTarget when the path is
// a directory.
func (s *Store) DeleteFile(projectCode, filePath string) (*WriteReport, error) {
	fullPath, err := s.resolveExisting(projectCode, filePath)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(fullPath); err != nil {
		return nil, fmt.Errorf("deleting %s: %w", filePath, err)
	}

	return &WriteReport{
		ProjectCode: projectCode,
		FilePath:    filePath,
		Status:      "success",
		Message:     fmt.Sprintf("File %s deleted successfully", filePath),
	}, nil
}

// resolveExisting validates that projectCode exists and filePath names a
// regular file inside it, returning the absolute path.
func (s *Store) resolveExisting(projectCode, filePath string) (string, error) {
	basePath, err := s.ProjectDir(projectCode)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(basePath); err != nil {
		return "", fmt.Errorf("%w: project directory %s", core.ErrNotFound, basePath)
	}

	fullPath := filepath.Join(basePath, filePath)
	info, err := os.Stat(fullPath)
	if err != nil {
		return "", fmt.Errorf("%w: file %s", core.ErrNotFound, filePath)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: not a file: %s", core.ErrInvalidTarget, filePath)
	}
	return fullPath, nil
}

// CountRecursive walks the subtree at dir and returns the number of files
// and directories, excluding the .git directory and everything under it.
func CountRecursive(dir string) (files int, dirs int, err error) {
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == gitDirName {
				return filepath.SkipDir
			}
			if p != dir {
				dirs++
			}
			return nil
		}
		files++
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, dirs, nil
}

// SnapshotFiles returns the set of file paths under dir, relative to dir.
// The .git directory is included if present; callers that care already
// excluded it from the tree (snapshots are taken of merge targets, which
// may carry git metadata the merge must not count).
func SnapshotFiles(dir string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		set[rel] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return set, nil
}
