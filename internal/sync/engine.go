// Package sync downloads project archives from the MCP server and
// reconciles them with the local working copies. Model projects use an
// additive merge that preserves local-only files; semantic projects are
// replaced wholesale.
package sync

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"reorc-cli/internal/archive"
	"reorc-cli/internal/core"
	"reorc-cli/internal/transport"
	"reorc-cli/internal/workspace"
)

// Engine orchestrates archive download, extraction and merge.
type Engine struct {
	store  *workspace.Store
	api    *transport.API
	logger core.Logger
}

// NewEngine creates an Engine.
func NewEngine(store *workspace.Store, api *transport.API, logger core.Logger) *Engine {
	return &Engine{store: store, api: api, logger: logger}
}

// MergeReport is the result of downloading and merging a model project.
type MergeReport struct {
	ProjectCode         string `json:"project_code"`
	Status              string `json:"status"`
	Message             string `json:"message"`
	FilesUpdated        int    `json:"files_updated"`
	FileCount           int    `json:"file_count"`
	DirectoryCount      int    `json:"directory_count"`
	LocalOnlyFilesCount int    `json:"local_only_files_count"`
}

// DownloadAndMergeProject downloads the project archive and merges it into
// the local working copy. The merge is additive: every file from the
// archive overwrites its local counterpart, files that exist only locally
// are left untouched and counted. The downloaded archive is always removed
// afterwards, even on extraction failure.
func (e *Engine) DownloadAndMergeProject(ctx context.Context, projectCode string) (*MergeReport, error) {
	root, err := e.store.ModelsRoot()
	if err != nil {
		return nil, err
	}
	projectDir := filepath.Join(root, projectCode)

	// The archive lives beside the project directories, never inside one,
	// so it can not leak into snapshots or counts. Remove any leftover
	// from an interrupted run.
	archivePath := filepath.Join(root, projectCode+".tar.gz")
	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale archive: %w", err)
	}

	var existing map[string]struct{}
	if _, statErr := os.Stat(projectDir); statErr == nil {
		existing, err = workspace.SnapshotFiles(projectDir)
		if err != nil {
			return nil, err
		}
	}

	if err := e.api.DownloadProject(ctx, projectCode, archivePath); err != nil {
		return nil, fmt.Errorf("downloading project %s: %w", projectCode, err)
	}
	defer os.Remove(archivePath)

	// Created only after a successful download: a failed fetch of an
	// unknown project must not leave an empty directory that later reads
	// would mistake for a real project.
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return nil, fmt.Errorf("creating project directory: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "reorc-extract-")
	if err != nil {
		return nil, fmt.Errorf("creating extraction directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := archive.ExtractTo(archivePath, tempDir); err != nil {
		return nil, fmt.Errorf("extracting project %s: %w", projectCode, err)
	}

	filesUpdated, downloaded, err := mergeTree(tempDir, projectDir)
	if err != nil {
		return nil, fmt.Errorf("merging project %s: %w", projectCode, err)
	}

	localOnly := 0
	for rel := range existing {
		if _, ok := downloaded[rel]; !ok {
			localOnly++
		}
	}

	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing archive: %w", err)
	}

	fileCount, dirCount, err := workspace.CountRecursive(projectDir)
	if err != nil {
		return nil, err
	}

	e.logger.Info("project merged", "project", projectCode,
		"files_updated", filesUpdated, "local_only", localOnly)

	return &MergeReport{
		ProjectCode:         projectCode,
		Status:              "success",
		Message:             fmt.Sprintf("Project %s downloaded and merged successfully", projectCode),
		FilesUpdated:        filesUpdated,
		FileCount:           fileCount,
		DirectoryCount:      dirCount,
		LocalOnlyFilesCount: localOnly,
	}, nil
}

// SemanticReport is the result of syncing a semantic project.
type SemanticReport struct {
	ProjectCode    string `json:"project_code"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	FileCount      int    `json:"file_count"`
	DirectoryCount int    `json:"directory_count"`
}

// SyncSemanticProject downloads the semantic-model archive and replaces
// the local copy entirely. Semantic models are server-generated, so stale
// local files must not survive a sync.
func (e *Engine) SyncSemanticProject(ctx context.Context, projectCode string) (*SemanticReport, error) {
	root, err := e.store.SemanticRoot()
	if err != nil {
		return nil, err
	}
	projectDir := filepath.Join(root, projectCode)

	archivePath := filepath.Join(root, projectCode+"_semantic.tar.gz")
	if err := e.api.DownloadSemanticProject(ctx, projectCode, archivePath); err != nil {
		return nil, fmt.Errorf("downloading semantic project %s: %w", projectCode, err)
	}
	defer os.Remove(archivePath)

	// Semantic archives carry a top-level <code>/ directory, so extraction
	// happens over the root. The stale copy goes first, and only after the
	// download succeeded, so a failed fetch leaves the old copy intact.
	if err := os.RemoveAll(projectDir); err != nil {
		return nil, fmt.Errorf("clearing semantic project directory: %w", err)
	}
	if err := archive.ExtractTo(archivePath, root); err != nil {
		return nil, fmt.Errorf("extracting semantic project %s: %w", projectCode, err)
	}
	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing semantic archive: %w", err)
	}

	fileCount, dirCount, err := workspace.CountRecursive(projectDir)
	if err != nil {
		return nil, err
	}

	e.logger.Info("semantic project synced", "project", projectCode, "files", fileCount)

	return &SemanticReport{
		ProjectCode:    projectCode,
		Status:         "success",
		Message:        fmt.Sprintf("Semantic project %s synced successfully", projectCode),
		FileCount:      fileCount,
		DirectoryCount: dirCount,
	}, nil
}

// ArchiveReport is the result of downloading a semantic archive without
// extracting it.
type ArchiveReport struct {
	ProjectCode string `json:"project_code"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	ArchivePath string `json:"archive_path"`
	Size        int64  `json:"size"`
}

// DownloadSemanticArchive saves the semantic-model archive under the
// semantic root without unpacking it.
func (e *Engine) DownloadSemanticArchive(ctx context.Context, projectCode string) (*ArchiveReport, error) {
	root, err := e.store.SemanticRoot()
	if err != nil {
		return nil, err
	}

	archivePath := filepath.Join(root, projectCode+"_semantic.tar.gz")
	if err := e.api.DownloadSemanticProject(ctx, projectCode, archivePath); err != nil {
		return nil, fmt.Errorf("downloading semantic archive %s: %w", projectCode, err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", archivePath, err)
	}

	return &ArchiveReport{
		ProjectCode: projectCode,
		Status:      "success",
		Message:     fmt.Sprintf("Semantic archive for %s downloaded successfully", projectCode),
		ArchivePath: archivePath,
		Size:        info.Size(),
	}, nil
}

// mergeTree copies every file under srcDir into destDir, overwriting
// existing files and creating directories as needed. Returns the number of
// files copied and the set of copied relative paths.
func mergeTree(srcDir, destDir string) (int, map[string]struct{}, error) {
	copied := make(map[string]struct{})
	count := 0

	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := copyFile(p, target); err != nil {
			return err
		}

		copied[rel] = struct{}{}
		count++
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return count, copied, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
