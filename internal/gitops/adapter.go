// Package gitops wraps git operations for local model-project repositories.
// Pattern follows github.com/cli/cli style exec wrappers: every operation
// shells out to the git binary with the project directory as the working
// directory and parses the machine-readable output.
package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"reorc-cli/internal/core"
)

// Adapter runs git commands scoped to project directories under the
// model-projects root.
type Adapter struct {
	modelsRoot string
	gitPath    string
	identity   Identity
	logger     core.Logger
}

// Identity is the committer identity configured on repository init.
type Identity struct {
	Name  string
	Email string
}

// NewAdapter creates an Adapter for projects under modelsRoot.
func NewAdapter(modelsRoot string, identity Identity, logger core.Logger) *Adapter {
	gitPath, _ := exec.LookPath("git")
	return &Adapter{
		modelsRoot: modelsRoot,
		gitPath:    gitPath,
		identity:   identity,
		logger:     logger,
	}
}

// GitError represents a git command failure with captured stderr.
type GitError struct {
	Stderr string
	err    error
}

func (e *GitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("git command failed: %v", e.err)
	}
	return fmt.Sprintf("git command failed: %s", strings.TrimSpace(e.Stderr))
}

func (e *GitError) Unwrap() error { return e.err }

// projectDir validates that the project directory exists.
func (a *Adapter) projectDir(projectCode string) (string, error) {
	dir := filepath.Join(a.modelsRoot, projectCode)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("%w: project directory %s", core.ErrNotFound, dir)
	}
	return dir, nil
}

// requireRepo validates the project directory and its git metadata.
func (a *Adapter) requireRepo(projectCode string) (string, error) {
	dir, err := a.projectDir(projectCode)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return "", fmt.Errorf("%w: %s", core.ErrNotInitialized, projectCode)
	}
	return dir, nil
}

// run executes git with the given args in dir, returning trimmed stdout.
func (a *Adapter) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, a.gitPath, args...)
	cmd.Dir = dir

	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", &GitError{Stderr: stderr.String(), err: err}
	}
	return strings.TrimSpace(string(out)), nil
}

// InitReport is the result of initializing a project repository.
type InitReport struct {
	ProjectCode string `json:"project_code"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
}

// Init initializes a git repository in the project directory: sets the
// service identity, stages all files and creates an initial commit. If a
// repository already exists this is a no-op with an informational status.
// A failed initial commit (e.g. an empty project) downgrades the result to
// a warning; initialization itself still succeeded.
func (a *Adapter) Init(ctx context.Context, projectCode string) (*InitReport, error) {
	dir, err := a.projectDir(projectCode)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return &InitReport{
			ProjectCode: projectCode,
			Status:      "info",
			Message:     "Git repository already exists",
		}, nil
	}

	if _, err := a.run(ctx, dir, "init"); err != nil {
		return nil, fmt.Errorf("initializing repository: %w", err)
	}

	// Identity must be local to the repository: the CLI may run on hosts
	// with no global git config at all.
	if _, err := a.run(ctx, dir, "config", "user.email", a.identity.Email); err != nil {
		return nil, fmt.Errorf("configuring user email: %w", err)
	}
	if _, err := a.run(ctx, dir, "config", "user.name", a.identity.Name); err != nil {
		return nil, fmt.Errorf("configuring user name: %w", err)
	}

	if _, err := a.run(ctx, dir, "add", "."); err != nil {
		return nil, fmt.Errorf("staging files: %w", err)
	}

	details, err := a.run(ctx, dir, "commit", "-m", "Initial project state")
	if err != nil {
		a.logger.Warn("initial commit failed", "project", projectCode, "error", err)
		return &InitReport{
			ProjectCode: projectCode,
			Status:      "warning",
			Message:     "Git repository initialized but initial commit failed",
			Details:     err.Error(),
		}, nil
	}

	a.logger.Info("repository initialized", "project", projectCode)
	return &InitReport{
		ProjectCode: projectCode,
		Status:      "success",
		Message:     "Git repository initialized successfully",
		Details:     details,
	}, nil
}

// StatusReport is a snapshot of a project repository's working tree.
type StatusReport struct {
	ProjectCode    string   `json:"project_code"`
	Branch         string   `json:"branch"`
	ModifiedFiles  []string `json:"modified_files"`
	StagedFiles    []string `json:"staged_files"`
	UntrackedFiles []string `json:"untracked_files"`
	HasChanges     bool     `json:"has_changes"`
}

// Status parses `git status --porcelain` into categorized file lists.
// The two-character code is matched by prefix: "??" is untracked, "M" is
// modified, "A" is staged. The branch query failing falls back to "unknown".
func (a *Adapter) Status(ctx context.Context, projectCode string) (*StatusReport, error) {
	dir, err := a.requireRepo(projectCode)
	if err != nil {
		return nil, err
	}

	out, err := a.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("querying status: %w", err)
	}

	branch, err := a.run(ctx, dir, "branch", "--show-current")
	if err != nil || branch == "" {
		branch = "unknown"
	}

	report := &StatusReport{
		ProjectCode:    projectCode,
		Branch:         branch,
		ModifiedFiles:  []string{},
		StagedFiles:    []string{},
		UntrackedFiles: []string{},
	}

	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		name := line[3:]

		switch {
		case strings.HasPrefix(code, "??"):
			report.UntrackedFiles = append(report.UntrackedFiles, name)
		case strings.HasPrefix(code, "M"):
			report.ModifiedFiles = append(report.ModifiedFiles, name)
		case strings.HasPrefix(code, "A"):
			report.StagedFiles = append(report.StagedFiles, name)
		}
	}

	report.HasChanges = len(report.ModifiedFiles) > 0 ||
		len(report.StagedFiles) > 0 ||
		len(report.UntrackedFiles) > 0
	return report, nil
}

// CommitReport is the result of a commit attempt.
type CommitReport struct {
	ProjectCode string `json:"project_code"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
}

// Commit commits changes, staging everything first when stageAll is true.
// A failing commit (typically "nothing to commit") is a soft failure: it is
// reported in the result, not returned as an error.
func (a *Adapter) Commit(ctx context.Context, projectCode, message string, stageAll bool) (*CommitReport, error) {
	dir, err := a.requireRepo(projectCode)
	if err != nil {
		return nil, err
	}

	if stageAll {
		if _, err := a.run(ctx, dir, "add", "."); err != nil {
			return nil, fmt.Errorf("staging changes: %w", err)
		}
	}

	details, err := a.run(ctx, dir, "commit", "-m", message)
	if err != nil {
		a.logger.Warn("commit failed", "project", projectCode, "error", err)
		return &CommitReport{
			ProjectCode: projectCode,
			Status:      "error",
			Message:     "Commit failed or no changes to commit",
			Details:     err.Error(),
		}, nil
	}

	a.logger.Info("changes committed", "project", projectCode)
	return &CommitReport{
		ProjectCode: projectCode,
		Status:      "success",
		Message:     "Changes committed successfully",
		Details:     details,
	}, nil
}

// ResetReport is the result of a reset attempt.
type ResetReport struct {
	ProjectCode string `json:"project_code"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
}

// Reset undoes changes in four variants: file-scoped soft (unstage one
// file), file-scoped hard (discard one file's changes), all soft (unstage
// everything), all hard (discard everything). The variant that ran is named
// in the report; a failing reset is a soft failure.
func (a *Adapter) Reset(ctx context.Context, projectCode string, hardReset bool, filePath string) (*ResetReport, error) {
	dir, err := a.requireRepo(projectCode)
	if err != nil {
		return nil, err
	}

	var args []string
	var resetType string
	switch {
	case filePath != "" && hardReset:
		args = []string{"checkout", "HEAD", "--", filePath}
		resetType = "hard reset for specific file"
	case filePath != "":
		args = []string{"reset", "--", filePath}
		resetType = "soft reset for specific file"
	case hardReset:
		args = []string{"reset", "--hard"}
		resetType = "hard reset (all files)"
	default:
		args = []string{"reset"}
		resetType = "soft reset (all files)"
	}

	details, err := a.run(ctx, dir, args...)
	if err != nil {
		a.logger.Warn("reset failed", "project", projectCode, "type", resetType, "error", err)
		return &ResetReport{
			ProjectCode: projectCode,
			Status:      "error",
			Message:     fmt.Sprintf("Reset failed for %s", resetType),
			Details:     err.Error(),
		}, nil
	}

	return &ResetReport{
		ProjectCode: projectCode,
		Status:      "success",
		Message:     fmt.Sprintf("Successfully performed %s", resetType),
		Details:     details,
	}, nil
}

// Commit describes one entry in the repository history.
type Commit struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// HistoryReport lists the most recent commits.
type HistoryReport struct {
	ProjectCode  string   `json:"project_code"`
	TotalCommits int      `json:"total_commits"`
	Commits      []Commit `json:"commits"`
}

// History returns up to maxCount recent commits parsed from a
// pipe-delimited log format. Lines that do not split into exactly four
// fields are dropped.
func (a *Adapter) History(ctx context.Context, projectCode string, maxCount int) (*HistoryReport, error) {
	dir, err := a.requireRepo(projectCode)
	if err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		maxCount = 10
	}

	out, err := a.run(ctx, dir,
		"log", "--pretty=format:%h|%an|%ad|%s", "--date=iso",
		fmt.Sprintf("--max-count=%d", maxCount))
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}

	report := &HistoryReport{
		ProjectCode: projectCode,
		Commits:     []Commit{},
	}
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		report.Commits = append(report.Commits, Commit{
			Hash:    parts[0],
			Author:  parts[1],
			Date:    parts[2],
			Message: parts[3],
		})
	}
	report.TotalCommits = len(report.Commits)
	return report, nil
}
