package gitops

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reorc-cli/internal/core"
	"reorc-cli/internal/testutil"
)

func newTestAdapter(t *testing.T) (*Adapter, string) {
	t.Helper()
	testutil.RequireGit(t)

	root := t.TempDir()
	adapter := NewAdapter(root, Identity{
		Name:  "ReOrc MCP",
		Email: "reorc-mcp@recurvedata.com",
	}, core.NopLogger{})
	return adapter, root
}

func seedProject(t *testing.T, root, code string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, code)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestInit(t *testing.T) {
	adapter, root := newTestAdapter(t)
	ctx := context.Background()

	t.Run("creates repository with initial commit", func(t *testing.T) {
		seedProject(t, root, "p1", map[string]string{"model.sql": "select 1"})

		report, err := adapter.Init(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "success", report.Status)
		assert.Equal(t, "p1", report.ProjectCode)

		_, err = os.Stat(filepath.Join(root, "p1", ".git"))
		assert.NoError(t, err, "expected .git directory")

		history, err := adapter.History(ctx, "p1", 5)
		require.NoError(t, err)
		require.Equal(t, 1, history.TotalCommits)
		assert.Equal(t, "Initial project state", history.Commits[0].Message)
		assert.Equal(t, "ReOrc MCP", history.Commits[0].Author)
	})

	t.Run("existing repository is informational", func(t *testing.T) {
		report, err := adapter.Init(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "info", report.Status)
		assert.Equal(t, "Git repository already exists", report.Message)
	})

	t.Run("missing project is ErrNotFound", func(t *testing.T) {
		_, err := adapter.Init(ctx, "ghost")
		assert.True(t, errors.Is(err, core.ErrNotFound), "error = %v", err)
	})
}

func TestStatus(t *testing.T) {
	adapter, root := newTestAdapter(t)
	ctx := context.Background()

	dir := seedProject(t, root, "p2", map[string]string{
		"committed.sql": "select 1",
	})
	_, err := adapter.Init(ctx, "p2")
	require.NoError(t, err)

	// One untracked file, one modified-and-staged file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked.sql"), []byte("select 2"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "committed.sql"), []byte("select 99"), 0644))
	_, err = adapter.run(ctx, dir, "add", "committed.sql")
	require.NoError(t, err)

	report, err := adapter.Status(ctx, "p2")
	require.NoError(t, err)

	assert.Equal(t, []string{"untracked.sql"}, report.UntrackedFiles)
	assert.Equal(t, []string{"committed.sql"}, report.ModifiedFiles)
	assert.True(t, report.HasChanges)
	assert.NotEmpty(t, report.Branch)

	t.Run("uninitialized project is ErrNotInitialized", func(t *testing.T) {
		seedProject(t, root, "bare", map[string]string{"a.txt": "x"})
		_, err := adapter.Status(ctx, "bare")
		assert.True(t, errors.Is(err, core.ErrNotInitialized), "error = %v", err)
	})
}

func TestCommit(t *testing.T) {
	adapter, root := newTestAdapter(t)
	ctx := context.Background()

	dir := seedProject(t, root, "p3", map[string]string{"a.sql": "select 1"})
	_, err := adapter.Init(ctx, "p3")
	require.NoError(t, err)

	t.Run("commits staged changes", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.sql"), []byte("select 2"), 0644))

		report, err := adapter.Commit(ctx, "p3", "update a", true)
		require.NoError(t, err)
		assert.Equal(t, "success", report.Status)

		history, err := adapter.History(ctx, "p3", 5)
		require.NoError(t, err)
		assert.Equal(t, "update a", history.Commits[0].Message)
	})

	t.Run("nothing to commit is a soft failure", func(t *testing.T) {
		report, err := adapter.Commit(ctx, "p3", "noop", true)
		require.NoError(t, err)
		assert.Equal(t, "error", report.Status)
		assert.Equal(t, "Commit failed or no changes to commit", report.Message)
	})
}

func TestReset(t *testing.T) {
	adapter, root := newTestAdapter(t)
	ctx := context.Background()

	dir := seedProject(t, root, "p4", map[string]string{"a.sql": "select 1"})
	_, err := adapter.Init(ctx, "p4")
	require.NoError(t, err)

	t.Run("hard reset for one file restores content", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.sql"), []byte("garbage"), 0644))

		report, err := adapter.Reset(ctx, "p4", true, "a.sql")
		require.NoError(t, err)
		assert.Equal(t, "success", report.Status)
		assert.Contains(t, report.Message, "hard reset for specific file")

		got, err := os.ReadFile(filepath.Join(dir, "a.sql"))
		require.NoError(t, err)
		assert.Equal(t, "select 1", string(got))
	})

	t.Run("hard reset all discards changes", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.sql"), []byte("garbage"), 0644))

		report, err := adapter.Reset(ctx, "p4", true, "")
		require.NoError(t, err)
		assert.Equal(t, "success", report.Status)
		assert.Contains(t, report.Message, "hard reset (all files)")

		got, err := os.ReadFile(filepath.Join(dir, "a.sql"))
		require.NoError(t, err)
		assert.Equal(t, "select 1", string(got))
	})

	t.Run("soft reset unstages", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "new.sql"), []byte("select 3"), 0644))
		_, err := adapter.run(ctx, dir, "add", "new.sql")
		require.NoError(t, err)

		report, err := adapter.Reset(ctx, "p4", false, "")
		require.NoError(t, err)
		assert.Equal(t, "success", report.Status)

		status, err := adapter.Status(ctx, "p4")
		require.NoError(t, err)
		assert.Contains(t, status.UntrackedFiles, "new.sql")
	})
}

func TestHistory(t *testing.T) {
	adapter, root := newTestAdapter(t)
	ctx := context.Background()

	dir := seedProject(t, root, "p5", map[string]string{"a.sql": "select 1"})
	_, err := adapter.Init(ctx, "p5")
	require.NoError(t, err)

	for _, msg := range []string{"second | with pipes", "third"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.sql"), []byte(msg), 0644))
		_, err := adapter.Commit(ctx, "p5", msg, true)
		require.NoError(t, err)
	}

	t.Run("returns newest first with all fields", func(t *testing.T) {
		report, err := adapter.History(ctx, "p5", 0)
		require.NoError(t, err)
		require.Equal(t, 3, report.TotalCommits)

		newest := report.Commits[0]
		assert.Equal(t, "third", newest.Message)
		assert.Equal(t, "ReOrc MCP", newest.Author)
		assert.NotEmpty(t, newest.Hash)
		assert.NotEmpty(t, newest.Date)

		// Pipes in the message survive the pipe-delimited format.
		assert.Equal(t, "second | with pipes", report.Commits[1].Message)
	})

	t.Run("respects max count", func(t *testing.T) {
		report, err := adapter.History(ctx, "p5", 2)
		require.NoError(t, err)
		assert.Equal(t, 2, report.TotalCommits)
	})
}
