// Package app is the wiring layer between the CLI and the component
// packages. It constructs all dependencies from settings, manages the
// per-invocation logger and journal record, and hands commands either the
// local components (workspace, git, journal) or the remote ones (API,
// sync, catalog, poller) on demand.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reorc-cli/internal/catalog"
	"reorc-cli/internal/config"
	"reorc-cli/internal/core"
	"reorc-cli/internal/gitops"
	"reorc-cli/internal/journal"
	"reorc-cli/internal/sync"
	"reorc-cli/internal/tasks"
	"reorc-cli/internal/transport"
	"reorc-cli/internal/workspace"
)

// App holds the local components every command can use. Remote components
// are built lazily via Remote, because several commands (file and git
// operations, history) never talk to the server and must work without a
// server configuration.
type App struct {
	Settings *config.Settings
	Store    *workspace.Store
	Git      *gitops.Adapter
	Journal  *journal.Store
	Logger   core.Logger

	clock   core.Clock
	sleeper core.Sleeper
	idgen   core.IDGenerator
	op      *Operation
	logFile *os.File
}

// Remote bundles the components that talk to the MCP server.
type Remote struct {
	Auth    *config.AuthContext
	API     *transport.API
	Sync    *sync.Engine
	Catalog *catalog.Cache
	Poller  *tasks.Poller
}

// NewApp creates a fully wired App from the given settings. operation
// identifies the CLI command being run (e.g. "ListFiles", "DownloadProject").
// The caller must call Close when done.
func NewApp(settings *config.Settings, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(settings.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	clock := core.RealClock{}
	store := workspace.NewStore(settings.BaseDir)

	modelsRoot, err := store.ModelsRoot()
	if err != nil {
		logFile.Close()
		return nil, err
	}
	git := gitops.NewAdapter(modelsRoot, gitops.Identity{
		Name:  settings.Git.Name,
		Email: settings.Git.Email,
	}, log)

	// A broken journal must not take the tool down with it.
	journalPath := filepath.Join(settings.BaseDir, ".reorc", "journal.db")
	jstore, err := journal.Open(journalPath, clock)
	if err != nil {
		log.Warn("journal unavailable", "path", journalPath, "error", err)
		jstore = nil
	}

	return &App{
		Settings: settings,
		Store:    store,
		Git:      git,
		Journal:  jstore,
		Logger:   log,
		clock:    clock,
		sleeper:  clock,
		idgen:    core.UUIDGenerator{},
		op:       NewOperation(operation, ""),
		logFile:  logFile,
	}, nil
}

// Remote resolves the server connection and builds the remote components.
// Fails when no server is configured or the stored URL carries no token.
func (a *App) Remote() (*Remote, error) {
	auth, err := config.LoadAuthContext(config.DefaultMCPPath(a.Settings.BaseDir))
	if err != nil {
		return nil, err
	}

	client := transport.NewClient(a.Settings.Transport, a.sleeper, a.Logger, a.idgen)
	api := transport.NewAPI(client, auth.BaseURL, auth.Token)

	return &Remote{
		Auth:    auth,
		API:     api,
		Sync:    sync.NewEngine(a.Store, api, a.Logger),
		Catalog: catalog.NewCache(a.Store, api, a.clock, a.Logger),
		Poller:  tasks.NewPoller(api, a.clock, a.sleeper, a.Logger, a.Settings.Poll),
	}, nil
}

// Persist records the operation in the journal with its parameters.
// Journal failures are logged, never returned.
func (a *App) Persist(parameters string) {
	if a.Journal == nil || a.op.Persisted() {
		return
	}
	a.op.Parameters = parameters
	id, err := a.Journal.Begin(a.op.Operation, parameters)
	if err != nil {
		a.Logger.Warn("recording operation failed", "operation", a.op.Operation, "error", err)
		return
	}
	a.op.ID = id
}

// Fail marks the operation as failed for the journal record.
func (a *App) Fail() {
	a.op.Status = "error"
}

// Close finalizes the journal record and releases resources.
func (a *App) Close() error {
	if a.Journal != nil {
		if a.op.Persisted() {
			if err := a.Journal.Finish(a.op.ID, a.op.Status); err != nil {
				a.Logger.Warn("finishing operation record failed", "error", err)
			}
		}
		if err := a.Journal.Close(); err != nil {
			a.Logger.Warn("closing journal failed", "error", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}
	return nil
}
