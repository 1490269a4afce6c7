// Package tasks starts async server-side tasks and polls them to
// completion. Timing goes through injected Clock and Sleeper so tests can
// simulate elapsed time without waiting.
package tasks

import (
	"context"
	"encoding/json"
	"time"

	"reorc-cli/internal/config"
	"reorc-cli/internal/core"
	"reorc-cli/internal/transport"
)

// Poller drives async tasks on the MCP server.
type Poller struct {
	api     *transport.API
	clock   core.Clock
	sleeper core.Sleeper
	logger  core.Logger
	cfg     config.PollConfig
}

// NewPoller creates a Poller with the given local polling defaults.
func NewPoller(api *transport.API, clock core.Clock, sleeper core.Sleeper, logger core.Logger, cfg config.PollConfig) *Poller {
	return &Poller{api: api, clock: clock, sleeper: sleeper, logger: logger, cfg: cfg}
}

// Report is the outcome of driving one task to a terminal state. Status is
// the task's final status, or "timeout" when the deadline passed first; a
// timeout is reported, not returned as an error.
type Report struct {
	ProjectCode  string          `json:"project_code"`
	TaskID       string          `json:"task_id"`
	Status       string          `json:"status"`
	Polls        int             `json:"polls"`
	PollResponse json.RawMessage `json:"poll_response,omitempty"`
}

// RefreshSources asks the server to refresh a project's source catalog and
// polls the resulting task until it reaches a terminal status or the
// timeout elapses. Server-supplied instructions override the local
// interval, timeout and terminal-status defaults.
func (p *Poller) RefreshSources(ctx context.Context, projectCode string) (*Report, error) {
	handle, err := p.api.RefreshSources(ctx, projectCode)
	if err != nil {
		return nil, err
	}

	interval, timeout, terminal := p.resolve(handle.Instructions)
	p.logger.Info("refresh task started", "project", projectCode, "task_id", handle.TaskID)

	report := &Report{ProjectCode: projectCode, TaskID: handle.TaskID}
	start := p.clock.Now()

	for {
		state, err := p.api.TaskStatus(ctx, handle.TaskID)
		if err != nil {
			return nil, err
		}
		report.Polls++
		report.PollResponse = state.Raw

		if terminal[state.Status] {
			report.Status = state.Status
			p.logger.Info("refresh task finished", "task_id", handle.TaskID,
				"status", state.Status, "polls", report.Polls)
			return report, nil
		}

		if p.clock.Now().Sub(start) >= timeout {
			report.Status = "timeout"
			p.logger.Warn("refresh task timed out", "task_id", handle.TaskID,
				"polls", report.Polls)
			return report, nil
		}

		p.sleeper.Sleep(interval)
	}
}

// resolve merges server instructions over local defaults.
func (p *Poller) resolve(instr *transport.TaskInstructions) (time.Duration, time.Duration, map[string]bool) {
	interval := p.cfg.Interval()
	timeout := p.cfg.Timeout()
	statuses := p.cfg.TerminalStatuses

	if instr != nil {
		if instr.PollInterval > 0 {
			interval = time.Duration(instr.PollInterval) * time.Second
		}
		if instr.PollTimeout > 0 {
			timeout = time.Duration(instr.PollTimeout) * time.Second
		}
		if len(instr.CompleteStatuses) > 0 {
			statuses = instr.CompleteStatuses
		}
	}

	terminal := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		terminal[s] = true
	}
	return interval, timeout, terminal
}
