package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings is the tool-level configuration for reorc. It covers everything
// that is local policy rather than server state: directory layout, the git
// identity used for project repositories, transport timeouts and the task
// polling defaults. The server connection itself lives in the separate
// mcp.json document (see auth.go).
type Settings struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	Git       GitSettings     `toml:"git"`
	Transport TransportConfig `toml:"transport"`
	Poll      PollConfig      `toml:"poll"`
}

// GitSettings is the identity written into project repositories on init.
type GitSettings struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// TransportConfig holds HTTP timeout and retry policy. All durations are
// in seconds.
type TransportConfig struct {
	ConnectTimeoutSec int `toml:"connect_timeout_sec"`
	GetTimeoutSec     int `toml:"get_timeout_sec"`
	PostTimeoutSec    int `toml:"post_timeout_sec"`
	Retries           int `toml:"retries"`
	RetryDelaySec     int `toml:"retry_delay_sec"`
}

// PollConfig holds local defaults for task polling; the server may override
// interval, timeout and terminal statuses per task.
type PollConfig struct {
	IntervalSec      int      `toml:"interval_sec"`
	TimeoutSec       int      `toml:"timeout_sec"`
	TerminalStatuses []string `toml:"terminal_statuses"`
}

func (t TransportConfig) ConnectTimeout() time.Duration {
	return time.Duration(t.ConnectTimeoutSec) * time.Second
}

func (t TransportConfig) GetTimeout() time.Duration {
	return time.Duration(t.GetTimeoutSec) * time.Second
}

func (t TransportConfig) PostTimeout() time.Duration {
	return time.Duration(t.PostTimeoutSec) * time.Second
}

func (t TransportConfig) RetryDelay() time.Duration {
	return time.Duration(t.RetryDelaySec) * time.Second
}

func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSec) * time.Second
}

func (p PollConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// NewSettings creates Settings with the stock defaults rooted at baseDir.
func NewSettings(baseDir string) *Settings {
	return &Settings{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Git: GitSettings{
			Name:  "ReOrc MCP",
			Email: "reorc-mcp@recurvedata.com",
		},
		Transport: TransportConfig{
			ConnectTimeoutSec: 30,
			GetTimeoutSec:     60,
			PostTimeoutSec:    120,
			Retries:           3,
			RetryDelaySec:     2,
		},
		Poll: PollConfig{
			IntervalSec:      2,
			TimeoutSec:       60,
			TerminalStatuses: []string{"completed", "failed", "error"},
		},
	}
}

// applyDefaults fills in zero values after decoding a partial settings file.
func (s *Settings) applyDefaults() {
	defaults := NewSettings(s.BaseDir)
	if s.BaseDir == "" {
		s.BaseDir = "."
		defaults = NewSettings(".")
	}
	if s.LogDir == "" {
		s.LogDir = defaults.LogDir
	}
	if s.Git.Name == "" {
		s.Git.Name = defaults.Git.Name
	}
	if s.Git.Email == "" {
		s.Git.Email = defaults.Git.Email
	}
	if s.Transport.ConnectTimeoutSec == 0 {
		s.Transport.ConnectTimeoutSec = defaults.Transport.ConnectTimeoutSec
	}
	if s.Transport.GetTimeoutSec == 0 {
		s.Transport.GetTimeoutSec = defaults.Transport.GetTimeoutSec
	}
	if s.Transport.PostTimeoutSec == 0 {
		s.Transport.PostTimeoutSec = defaults.Transport.PostTimeoutSec
	}
	if s.Transport.Retries == 0 {
		s.Transport.Retries = defaults.Transport.Retries
	}
	if s.Transport.RetryDelaySec == 0 {
		s.Transport.RetryDelaySec = defaults.Transport.RetryDelaySec
	}
	if s.Poll.IntervalSec == 0 {
		s.Poll.IntervalSec = defaults.Poll.IntervalSec
	}
	if s.Poll.TimeoutSec == 0 {
		s.Poll.TimeoutSec = defaults.Poll.TimeoutSec
	}
	if len(s.Poll.TerminalStatuses) == 0 {
		s.Poll.TerminalStatuses = defaults.Poll.TerminalStatuses
	}
}

// Manager handles reading and writing settings.
type Manager struct{}

// Read decodes Settings from the provided reader.
func (m *Manager) Read(r io.Reader) (*Settings, error) {
	var s Settings
	if _, err := toml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.applyDefaults()
	return &s, nil
}

// Write encodes Settings to the provided writer.
func (m *Manager) Write(w io.Writer, s *Settings) error {
	if err := toml.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return nil
}

// ReadFromFile reads Settings from the specified file path. A missing file
// is not an error: the stock defaults are returned so the tool works with
// zero configuration.
func ReadFromFile(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewSettings("."), nil
		}
		return nil, fmt.Errorf("failed to open settings file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	s, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading settings from %s: %w", path, err)
	}
	return s, nil
}

func writeToFile(path string, s *Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, s); err != nil {
		return fmt.Errorf("writing settings to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new settings file at the specified path.
func Init(path string, s *Settings) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("settings file already exists at %s", path)
	}

	if err := writeToFile(path, s); err != nil {
		return fmt.Errorf("initializing settings: %w", err)
	}
	return nil
}
