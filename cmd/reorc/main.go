package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"reorc-cli/internal/app"
	"reorc-cli/internal/config"
	"reorc-cli/internal/core"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the settings and creates an App. The caller must defer
// a.Close(). operation identifies the CLI command being run.
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	settings, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if settings.BaseDir == "" || settings.BaseDir == "." {
		settings.BaseDir = defaults["base_dir"]
	}

	a, err := app.NewApp(settings, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// printJSON writes a report document to stdout with two-space indentation.
func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("{\"error\": %q}\n", err.Error())
		return
	}
	fmt.Println(string(out))
}

// emit prints either the report or an error document, marking the journal
// record failed on error. Documented failure kinds still exit zero: the
// error document is the command's output. Only unexpected faults are
// returned, so the process exits non-zero; cobra's own error output is
// silenced on the root command.
func emit(a *app.App, report any, err error) error {
	if err != nil {
		if a != nil {
			a.Fail()
		}
		printJSON(map[string]string{"error": err.Error()})
		if core.Expected(err) {
			return nil
		}
		return err
	}
	printJSON(report)
	return nil
}

var rootCmd = &cobra.Command{
	Use:           "reorc",
	Short:         "ReOrc project workspace tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage settings",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		settings := config.NewSettings(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], settings); err != nil {
			return fmt.Errorf("failed to initialize settings: %w", err)
		}

		fmt.Printf("Settings initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", settings.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		settings, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read settings: %w", err)
		}

		fmt.Printf("Settings from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", settings.BaseDir)
		fmt.Printf("Log Dir:      %s\n", settings.LogDir)
		fmt.Printf("Git Identity: %s <%s>\n", settings.Git.Name, settings.Git.Email)
		fmt.Printf("Retries:      %d (delay %ds)\n", settings.Transport.Retries, settings.Transport.RetryDelaySec)
		fmt.Printf("Polling:      every %ds, timeout %ds\n", settings.Poll.IntervalSec, settings.Poll.TimeoutSec)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Journal == nil {
			fmt.Println("Journal unavailable.")
			return nil
		}

		ops, err := a.Journal.List(limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != "" {
				started, err1 := time.Parse(time.RFC3339, op.StartedAt)
				finished, err2 := time.Parse(time.RFC3339, op.FinishedAt)
				if err1 == nil && err2 == nil {
					duration = finished.Sub(started).Truncate(time.Millisecond).String()
				}
			}
			fmt.Printf("#%d  %-20s  %s  %-8s  %s\n",
				op.ID, op.Operation, op.StartedAt, op.Status, duration)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of operations to show")
}
