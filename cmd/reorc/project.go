package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// project command: server-backed project operations.
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Download and manage projects",
}

var projectDownloadCmd = &cobra.Command{
	Use:   "download PROJECT",
	Short: "Download a project and merge it locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DownloadProject")
		if err != nil {
			return err
		}
		defer a.Close()
		a.Persist("project=" + args[0])

		remote, err := a.Remote()
		if err != nil {
			return emit(a, nil, err)
		}

		report, err := remote.Sync.DownloadAndMergeProject(cmd.Context(), args[0])
		return emit(a, report, err)
	},
}

var projectSemanticCmd = &cobra.Command{
	Use:   "download-semantic PROJECT",
	Short: "Download a semantic model, replacing the local copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archiveOnly, _ := cmd.Flags().GetBool("archive-only")

		a, err := newApp("DownloadSemanticProject")
		if err != nil {
			return err
		}
		defer a.Close()
		a.Persist(fmt.Sprintf("project=%s archive_only=%t", args[0], archiveOnly))

		remote, err := a.Remote()
		if err != nil {
			return emit(a, nil, err)
		}

		if archiveOnly {
			report, err := remote.Sync.DownloadSemanticArchive(cmd.Context(), args[0])
			return emit(a, report, err)
		}
		report, err := remote.Sync.SyncSemanticProject(cmd.Context(), args[0])
		return emit(a, report, err)
	},
}

var projectCommitCmd = &cobra.Command{
	Use:   "commit PROJECT",
	Short: "Commit model changes",
	Long: "Commit changed model files in a project repository. Without -m an " +
		"auto-generated message naming the changed models is used.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		only, _ := cmd.Flags().GetStringSlice("models")

		a, err := newApp("CommitModels")
		if err != nil {
			return err
		}
		defer a.Close()
		a.Persist("project=" + args[0])

		status, err := a.Git.Status(cmd.Context(), args[0])
		if err != nil {
			return emit(a, nil, err)
		}

		models := modelNames(status.ModifiedFiles)
		if len(only) > 0 {
			models = filterModels(models, only)
		}
		if message == "" {
			if len(models) == 0 {
				return emit(a, map[string]string{
					"project_code": args[0],
					"status":       "info",
					"message":      "No model changes to commit",
				}, nil)
			}
			message = fmt.Sprintf("Update models (%s) - %s",
				strings.Join(models, ", "),
				time.Now().Format("2006-01-02 15:04:05"))
		}

		report, err := a.Git.Commit(cmd.Context(), args[0], message, true)
		return emit(a, report, err)
	},
}

// modelNames extracts model names from the changed .sql files: the base
// file name without its extension.
func modelNames(files []string) []string {
	var names []string
	for _, f := range files {
		if !strings.HasSuffix(f, ".sql") {
			continue
		}
		base := filepath.Base(f)
		names = append(names, strings.TrimSuffix(base, ".sql"))
	}
	return names
}

// filterModels keeps only the models named in wanted.
func filterModels(models, wanted []string) []string {
	keep := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		keep[w] = struct{}{}
	}
	var out []string
	for _, m := range models {
		if _, ok := keep[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func init() {
	projectCmd.AddCommand(projectDownloadCmd)
	projectCmd.AddCommand(projectSemanticCmd)
	projectSemanticCmd.Flags().Bool("archive-only", false, "Save the archive without extracting it")
	projectCmd.AddCommand(projectCommitCmd)
	projectCommitCmd.Flags().StringP("message", "m", "", "Commit message (default: auto-generated)")
	projectCommitCmd.Flags().StringSlice("models", nil, "Limit the auto-generated message to these models")
	rootCmd.AddCommand(projectCmd)
}
