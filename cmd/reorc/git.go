package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// git command: version control on model project repositories.
var gitCmd = &cobra.Command{
	Use:   "git",
	Short: "Manage project version control",
}

var gitInitCmd = &cobra.Command{
	Use:   "init PROJECT",
	Short: "Initialize a project repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GitInit")
		if err != nil {
			return err
		}
		defer a.Close()
		a.Persist("project=" + args[0])

		report, err := a.Git.Init(cmd.Context(), args[0])
		return emit(a, report, err)
	},
}

var gitStatusCmd = &cobra.Command{
	Use:   "status PROJECT",
	Short: "View working tree status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GitStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Git.Status(cmd.Context(), args[0])
		return emit(a, report, err)
	},
}

var gitCommitCmd = &cobra.Command{
	Use:   "commit PROJECT MESSAGE",
	Short: "Commit project changes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stageAll, _ := cmd.Flags().GetBool("all")

		a, err := newApp("GitCommit")
		if err != nil {
			return err
		}
		defer a.Close()
		a.Persist("project=" + args[0])

		report, err := a.Git.Commit(cmd.Context(), args[0], args[1], stageAll)
		return emit(a, report, err)
	},
}

var gitResetCmd = &cobra.Command{
	Use:   "reset PROJECT",
	Short: "Undo project changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hard, _ := cmd.Flags().GetBool("hard")
		file, _ := cmd.Flags().GetString("file")

		a, err := newApp("GitReset")
		if err != nil {
			return err
		}
		defer a.Close()
		a.Persist(fmt.Sprintf("project=%s hard=%t file=%s", args[0], hard, file))

		report, err := a.Git.Reset(cmd.Context(), args[0], hard, file)
		return emit(a, report, err)
	},
}

var gitHistoryCmd = &cobra.Command{
	Use:   "history PROJECT",
	Short: "View commit history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxCount, _ := cmd.Flags().GetInt("max-count")

		a, err := newApp("GitHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Git.History(cmd.Context(), args[0], maxCount)
		return emit(a, report, err)
	},
}

func init() {
	gitCmd.AddCommand(gitInitCmd)
	gitCmd.AddCommand(gitStatusCmd)
	gitCmd.AddCommand(gitCommitCmd)
	gitCommitCmd.Flags().BoolP("all", "a", true, "Stage all changes before committing")
	gitCmd.AddCommand(gitResetCmd)
	gitResetCmd.Flags().Bool("hard", false, "Discard changes instead of unstaging them")
	gitResetCmd.Flags().String("file", "", "Limit the reset to one file")
	gitCmd.AddCommand(gitHistoryCmd)
	gitHistoryCmd.Flags().IntP("max-count", "n", 10, "Maximum number of commits to show")
	rootCmd.AddCommand(gitCmd)
}
