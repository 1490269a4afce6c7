package main

import (
	"github.com/spf13/cobra"
)

// sources command: the per-project source-database catalog.
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage source-database catalogs",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list PROJECT",
	Short: "List a project's source databases",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListSources")
		if err != nil {
			return err
		}
		defer a.Close()

		remote, err := a.Remote()
		if err != nil {
			return emit(a, nil, err)
		}

		report, err := remote.Catalog.ListSources(cmd.Context(), args[0])
		return emit(a, report, err)
	},
}

var sourcesRefreshCmd = &cobra.Command{
	Use:   "refresh PROJECT",
	Short: "Refresh a project's source catalog on the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RefreshSources")
		if err != nil {
			return err
		}
		defer a.Close()
		a.Persist("project=" + args[0])

		remote, err := a.Remote()
		if err != nil {
			return emit(a, nil, err)
		}

		report, err := remote.Poller.RefreshSources(cmd.Context(), args[0])
		return emit(a, report, err)
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesRefreshCmd)
	rootCmd.AddCommand(sourcesCmd)
}
