package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// file command: local workspace file operations on model projects.
var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Manage project files",
}

var fileListCmd = &cobra.Command{
	Use:   "list PROJECT [DIRECTORY]",
	Short: "List files in a project",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		dir := ""
		if len(args) > 1 {
			dir = args[1]
		}

		report, err := a.Store.ListFiles(args[0], dir)
		return emit(a, report, err)
	},
}

var fileReadCmd = &cobra.Command{
	Use:   "read PROJECT FILE",
	Short: "Read a project file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ReadFile")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Store.ReadFile(args[0], args[1])
		return emit(a, report, err)
	},
}

var fileWriteCmd = &cobra.Command{
	Use:   "write PROJECT FILE [CONTENT]",
	Short: "Write a project file",
	Long:  "Write content to a project file. With no CONTENT argument the content is read from stdin.",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("WriteFile")
		if err != nil {
			return err
		}
		defer a.Close()
		a.Persist(fmt.Sprintf("project=%s file=%s", args[0], args[1]))

		var content []byte
		if len(args) > 2 {
			content = []byte(args[2])
		} else {
			content, err = io.ReadAll(os.Stdin)
			if err != nil {
				return emit(a, nil, fmt.Errorf("reading stdin: %w", err))
			}
		}

		report, err := a.Store.WriteFile(args[0], args[1], content)
		return emit(a, report, err)
	},
}

var fileDeleteCmd = &cobra.Command{
	Use:   "delete PROJECT FILE",
	Short: "Delete a project file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteFile")
		if err != nil {
			return err
		}
		defer a.Close()
		a.Persist(fmt.Sprintf("project=%s file=%s", args[0], args[1]))

		report, err := a.Store.DeleteFile(args[0], args[1])
		return emit(a, report, err)
	},
}

func init() {
	fileCmd.AddCommand(fileListCmd)
	fileCmd.AddCommand(fileReadCmd)
	fileCmd.AddCommand(fileWriteCmd)
	fileCmd.AddCommand(fileDeleteCmd)
	rootCmd.AddCommand(fileCmd)
}
