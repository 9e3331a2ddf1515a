// Package main is the entry point for the quill CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillsql/quill/cmd/quill/commands"
	"github.com/quillsql/quill/internal/debug"
)

// Version information (set by build).
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var debugFlag bool

	rootCmd := &cobra.Command{
		Use:     "quill",
		Short:   "SQL toolkit CLI",
		Long:    "Quill is a SQL query builder and active-record toolkit for Go",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugFlag {
				debug.Init(true)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(commands.NewPingCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewExecCommand())

	return rootCmd.Execute()
}
