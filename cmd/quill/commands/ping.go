// Package commands implements the quill CLI commands.
package commands

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quillsql/quill/config"
	"github.com/quillsql/quill/engine"
)

// openEngine loads configuration and opens a verified engine.
func openEngine(ctx context.Context) (*engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return cfg.Open(ctx)
}

// NewPingCommand creates the ping command.
func NewPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the database connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			start := time.Now()
			eng, err := openEngine(ctx)
			if err != nil {
				color.Red("✗ connection failed: %v", err)
				return err
			}
			defer eng.Close()

			color.Green("✓ connected to %s in %s", eng.Provider(), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
