package commands

import (
	"context"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewExecCommand creates the exec command: it runs a write statement
// and prints the affected-row count or inserted identifier.
func NewExecCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "exec <sql>",
		Short: "Run an INSERT, UPDATE or DELETE statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlText := strings.TrimSpace(args[0])

			if !yes && isUnboundedWrite(sqlText) {
				confirmed := false
				prompt := &survey.Confirm{
					Message: "This statement has no WHERE clause and will touch every row. Continue?",
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					color.Yellow("aborted")
					return nil
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			verb := statementVerb(sqlText)
			if verb == "INSERT" {
				id, err := eng.ExecInsert(ctx, sqlText)
				if err != nil {
					color.Red("✗ %v", err)
					return err
				}
				color.Green("✓ inserted id %d", id)
				return nil
			}

			affected, err := eng.Exec(ctx, sqlText)
			if err != nil {
				color.Red("✗ %v", err)
				return err
			}
			color.Green("✓ %d row(s) affected", affected)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func statementVerb(sqlText string) string {
	fields := strings.Fields(strings.ToUpper(sqlText))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// isUnboundedWrite reports whether a statement rewrites a whole table.
func isUnboundedWrite(sqlText string) bool {
	upper := strings.ToUpper(sqlText)
	verb := statementVerb(sqlText)
	if verb != "UPDATE" && verb != "DELETE" {
		return false
	}
	return !strings.Contains(upper, " WHERE ")
}
