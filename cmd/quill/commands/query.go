package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/quillsql/quill/result"
)

var summaryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00D9FF"))

// NewQueryCommand creates the query command: it runs a SELECT and
// renders the rows as a table.
func NewQueryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SELECT statement and print the rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			start := time.Now()
			rows, err := eng.Query(ctx, args[0])
			if err != nil {
				return err
			}
			cur, err := result.NewCursor(rows, result.Shape{})
			if err != nil {
				return err
			}
			defer cur.Close()

			all, err := cur.ToArray()
			if err != nil {
				return err
			}
			if limit > 0 && len(all) > limit {
				all = all[:limit]
			}

			cols := cur.Columns()
			table := pterm.TableData{cols}
			for _, row := range all {
				line := make([]string, len(cols))
				for i, col := range cols {
					line[i] = formatValue(row[col])
				}
				table = append(table, line)
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(table).Render(); err != nil {
				return err
			}

			fmt.Println(summaryStyle.Render(
				fmt.Sprintf("%d row(s) in %s", len(all), time.Since(start).Round(time.Millisecond))))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows to print (0 = all)")
	return cmd
}

func formatValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	s := fmt.Sprintf("%v", v)
	return strings.ReplaceAll(s, "\n", "\\n")
}
