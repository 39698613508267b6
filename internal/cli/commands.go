package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"datalink/internal/service"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		Long: `Start the HTTP API. A configured schema.refresh_schedule refreshes the
active connection's schema in the background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
}

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.ServeMCP(cmd.Context())
		},
	}
}

func newFormatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "format [sql]",
		Short: "Format a SQL statement",
		Long: `Put FROM, WHERE, GROUP BY, HAVING and ORDER BY on their own lines.
With no argument the statement is read from stdin.`,
		Example: `  datalink format "select * from users where id = 1"
  cat query.sql | datalink format`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sql := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				sql = string(data)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), service.FormatSQL(strings.TrimSpace(sql)))
			return err
		},
	}
}

func newExportCommand() *cobra.Command {
	var format, columns string
	cmd := &cobra.Command{
		Use:   "export <query-id>",
		Short: "Write a stored result set as CSV or JSON",
		Long: `Write the result rows of one history entry to stdout. The format and the
row cap default to the results.exportFormat and results.maxRows settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			in := service.ExportInput{QueryID: args[0], Format: format}
			if columns != "" {
				in.Columns = strings.Split(columns, ",")
			}
			res, err := a.Export.Export(cmd.Context(), in, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if res.Truncated {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "truncated to %d of %d rows\n", res.RowsWritten, res.RowsRead)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv or json")
	cmd.Flags().StringVar(&columns, "columns", "", "comma-separated columns to keep")
	return cmd
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "datalink %s\n", version)
		},
	}
}
