package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"datalink/internal/domain"
)

func newConnectionsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conns"},
		Short:   "List saved connections",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			conns, err := a.Connections.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(conns)
			}
			renderConnections(cmd.OutOrStdout(), conns)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func renderConnections(w io.Writer, conns []domain.Connection) {
	if len(conns) == 0 {
		_, _ = fmt.Fprintln(w, "(no connections)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "ID", "Name", "Type", "Host", "Database", "Last connected"})
	for _, c := range conns {
		active := ""
		if c.IsActive {
			active = "*"
		}
		host := c.Host
		if c.Port != nil {
			host += ":" + strconv.Itoa(*c.Port)
		}
		last := "never"
		if c.LastConnectedAt != nil {
			last = c.LastConnectedAt.Local().Format(time.DateTime)
		}
		t.AppendRow(table.Row{active, c.ID, c.Name, c.Kind, host, c.Database, last})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d connections)\n", len(conns))
}
