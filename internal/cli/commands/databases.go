package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// DatabasesOptions holds options for the databases command.
type DatabasesOptions struct {
	Check  bool
	Format string
}

// databaseRow is one databases listing entry, optionally with the
// result of a health probe.
type databaseRow struct {
	Name     string   `json:"name"`
	Engine   string   `json:"engine"`
	Host     string   `json:"host,omitempty"`
	Database string   `json:"database"`
	Active   bool     `json:"active"`
	Healthy  *bool    `json:"healthy,omitempty"`
	Response *float64 `json:"response_time,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// NewDatabasesCommand creates the databases command.
func NewDatabasesCommand() *cobra.Command {
	opts := &DatabasesOptions{}

	cmd := &cobra.Command{
		Use:   "databases",
		Short: "List configured databases",
		Long: `List the databases from the configuration.

The plain listing reads the config only and opens no connections.
With --check, every backend is connected and probed.`,
		Example: `  dbmux databases
  dbmux databases --check
  dbmux databases --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDatabases(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Check, "check", false, "Connect and probe each backend")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json")

	return cmd
}

func runDatabases(cmd *cobra.Command, opts *DatabasesOptions) error {
	cmdCtx := NewCommandContext(cmd)

	rows := make([]databaseRow, 0, len(cmdCtx.Cfg.Databases))
	for _, bc := range cmdCtx.Cfg.Databases {
		rows = append(rows, databaseRow{
			Name:     bc.Name,
			Engine:   bc.Engine,
			Host:     bc.Host,
			Database: bc.Database,
			Active:   bc.Enabled(),
		})
	}

	if opts.Check {
		ctx := cmd.Context()
		_, router, cleanup := openHub(ctx, cmdCtx)
		defer cleanup()

		for i := range rows {
			hs, err := router.Health(ctx, rows[i].Name)
			if err != nil {
				// Registration failed; the backend never made it in.
				healthy := false
				rows[i].Healthy = &healthy
				rows[i].Error = err.Error()
				continue
			}
			rows[i].Healthy = &hs.Healthy
			rows[i].Response = &hs.ResponseTime
			rows[i].Error = hs.Error
		}
	}

	return renderDatabaseRows(cmd.OutOrStdout(), rows, opts.Check, opts.Format)
}

func renderDatabaseRows(w io.Writer, rows []databaseRow, withHealth bool, format string) error {
	if format == formatJSON {
		return renderJSON(w, rows)
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(no databases configured)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"Name", "Engine", "Database", "Active"}
	if withHealth {
		header = append(header, "Healthy", "Response", "Error")
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := table.Row{r.Name, r.Engine, r.Database, yesNo(r.Active)}
		if withHealth {
			switch {
			case r.Healthy == nil:
				row = append(row, "-", "-", "")
			case *r.Healthy:
				ms := "-"
				if r.Response != nil {
					ms = fmt.Sprintf("%.1fms", *r.Response*1000)
				}
				row = append(row, "yes", ms, "")
			default:
				row = append(row, "no", "-", r.Error)
			}
		}
		t.AppendRow(row)
	}

	t.Render()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
