package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dbmux-labs/dbmux/internal/hub"
	"github.com/dbmux-labs/dbmux/pkg/core"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Database string
	All      bool
	Params   string
	Format   string
	Input    string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run a query against one or all backends",
		Long: `Execute SQL against a configured backend.

SQL can be passed as an argument, read from a file or piped on stdin.
When invoked without input on a terminal, enters interactive REPL mode.

Named parameters (:name, @name, $name) and positional ? placeholders
bind from --params; positional placeholders consume the JSON object's
entries in document order.`,
		Example: `  # One backend
  dbmux query -d inventory "SELECT * FROM widgets"

  # Bound parameters
  dbmux query -d inventory "SELECT * FROM widgets WHERE label = :label" --params '{"label": "bolt"}'

  # Every active backend
  dbmux query --all "SELECT count(*) AS total FROM events"

  # JSON output for scripting
  dbmux query -d inventory "SELECT * FROM widgets" --format json

  # Interactive mode
  dbmux query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Database, "database", "d", "", "Backend to query")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Fan the query out to every active backend")
	cmd.Flags().StringVar(&opts.Params, "params", "", "Bound parameters as a JSON object")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if len(cmdCtx.Cfg.Databases) == 0 {
		return fmt.Errorf("no databases configured (create dbmux.yaml or pass DBMUX_ environment variables)")
	}

	// Determine SQL source
	var sqlText string

	switch {
	case len(args) > 0:
		sqlText = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlText = string(content)
	case !isTerminal(os.Stdin):
		// Read from stdin (piped input)
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlText = string(content)
	default:
		// No input, TTY detected - enter REPL mode
		return runQueryREPL(cmd, cmdCtx, opts)
	}

	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	reg, router, cleanup := openHub(ctx, cmdCtx)
	defer cleanup()

	if opts.All {
		return renderQueryResults(cmd.OutOrStdout(), router.ExecuteAll(ctx, sqlText, params), opts.Format)
	}

	name, err := pickBackend(reg, opts.Database)
	if err != nil {
		return err
	}
	res, err := router.ExecuteOne(ctx, name, sqlText, params)
	if err != nil {
		return err
	}
	return renderQueryResult(cmd.OutOrStdout(), res, opts.Format)
}

// parseParams decodes the --params JSON object, preserving key order.
func parseParams(raw string) (*core.Params, error) {
	if raw == "" {
		return nil, nil
	}
	params := &core.Params{}
	if err := json.Unmarshal([]byte(raw), params); err != nil {
		return nil, fmt.Errorf("invalid --params: %w", err)
	}
	return params, nil
}

// pickBackend resolves the query target: the named backend, or the only
// one registered.
func pickBackend(reg *hub.Registry, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	list := reg.List()
	if len(list) == 0 {
		return "", fmt.Errorf("no databases available")
	}
	if len(list) == 1 {
		return list[0].Name, nil
	}
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name
	}
	return "", fmt.Errorf("multiple databases configured (%s); pick one with --database or use --all",
		strings.Join(names, ", "))
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
