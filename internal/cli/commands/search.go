package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SearchOptions holds options for the search command.
type SearchOptions struct {
	Tables string
	Format string
}

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	opts := &SearchOptions{}

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search table and column names across backends",
		Long: `Search catalog metadata across every active backend.

The term matches table and column names case-insensitively; --tables
narrows the table names considered with a SQL LIKE pattern.`,
		Example: `  dbmux search customer
  dbmux search id --tables "order%"
  dbmux search email --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Tables, "tables", "", "LIKE pattern filtering table names")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json")

	return cmd
}

func runSearch(cmd *cobra.Command, term string, opts *SearchOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if len(cmdCtx.Cfg.Databases) == 0 {
		return fmt.Errorf("no databases configured")
	}

	ctx := cmd.Context()
	_, router, cleanup := openHub(ctx, cmdCtx)
	defer cleanup()

	return renderMatches(cmd.OutOrStdout(), router.Search(ctx, term, opts.Tables), opts.Format)
}
