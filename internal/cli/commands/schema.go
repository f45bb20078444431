package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SchemaOptions holds options for the schema command.
type SchemaOptions struct {
	Format string
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	opts := &SchemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema [database]",
		Short: "Show table schemas",
		Long: `Introspect table schemas.

With a database argument, shows that backend's tables. Without one,
walks every active backend.`,
		Example: `  dbmux schema inventory
  dbmux schema --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json")

	return cmd
}

func runSchema(cmd *cobra.Command, args []string, opts *SchemaOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if len(cmdCtx.Cfg.Databases) == 0 {
		return fmt.Errorf("no databases configured")
	}

	ctx := cmd.Context()
	_, router, cleanup := openHub(ctx, cmdCtx)
	defer cleanup()

	if len(args) == 1 {
		desc, err := router.GetSchema(ctx, args[0])
		if err != nil {
			return err
		}
		return renderSchema(cmd.OutOrStdout(), desc, opts.Format)
	}

	return renderSchemas(cmd.OutOrStdout(), router.GetAllSchemas(ctx), opts.Format)
}
