// Package main is the dbmux entry point.
package main

import (
	"os"

	"github.com/dbmux-labs/dbmux/internal/cli"

	// Link every engine adapter into the binary.
	_ "github.com/dbmux-labs/dbmux/pkg/adapters/clickhouse"
	_ "github.com/dbmux-labs/dbmux/pkg/adapters/duckdb"
	_ "github.com/dbmux-labs/dbmux/pkg/adapters/mysql"
	_ "github.com/dbmux-labs/dbmux/pkg/adapters/postgres"
	_ "github.com/dbmux-labs/dbmux/pkg/adapters/sqlite"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
