// This file registers the PostgreSQL adapter with the adapter
// registry. Import this package with a blank identifier to make the
// engine available:
//
//	import _ "github.com/dbmux-labs/dbmux/pkg/adapters/postgres"

package postgres

import (
	"log/slog"

	"github.com/dbmux-labs/dbmux/pkg/adapter"
	"github.com/dbmux-labs/dbmux/pkg/core"
)

func init() {
	adapter.Register(core.EnginePostgres, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
