// This file registers the MySQL adapter with the adapter registry.
// Import this package with a blank identifier to make the engine
// available:
//
//	import _ "github.com/dbmux-labs/dbmux/pkg/adapters/mysql"

package mysql

import (
	"log/slog"

	"github.com/dbmux-labs/dbmux/pkg/adapter"
	"github.com/dbmux-labs/dbmux/pkg/core"
)

func init() {
	adapter.Register(core.EngineMySQL, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
