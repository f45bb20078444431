// This file registers the ClickHouse adapter with the adapter
// registry. Import this package with a blank identifier to make the
// engine available:
//
//	import _ "github.com/dbmux-labs/dbmux/pkg/adapters/clickhouse"

package clickhouse

import (
	"log/slog"

	"github.com/dbmux-labs/dbmux/pkg/adapter"
	"github.com/dbmux-labs/dbmux/pkg/core"
)

func init() {
	adapter.Register(core.EngineClickHouse, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
