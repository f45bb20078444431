package adapter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbmux-labs/dbmux/pkg/core"
)

// AsString coerces a scanned catalog value to string.
func AsString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// AsBool coerces a scanned catalog flag to bool. Catalogs disagree on
// the shape: sqlite pragmas use integers, duckdb uses booleans,
// information_schema uses "YES"/"NO", clickhouse uses UInt8.
func AsBool(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case int:
		return b != 0
	case int8:
		return b != 0
	case int16:
		return b != 0
	case int32:
		return b != 0
	case int64:
		return b != 0
	case uint8:
		return b != 0
	case uint16:
		return b != 0
	case uint32:
		return b != 0
	case uint64:
		return b != 0
	case float64:
		return b != 0
	case string:
		switch strings.ToUpper(b) {
		case "YES", "TRUE":
			return true
		}
		n, err := strconv.ParseInt(b, 10, 64)
		return err == nil && n != 0
	case []byte:
		return AsBool(string(b))
	default:
		return false
	}
}

// MatchesFromRows converts catalog search rows carrying table_name,
// column_name and data_type columns into MetadataMatch values.
func MatchesFromRows(rs *core.ResultSet) []core.MetadataMatch {
	matches := make([]core.MetadataMatch, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		matches = append(matches, core.MetadataMatch{
			TableName:  AsString(row["table_name"]),
			ColumnName: AsString(row["column_name"]),
			DataType:   AsString(row["data_type"]),
		})
	}
	return matches
}
