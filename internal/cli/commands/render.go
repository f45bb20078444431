package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dbmux-labs/dbmux/pkg/core"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
	formatMD    = "md"
)

// renderQueryResult renders a single-backend result. A failed execution
// becomes an error so the process exits nonzero; json mode instead
// emits the envelope as-is and leaves the verdict to the caller's jq.
func renderQueryResult(w io.Writer, res *core.QueryResult, format string) error {
	if format == formatJSON {
		return renderJSON(w, res)
	}
	if !res.Success {
		return fmt.Errorf("query failed on %s: %s", res.BackendName, res.Error)
	}
	if len(res.Columns) == 0 {
		_, _ = fmt.Fprintf(w, "OK (%d rows affected)\n", res.RowCount)
		return nil
	}
	return renderGrid(w, res.Columns, res.Rows, format)
}

// renderQueryResults renders a fan-out result map. Per-backend failures
// print inline; partial results are the point of fan-out.
func renderQueryResults(w io.Writer, results map[string]*core.QueryResult, format string) error {
	if format == formatJSON {
		return renderJSON(w, results)
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := results[name]
		_, _ = fmt.Fprintf(w, "== %s ==\n", name)
		switch {
		case !res.Success:
			_, _ = fmt.Fprintf(w, "Error: %s\n", res.Error)
		case len(res.Columns) == 0:
			_, _ = fmt.Fprintf(w, "OK (%d rows affected)\n", res.RowCount)
		default:
			if err := renderGrid(w, res.Columns, res.Rows, format); err != nil {
				return err
			}
		}
		_, _ = fmt.Fprintln(w)
	}
	return nil
}

// The grid renderers order values by the Columns list; row maps carry
// no order of their own.
func renderGrid(w io.Writer, cols []string, rows []core.Row, format string) error {
	switch format {
	case formatCSV:
		return renderCSV(w, cols, rows)
	case formatMD, "markdown":
		return renderMarkdown(w, cols, rows)
	default:
		return renderTable(w, cols, rows)
	}
}

func renderTable(w io.Writer, cols []string, rows []core.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(r[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func renderCSV(w io.Writer, cols []string, rows []core.Row) error {
	_, _ = fmt.Fprintln(w, strings.Join(cols, ","))

	for _, r := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = escapeCSV(formatValue(r[col]))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, cols []string, rows []core.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, r := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = formatValue(r[col])
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// renderSchema renders one backend's schema description.
func renderSchema(w io.Writer, desc *core.SchemaDescription, format string) error {
	if format == formatJSON {
		return renderJSON(w, desc)
	}
	if !desc.Success {
		return fmt.Errorf("schema introspection failed on %s: %s", desc.BackendName, desc.Error)
	}

	_, _ = fmt.Fprintf(w, "Database: %s (%s)\n", desc.BackendName, desc.Engine)
	if len(desc.Tables) == 0 {
		_, _ = fmt.Fprintln(w, "(no tables)")
		return nil
	}
	for _, tbl := range desc.Tables {
		renderTableSchema(w, tbl)
	}
	return nil
}

// renderSchemas renders the all-backends schema map. Failed backends
// print inline.
func renderSchemas(w io.Writer, all map[string]*core.SchemaDescription, format string) error {
	if format == formatJSON {
		return renderJSON(w, all)
	}

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		desc := all[name]
		_, _ = fmt.Fprintf(w, "== %s (%s) ==\n", name, desc.Engine)
		switch {
		case !desc.Success:
			_, _ = fmt.Fprintf(w, "Error: %s\n", desc.Error)
		case len(desc.Tables) == 0:
			_, _ = fmt.Fprintln(w, "(no tables)")
		default:
			for _, tbl := range desc.Tables {
				renderTableSchema(w, tbl)
			}
		}
		_, _ = fmt.Fprintln(w)
	}
	return nil
}

func renderTableSchema(w io.Writer, tbl core.TableSchema) {
	_, _ = fmt.Fprintf(w, "\nTable: %s\n", tbl.Name)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Nullable", "Key"})

	for _, col := range tbl.Columns {
		nullable := "YES"
		if !col.Nullable {
			nullable = "NO"
		}
		key := ""
		if col.PrimaryKey {
			key = "PK"
		}
		t.AppendRow(table.Row{col.Name, col.Type, nullable, key})
	}
	t.Render()
}

// renderMatches renders cross-backend metadata search results as one
// flat table.
func renderMatches(w io.Writer, matches map[string][]core.MetadataMatch, format string) error {
	if format == formatJSON {
		return renderJSON(w, matches)
	}

	names := make([]string, 0, len(matches))
	for name := range matches {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Database", "Table", "Column", "Type"})

	total := 0
	for _, name := range names {
		for _, m := range matches[name] {
			t.AppendRow(table.Row{name, m.TableName, m.ColumnName, m.DataType})
			total++
		}
	}

	if total == 0 {
		_, _ = fmt.Fprintln(w, "(no matches)")
		return nil
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d matches)\n", total)
	return nil
}
