package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/dbmux-labs/dbmux/internal/hub"
	"github.com/dbmux-labs/dbmux/pkg/core"
)

func runQueryREPL(cmd *cobra.Command, cmdCtx *CommandContext, opts *QueryOptions) error {
	ctx := cmd.Context()

	reg, router, cleanup := openHub(ctx, cmdCtx)
	defer cleanup()

	list := reg.List()
	if len(list) == 0 {
		return fmt.Errorf("no databases available")
	}

	current := opts.Database
	if current == "" {
		current = list[0].Name
	}
	if !hasBackend(list, current) {
		return fmt.Errorf("unknown database %q", current)
	}

	// History lives in the home directory; the REPL works without it.
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".dbmux")
		if err := os.MkdirAll(dir, 0o750); err == nil {
			historyFile = filepath.Join(dir, "query_history")
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt(current),
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(ctx, router, list, current),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "dbmux REPL (%d databases)\n", len(list))
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	// REPL loop
	var multiLineBuffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt(replPrompt(current))
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Handle dot-commands
		if strings.HasPrefix(line, ".") {
			quit, next := handleDotCommand(ctx, cmd, reg, router, line, current, opts.Format)
			if quit {
				break
			}
			if next != current {
				current = next
				rl.SetPrompt(replPrompt(current))
			}
			continue
		}

		// Accumulate multi-line SQL until semicolon
		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString(" ")
			rl.SetPrompt("    ...> ")
			continue
		}
		rl.SetPrompt(replPrompt(current))

		query := strings.TrimSuffix(multiLineBuffer.String(), ";")
		multiLineBuffer.Reset()

		res, err := router.ExecuteOne(ctx, current, query, nil)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		if err := renderQueryResult(out, res, opts.Format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(out)
	}

	return nil
}

func replPrompt(name string) string {
	return fmt.Sprintf("dbmux [%s]> ", name)
}

func hasBackend(list []core.DatabaseSummary, name string) bool {
	for _, s := range list {
		if s.Name == name {
			return true
		}
	}
	return false
}

// handleDotCommand runs one REPL dot-command. It returns whether to
// quit and the backend now targeted.
func handleDotCommand(ctx context.Context, cmd *cobra.Command, reg *hub.Registry, router *hub.Router, line, current, format string) (bool, string) {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	switch command {
	case ".quit", ".exit":
		return true, current

	case ".help":
		printREPLHelp(out)

	case ".databases":
		for _, s := range reg.List() {
			marker := " "
			if s.Name == current {
				marker = "*"
			}
			state := "active"
			if !s.IsActive {
				state = "inactive"
			}
			_, _ = fmt.Fprintf(out, "%s %s (%s, %s)\n", marker, s.Name, s.Engine, state)
		}

	case ".use":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(errOut, "Usage: .use <database>")
			break
		}
		if !hasBackend(reg.List(), parts[1]) {
			_, _ = fmt.Fprintf(errOut, "Unknown database: %s\n", parts[1])
			break
		}
		return false, parts[1]

	case ".tables":
		desc, err := router.GetSchema(ctx, current)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		if !desc.Success {
			_, _ = fmt.Fprintf(errOut, "Error: %s\n", desc.Error)
			break
		}
		for _, name := range desc.TableNames() {
			_, _ = fmt.Fprintln(out, name)
		}

	case ".schema":
		desc, err := router.GetSchema(ctx, current)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		if !desc.Success {
			_, _ = fmt.Fprintf(errOut, "Error: %s\n", desc.Error)
			break
		}
		if len(parts) > 1 {
			found := false
			for _, tbl := range desc.Tables {
				if tbl.Name == parts[1] {
					renderTableSchema(out, tbl)
					found = true
					break
				}
			}
			if !found {
				_, _ = fmt.Fprintf(errOut, "Table not found: %s\n", parts[1])
			}
			break
		}
		if err := renderSchema(out, desc, format); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}

	case ".search":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(errOut, "Usage: .search <term>")
			break
		}
		if err := renderMatches(out, router.Search(ctx, parts[1], ""), format); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}

	case ".clear":
		fmt.Print("\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", command)
	}

	return false, current
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help             Show this help message
  .databases        List configured databases
  .use <name>       Switch the target database
  .tables           List tables in the target database
  .schema [table]   Show schema for all tables or one
  .search <term>    Search table and column names everywhere
  .clear            Clear the screen
  .quit / .exit     Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table and database names
`
	_, _ = fmt.Fprintln(w, help)
}

// newREPLCompleter creates a readline completer covering the initial
// target's table names, the database names and the dot-commands.
func newREPLCompleter(ctx context.Context, router *hub.Router, list []core.DatabaseSummary, current string) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	if desc, err := router.GetSchema(ctx, current); err == nil && desc.Success {
		for _, name := range desc.TableNames() {
			items = append(items, readline.PcItem(name))
		}
	}

	dbItems := make([]readline.PrefixCompleterInterface, len(list))
	for i, s := range list {
		dbItems[i] = readline.PcItem(s.Name)
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".databases"),
		readline.PcItem(".use", dbItems...),
		readline.PcItem(".tables"),
		readline.PcItem(".schema"),
		readline.PcItem(".search"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
