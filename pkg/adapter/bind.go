package adapter

import (
	"fmt"
	"strings"

	"github.com/dbmux-labs/dbmux/pkg/core"
)

// PlaceholderStyle selects the placeholder syntax of the engine a
// statement is rewritten for.
type PlaceholderStyle int

const (
	// StyleQuestion rewrites every placeholder to ?. Used by sqlite,
	// duckdb, mysql and clickhouse.
	StyleQuestion PlaceholderStyle = iota

	// StyleDollar rewrites placeholders to $1..$N. Used by postgres.
	// Repeated named placeholders share one ordinal.
	StyleDollar
)

// Bind rewrites a statement's placeholders to the engine's native style
// and collects the driver argument list from params.
//
// Named placeholders (:name, @name, $name) bind by key; a missing key is
// an error. Positional ? placeholders bind by insertion order: the k-th
// ? takes the k-th entry of params. Named lookups do not consume from
// the positional sequence. Text inside string literals, quoted
// identifiers and comments is left alone, as are :: casts, @@ system
// variables and numbered $N placeholders.
//
// Empty params passes the statement through untouched.
func Bind(query string, params *core.Params, style PlaceholderStyle) (string, []any, error) {
	if params.Len() == 0 {
		return query, nil, nil
	}

	var sb strings.Builder
	sb.Grow(len(query) + 16)
	var args []any
	ordinals := make(map[string]int)
	positional := 0
	keys := params.Keys()
	n := len(query)

	i := 0
	for i < n {
		c := query[i]
		switch c {
		case '\'':
			// string literal, '' escapes a quote
			j := i + 1
			for j < n {
				if query[j] == '\'' {
					if j+1 < n && query[j+1] == '\'' {
						j += 2
						continue
					}
					j++
					break
				}
				j++
			}
			sb.WriteString(query[i:j])
			i = j

		case '"', '`':
			// quoted identifier
			j := i + 1
			for j < n && query[j] != c {
				j++
			}
			if j < n {
				j++
			}
			sb.WriteString(query[i:j])
			i = j

		case '-':
			if i+1 < n && query[i+1] == '-' {
				j := i + 2
				for j < n && query[j] != '\n' {
					j++
				}
				sb.WriteString(query[i:j])
				i = j
			} else {
				sb.WriteByte(c)
				i++
			}

		case '/':
			if i+1 < n && query[i+1] == '*' {
				// block comment, nesting allowed (postgres)
				depth := 1
				j := i + 2
				for j < n && depth > 0 {
					switch {
					case j+1 < n && query[j] == '*' && query[j+1] == '/':
						depth--
						j += 2
					case j+1 < n && query[j] == '/' && query[j+1] == '*':
						depth++
						j += 2
					default:
						j++
					}
				}
				sb.WriteString(query[i:j])
				i = j
			} else {
				sb.WriteByte(c)
				i++
			}

		case ':':
			if i+1 < n && query[i+1] == ':' {
				sb.WriteString("::")
				i += 2
				continue
			}
			name, width := placeholderName(query, i+1)
			if width == 0 {
				sb.WriteByte(c)
				i++
				continue
			}
			if err := bindNamed(&sb, &args, ordinals, params, name, style); err != nil {
				return "", nil, err
			}
			i += 1 + width

		case '@':
			if i+1 < n && query[i+1] == '@' {
				sb.WriteString("@@")
				i += 2
				continue
			}
			name, width := placeholderName(query, i+1)
			if width == 0 {
				sb.WriteByte(c)
				i++
				continue
			}
			if err := bindNamed(&sb, &args, ordinals, params, name, style); err != nil {
				return "", nil, err
			}
			i += 1 + width

		case '$':
			name, width := placeholderName(query, i+1)
			if width == 0 {
				sb.WriteByte(c)
				i++
				continue
			}
			if err := bindNamed(&sb, &args, ordinals, params, name, style); err != nil {
				return "", nil, err
			}
			i += 1 + width

		case '?':
			if positional >= len(keys) {
				return "", nil, fmt.Errorf("positional placeholder %d has no matching parameter (%d provided)",
					positional+1, len(keys))
			}
			v, _ := params.Get(keys[positional])
			positional++
			args = append(args, v)
			writeOrdinal(&sb, style, len(args))
			i++

		default:
			sb.WriteByte(c)
			i++
		}
	}

	return sb.String(), args, nil
}

// bindNamed resolves one named placeholder occurrence. In dollar style
// every distinct key gets one ordinal and repeats reuse it; in question
// style every occurrence appends its value again.
func bindNamed(sb *strings.Builder, args *[]any, ordinals map[string]int, params *core.Params, name string, style PlaceholderStyle) error {
	v, ok := params.Get(name)
	if !ok {
		return fmt.Errorf("named parameter %q is not provided", name)
	}
	if style == StyleDollar {
		if ord, seen := ordinals[name]; seen {
			fmt.Fprintf(sb, "$%d", ord)
			return nil
		}
		*args = append(*args, v)
		ordinals[name] = len(*args)
		fmt.Fprintf(sb, "$%d", len(*args))
		return nil
	}
	*args = append(*args, v)
	sb.WriteByte('?')
	return nil
}

func writeOrdinal(sb *strings.Builder, style PlaceholderStyle, ordinal int) {
	if style == StyleDollar {
		fmt.Fprintf(sb, "$%d", ordinal)
		return
	}
	sb.WriteByte('?')
}

// placeholderName reads an identifier at position i. Width 0 means the
// character at i cannot start one (so the sigil was not a placeholder).
func placeholderName(s string, i int) (string, int) {
	if i >= len(s) {
		return "", 0
	}
	c := s[i]
	if !(c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')) {
		return "", 0
	}
	j := i + 1
	for j < len(s) && isWordByte(s[j]) {
		j++
	}
	return s[i:j], j - i
}
