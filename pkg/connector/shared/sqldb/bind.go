package sqldb

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
)

// Bind rewrites ":name" parameters in query to the dialect's placeholders
// and returns the matching argument list. Parameters inside quoted strings,
// quoted identifiers, "--" line comments and "/* */" block comments are left
// alone, as are "::" casts. A parameter without a value in params is an error.
func Bind(d Dialect, query string, params core.Params) (string, []interface{}, error) {
	var (
		out   strings.Builder
		args  []interface{}
		index = map[string]int{}
	)
	out.Grow(len(query))

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(query, i, c)
			out.WriteString(query[i:end])
			i = end - 1

		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query) - i
			}
			out.WriteString(query[i : i+end])
			i += end - 1

		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				end = len(query)
			} else {
				end += i + 4
			}
			out.WriteString(query[i:end])
			i = end - 1

		case c == ':' && i+1 < len(query) && query[i+1] == ':':
			out.WriteString("::")
			i++

		case c == ':' && i+1 < len(query) && isIdentStart(query[i+1]):
			j := i + 1
			for j < len(query) && isIdentPart(query[j]) {
				j++
			}
			name := query[i+1 : j]
			value, ok := params[name]
			if !ok {
				return "", nil, fmt.Errorf("no value for query parameter ':%s'", name)
			}

			if d.Numbered() {
				n, seen := index[name]
				if !seen {
					args = append(args, value)
					n = len(args)
					index[name] = n
				}
				out.WriteString(d.Placeholder(n))
			} else {
				args = append(args, value)
				out.WriteString(d.Placeholder(len(args)))
			}
			i = j - 1

		default:
			out.WriteByte(c)
		}
	}
	return out.String(), args, nil
}

// skipQuoted returns the index just past the quoted section starting at
// start. A doubled quote character is an escaped quote.
func skipQuoted(s string, start int, quote byte) int {
	for i := start + 1; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
