package script

import "strings"

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\x00", `\x00`,
)

// EscapeLiteral makes s safe inside a single-quoted Python string literal.
// Backslashes are escaped along with quotes so caller input ending in a
// backslash cannot swallow the closing quote.
func EscapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}
