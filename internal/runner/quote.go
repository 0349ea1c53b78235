package runner

import "strings"

var doubleQuoteEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"$", `\$`,
	"`", "\\`",
)

// EscapeDoubleQuoted escapes every character the shell interprets inside a
// double-quoted word.
func EscapeDoubleQuoted(s string) string {
	return doubleQuoteEscaper.Replace(s)
}

// QuoteSingle wraps s in single quotes for the shell.
func QuoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
