package cache

import (
	"fmt"
	"strings"
)

const keySep = ":"

// Key joins parts into a colon separated cache key.
func Key(parts ...interface{}) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString(keySep)
		}
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// PrefixPattern matches every key nested under Key(parts...). The trailing
// separator keeps "u1" from matching "u10". Glob metacharacters inside the
// parts are escaped, so they match only themselves.
func PrefixPattern(parts ...interface{}) string {
	return escapeGlob(Key(parts...)) + keySep + "*"
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }

// parsePattern reads a DeleteByPattern argument: a literal with backslash
// escapes, optionally ending in an unescaped "*".
func parsePattern(pattern string) (literal string, prefix bool) {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		switch ch := pattern[i]; {
		case ch == '\\' && i+1 < len(pattern):
			i++
			b.WriteByte(pattern[i])
		case ch == '*' && i == len(pattern)-1:
			prefix = true
		default:
			b.WriteByte(ch)
		}
	}
	return b.String(), prefix
}
