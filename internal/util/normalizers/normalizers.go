// Package normalizers cleans up the long descriptions and example blocks
// that commands declare inline, so the help output stays consistent no
// matter how the source literals are indented.
package normalizers

import (
	"strings"
)

const Indentation = `  `

// LongDesc trims a command's long description for help output.
func LongDesc(s string) string {
	return strings.TrimSpace(s)
}

// Examples trims a command's example block and re-indents every line by
// the standard indentation.
func Examples(s string) string {
	if len(s) == 0 {
		return s
	}
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = Indentation + strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}
