package formatter

import (
	"go/format"
	"regexp"
	"sort"
	"strings"

	"github.com/mcncl/jsonshape/internal/errors"
)

// Formatter is responsible for formatting Go code according to standard conventions
type Formatter struct{}

// NewFormatter creates a new Formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

var importBlock = regexp.MustCompile(`(?s)\nimport\s*\((.*?)\n\)`)

// Format gofmts code and groups the import block into standard library imports
// followed by everything else.
func (f *Formatter) Format(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", nil
	}

	formatted, err := format.Source([]byte(code))
	if err != nil {
		return "", errors.NewFormatError("failed to parse Go code", err)
	}

	grouped := groupImports(string(formatted))
	if grouped == string(formatted) {
		return grouped, nil
	}

	// regrouping moves lines; let gofmt settle them again
	formatted, err = format.Source([]byte(grouped))
	if err != nil {
		return "", errors.NewFormatError("failed to format regrouped imports", err)
	}
	return string(formatted), nil
}

// groupImports rewrites the first parenthesized import block. Blocks containing
// comments are left alone.
func groupImports(code string) string {
	match := importBlock.FindStringSubmatchIndex(code)
	if match == nil {
		return code
	}
	body := code[match[2]:match[3]]
	if strings.Contains(body, "//") || strings.Contains(body, "/*") {
		return code
	}

	var std, other []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isStdlib(line) {
			std = append(std, line)
		} else {
			other = append(other, line)
		}
	}
	sort.Slice(std, func(i, j int) bool { return importPath(std[i]) < importPath(std[j]) })
	sort.Slice(other, func(i, j int) bool { return importPath(other[i]) < importPath(other[j]) })

	var b strings.Builder
	b.WriteString("\nimport (\n")
	for _, line := range std {
		b.WriteString("\t" + line + "\n")
	}
	if len(std) > 0 && len(other) > 0 {
		b.WriteString("\n")
	}
	for _, line := range other {
		b.WriteString("\t" + line + "\n")
	}
	b.WriteString(")")

	return code[:match[0]] + b.String() + code[match[1]:]
}

// importPath strips an optional import name from an import spec line.
func importPath(line string) string {
	if i := strings.IndexByte(line, '"'); i >= 0 {
		return strings.Trim(line[i:], `"`)
	}
	return line
}

// isStdlib reports whether the import path has no dot in its first element.
func isStdlib(line string) bool {
	path := importPath(line)
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}
