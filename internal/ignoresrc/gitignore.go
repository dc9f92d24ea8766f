// Package ignoresrc ingests .gitignore-style files into plain exclude glob
// patterns for internal/globfilter. Negation (!) is not supported: a
// negated line is dropped rather than misapplied (see DESIGN.md).
package ignoresrc

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"
)

// ParsePatterns reads gitignore-style lines and returns exclude glob
// patterns anchored at dir, the directory containing the .gitignore file
// (the same path the caller will use as an OverrideFilter's Prefix). Blank
// lines and comment lines (#) are dropped. A negated line is dropped with a
// caller-supplied report of the skip, if reportSkip is non-nil.
func ParsePatterns(r io.Reader, dir string, reportSkip func(line string)) []string {
	patterns := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "!") {
			if reportSkip != nil {
				reportSkip(line)
			}
			continue
		}
		patterns = append(patterns, toRecursivePattern(line, dir))
	}
	return patterns
}

// toRecursivePattern makes a bare gitignore entry match at any depth, along
// with everything beneath a directory of that name, mirroring the "**/name"
// expansion syncthing's ignore parser performs for unrooted lines, without
// importing its glob-library internals. A rooted
// entry (leading "/") is joined onto dir instead, since globfilter.Filter
// matches full paths and a bare "build" never equals an absolute path.
func toRecursivePattern(line, dir string) string {
	trimmed := strings.TrimPrefix(line, "/")
	if trimmed != line {
		if dir == "" {
			return trimmed
		}
		return filepath.Join(dir, trimmed)
	}
	if strings.Contains(trimmed, "/") {
		return trimmed
	}
	return "{*/" + trimmed + ",*/" + trimmed + "/*}"
}
