// Package globfilter compiles include/exclude glob pattern lists into a
// single include-then-exclude match decision over path strings.
package globfilter

import (
	"fmt"

	"github.com/gobwas/glob"
)

// DefaultIgnore is the built-in exclude set applied unless the operator
// disables it.
var DefaultIgnore = []string{
	"*/.DS_Store",
	"*.py[co]",
	"*/#*#",
	"*/.#*",
	"*/.*.kate-swp",
	"*/.*.sw?",
	"*/.*.sw?x",
	"*/.git/*",
}

// Filter is a compiled include/exclude decision. A path matches iff at
// least one include pattern matches and no exclude pattern matches. An
// empty include list is treated as the universal pattern.
type Filter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// New compiles include and exclude glob pattern lists.
func New(include, exclude []string) (*Filter, error) {
	includeGlobs, err := compileAll(include)
	if err != nil {
		return nil, fmt.Errorf("globfilter: include pattern: %w", err)
	}
	excludeGlobs, err := compileAll(exclude)
	if err != nil {
		return nil, fmt.Errorf("globfilter: exclude pattern: %w", err)
	}
	return &Filter{include: includeGlobs, exclude: excludeGlobs}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Match reports whether path passes the filter: included and not excluded.
func (f *Filter) Match(path string) bool {
	if f == nil {
		return true
	}
	if !f.matchesInclude(path) {
		return false
	}
	return !f.matchesExclude(path)
}

func (f *Filter) matchesInclude(path string) bool {
	if len(f.include) == 0 {
		return true
	}
	for _, g := range f.include {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func (f *Filter) matchesExclude(path string) bool {
	for _, g := range f.exclude {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Empty reports whether the filter has neither include nor exclude patterns.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.include) == 0 && len(f.exclude) == 0)
}
