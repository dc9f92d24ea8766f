package main

import (
	"io/fs"
	"os"
	"path/filepath"

	"watchloop/internal/globfilter"
	"watchloop/internal/ignoresrc"
	"watchloop/internal/logging"
	"watchloop/internal/monitor"
)

// walkGitignoreFiles walks every root looking for .gitignore files and
// hands each one's parsed patterns, anchored to the directory that
// contains it, to visit.
func walkGitignoreFiles(roots []string, logger *logging.Logger, visit func(dir string, patterns []string)) {
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			gitignorePath := filepath.Join(path, ".gitignore")
			f, openErr := os.Open(gitignorePath)
			if openErr != nil {
				return nil
			}
			defer f.Close()

			patterns := ignoresrc.ParsePatterns(f, path, func(line string) {
				if logger != nil {
					logger.Info("gitignore: negation unsupported, dropping line", map[string]string{
						"path": gitignorePath,
						"line": line,
					})
				}
			})
			if len(patterns) == 0 {
				return nil
			}
			visit(path, patterns)
			return nil
		})
	}
}

// gitignoreOverrides compiles each .gitignore's patterns into a
// per-directory OverrideFilter resolved by nearest-ancestor-prefix match
// (spec.md §9 "Filter layering"), for the live watch path where
// internal/monitor.RecursiveMonitor already carries that concept.
func gitignoreOverrides(roots []string, logger *logging.Logger) []monitor.OverrideFilter {
	var overrides []monitor.OverrideFilter
	walkGitignoreFiles(roots, logger, func(dir string, patterns []string) {
		filter, compileErr := globfilter.New(nil, patterns)
		if compileErr != nil {
			if logger != nil {
				logger.Warn("gitignore: failed to compile patterns", map[string]string{
					"path":  filepath.Join(dir, ".gitignore"),
					"error": compileErr.Error(),
				})
			}
			return
		}
		overrides = append(overrides, monitor.OverrideFilter{Prefix: dir, Filter: filter})
	})
	return overrides
}

// gitignorePatterns flattens every .gitignore's patterns into one exclude
// list, for the one-shot path where internal/oneshot.Differ has no
// per-directory override concept (spec.md §4.6 names only "the primary
// GlobFilter"). Each rooted pattern carries its own directory prefix from
// ParsePatterns; an unrooted pattern from any .gitignore applies to every
// file under every root. This differs from the live path, where only the
// nearest-ancestor override is consulted and only for directories.
func gitignorePatterns(roots []string, logger *logging.Logger) []string {
	var patterns []string
	walkGitignoreFiles(roots, logger, func(_ string, dirPatterns []string) {
		patterns = append(patterns, dirPatterns...)
	})
	return patterns
}
