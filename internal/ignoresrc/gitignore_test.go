package ignoresrc

import (
	"strings"
	"testing"

	"watchloop/internal/globfilter"
)

func TestParsePatternsDropsBlanksAndComments(t *testing.T) {
	src := "# a comment\n\n*.log\nnode_modules\n"
	patterns := ParsePatterns(strings.NewReader(src), "", nil)
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d: %v", len(patterns), patterns)
	}
}

func TestParsePatternsSkipsNegation(t *testing.T) {
	var skipped []string
	src := "*.log\n!important.log\n"
	patterns := ParsePatterns(strings.NewReader(src), "", func(line string) {
		skipped = append(skipped, line)
	})
	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}
	if len(skipped) != 1 || skipped[0] != "!important.log" {
		t.Fatalf("expected negated line reported, got %v", skipped)
	}
}

func TestParsedPatternsFeedGlobFilter(t *testing.T) {
	patterns := ParsePatterns(strings.NewReader("build\n*.tmp\n"), "", nil)
	filter, err := globfilter.New(nil, patterns)
	if err != nil {
		t.Fatalf("globfilter.New: %v", err)
	}
	if !filter.Match("src/main.go") {
		t.Fatal("expected unrelated file to pass")
	}
	if filter.Match("a/b/build/out") {
		t.Fatal("expected nested build dir to be excluded")
	}
	if filter.Match("a/x.tmp") {
		t.Fatal("expected nested *.tmp to be excluded")
	}
}

func TestParsePatternsAnchorsRootedLineToDir(t *testing.T) {
	patterns := ParsePatterns(strings.NewReader("/build\n"), "/repo", nil)
	filter, err := globfilter.New(nil, patterns)
	if err != nil {
		t.Fatalf("globfilter.New: %v", err)
	}
	if filter.Match("/repo/build") {
		t.Fatal("expected rooted pattern to exclude the directory directly under the ignore file")
	}
	if !filter.Match("/repo/vendor/build") {
		t.Fatal("expected rooted pattern not to exclude a same-named directory elsewhere in the tree")
	}
}
