// ABOUTME: Gitignore-style path exclusion built from baseline rules plus per-root .gitignore and .arkignore.
// ABOUTME: Later patterns override earlier ones; a leading "!" re-includes a path.
package rules

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

//go:embed defaults/baseline.ignore
var baselineIgnore string

// Matcher decides whether a path relative to a source root is excluded.
type Matcher struct {
	patterns []string
	m        gitignore.Matcher
}

// NewMatcher compiles pattern lines in order. Blank lines and comments are
// skipped.
func NewMatcher(lines []string) *Matcher {
	var kept []string
	var ps []gitignore.Pattern
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, line)
		ps = append(ps, gitignore.ParsePattern(line, nil))
	}
	return &Matcher{patterns: kept, m: gitignore.NewMatcher(ps)}
}

// LoadMatcher builds the matcher for one source root: the baseline (from
// rulesDir when present, else the built-in copy), then the root's .gitignore,
// then its .arkignore.
func LoadMatcher(rulesDir, sourceRoot string) (*Matcher, error) {
	var lines []string

	baseline, err := readOverride(rulesDir, "baseline.ignore")
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		baseline = splitLines(baselineIgnore)
	}
	lines = append(lines, baseline...)

	for _, name := range []string{".gitignore", ".arkignore"} {
		extra, err := readLines(filepath.Join(sourceRoot, name))
		if err != nil {
			return nil, err
		}
		lines = append(lines, extra...)
	}
	return NewMatcher(lines), nil
}

// ShouldIgnore reports whether relPath (slash or backslash separated) is
// excluded. The empty path is never ignored.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	norm := strings.Trim(strings.ReplaceAll(relPath, "\\", "/"), "/")
	if norm == "" {
		return false
	}
	return m.m.Match(strings.Split(norm, "/"), isDir)
}

// Patterns returns the compiled pattern lines in order.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

func readOverride(rulesDir, name string) ([]string, error) {
	if rulesDir == "" {
		return nil, nil
	}
	path := filepath.Join(rulesDir, name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return readLines(path)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
