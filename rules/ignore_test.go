// ABOUTME: Tests for gitignore-style exclusion: ordering, negation, directory-only patterns, per-root files.
package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatcherLastPatternWins(t *testing.T) {
	m := NewMatcher([]string{"*.log", "!keep.log", "# comment", ""})
	cases := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"debug.log", false, true},
		{"sub/trace.log", false, true},
		{"keep.log", false, false},
		{"notes.txt", false, false},
		{"", true, false},
	}
	for _, tc := range cases {
		if got := m.ShouldIgnore(tc.path, tc.isDir); got != tc.want {
			t.Errorf("ShouldIgnore(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
	if len(m.Patterns()) != 2 {
		t.Errorf("patterns = %v", m.Patterns())
	}
}

func TestMatcherDirectoryPatterns(t *testing.T) {
	m := NewMatcher([]string{"node_modules/", "build/out/"})
	if !m.ShouldIgnore("app/node_modules", true) {
		t.Error("directory not ignored")
	}
	if !m.ShouldIgnore(`app\node_modules\lib\x.js`, false) {
		t.Error("file under ignored directory not ignored")
	}
	if m.ShouldIgnore("node_modules", false) {
		t.Error("file named like directory pattern should not match")
	}
	if !m.ShouldIgnore("build/out", true) {
		t.Error("anchored directory not ignored")
	}
	if m.ShouldIgnore("other/build/out", true) {
		t.Error("anchored pattern matched below root")
	}
}

func TestNilMatcherIgnoresNothing(t *testing.T) {
	var m *Matcher
	if m.ShouldIgnore("anything", false) {
		t.Fatal("nil matcher ignored a path")
	}
}

func TestLoadMatcherLayersRootFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.bak\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".arkignore"), []byte("!important.bak\n!.cache/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadMatcher("", root)
	if err != nil {
		t.Fatalf("LoadMatcher: %v", err)
	}
	if !m.ShouldIgnore("old.bak", false) {
		t.Error(".gitignore pattern not applied")
	}
	if m.ShouldIgnore("important.bak", false) {
		t.Error(".arkignore negation not applied")
	}
	if !m.ShouldIgnore(".git", true) {
		t.Error("baseline .git/ not applied")
	}
	if m.ShouldIgnore(".cache", true) {
		t.Error(".arkignore should re-include .cache/")
	}
}

func TestLoadMatcherBaselineOverride(t *testing.T) {
	rulesDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(rulesDir, "baseline.ignore"), []byte("secret/\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadMatcher(rulesDir, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !m.ShouldIgnore("secret", true) {
		t.Error("override baseline not applied")
	}
	if m.ShouldIgnore("node_modules", true) {
		t.Error("built-in baseline should be replaced by override")
	}
}
