// ABOUTME: Tests for suffix rule parsing, lookups, categories, and override loading.
package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultSuffixRules(t *testing.T) {
	r := DefaultSuffixRules()
	if !r.IsHardDrop(".TMP") || r.IsHardDrop(".pdf") {
		t.Error("hard drop lookup wrong")
	}
	if !r.IsKeepDefault(".PDF") || r.IsKeepDefault(".exe") {
		t.Error("keep default lookup wrong")
	}
	cases := map[string]string{
		".pdf":  "Document",
		".JPG":  "Image",
		".zip":  "Archive",
		".log":  "Temp/Cache",
		".go":   "Code",
		".weird": "Other",
	}
	for ext, want := range cases {
		if got := r.CategoryOf(ext); got != want {
			t.Errorf("CategoryOf(%s) = %s, want %s", ext, got, want)
		}
	}
}

func TestCategoryOrderFirstMatchWins(t *testing.T) {
	r, err := ParseSuffixRules([]byte(`
categories:
  - name: First
    suffixes: [.x]
  - name: Second
    suffixes: [.x, .y]
`))
	if err != nil {
		t.Fatal(err)
	}
	if r.CategoryOf(".x") != "First" || r.CategoryOf(".y") != "Second" {
		t.Fatalf("categories resolved out of order")
	}
}

func TestLoadSuffixRulesOverride(t *testing.T) {
	dir := t.TempDir()
	if got, err := LoadSuffixRules(dir); err != nil || !got.IsHardDrop(".tmp") {
		t.Fatalf("missing override should fall back to defaults (err=%v)", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "suffix_rules.yaml"), []byte("hard_drop: [.iso]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSuffixRules(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsHardDrop(".iso") || got.IsHardDrop(".tmp") {
		t.Fatal("override not applied")
	}
	if err := os.WriteFile(filepath.Join(dir, "suffix_rules.yaml"), []byte("hard_drop: {"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSuffixRules(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadRulesContext(t *testing.T) {
	dir := t.TempDir()
	if got, err := LoadRulesContext(dir); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	_ = os.WriteFile(filepath.Join(dir, "rules.md"), []byte("prefer photos"), 0644)
	if got, _ := LoadRulesContext(dir); got != "prefer photos" {
		t.Fatalf("got %q", got)
	}
}
