// ABOUTME: Suffix rules for stage-one screening: hard-drop list, keep-by-default list, display categories.
// ABOUTME: Loaded from YAML, either a user override file or the built-in defaults.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/suffix_rules.yaml
var defaultSuffixRules []byte

// Category groups suffixes under a display name.
type Category struct {
	Name     string   `yaml:"name"`
	Suffixes []string `yaml:"suffixes"`
}

// SuffixRules is the parsed suffix rule file.
type SuffixRules struct {
	HardDrop    []string   `yaml:"hard_drop"`
	KeepDefault []string   `yaml:"keep_default"`
	Categories  []Category `yaml:"categories"`

	hardDrop map[string]bool
	keep     map[string]bool
}

// DefaultSuffixRules returns the built-in rules.
func DefaultSuffixRules() *SuffixRules {
	r, err := ParseSuffixRules(defaultSuffixRules)
	if err != nil {
		panic(fmt.Sprintf("built-in suffix rules: %v", err))
	}
	return r
}

// ParseSuffixRules decodes YAML suffix rules.
func ParseSuffixRules(data []byte) (*SuffixRules, error) {
	var r SuffixRules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse suffix rules: %w", err)
	}
	r.hardDrop = lowerSet(r.HardDrop)
	r.keep = lowerSet(r.KeepDefault)
	return &r, nil
}

// LoadSuffixRules reads suffix_rules.yaml from rulesDir, falling back to the
// built-in rules when the directory or file is absent.
func LoadSuffixRules(rulesDir string) (*SuffixRules, error) {
	if rulesDir == "" {
		return DefaultSuffixRules(), nil
	}
	data, err := os.ReadFile(filepath.Join(rulesDir, "suffix_rules.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSuffixRules(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read suffix rules: %w", err)
	}
	return ParseSuffixRules(data)
}

// IsHardDrop reports whether ext is dropped without classification.
func (r *SuffixRules) IsHardDrop(ext string) bool {
	return r.hardDrop[strings.ToLower(ext)]
}

// IsKeepDefault reports whether ext is kept when no classifier answer exists.
func (r *SuffixRules) IsKeepDefault(ext string) bool {
	return r.keep[strings.ToLower(ext)]
}

// CategoryOf returns the first category listing ext, or "Other".
func (r *SuffixRules) CategoryOf(ext string) string {
	lower := strings.ToLower(ext)
	for _, c := range r.Categories {
		for _, s := range c.Suffixes {
			if strings.ToLower(s) == lower {
				return c.Name
			}
		}
	}
	return "Other"
}

// LoadRulesContext reads optional preference hints from rules.md in rulesDir.
// A missing file yields the empty string.
func LoadRulesContext(rulesDir string) (string, error) {
	if rulesDir == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Join(rulesDir, "rules.md"))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read rules context: %w", err)
	}
	return string(data), nil
}

func lowerSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[strings.ToLower(s)] = true
	}
	return out
}
