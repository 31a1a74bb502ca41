// ABOUTME: CLI configuration: config.yaml defaults merged with command-line flags, plus validation.
// ABOUTME: Flags that were set explicitly override values from the file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/ark/pipeline"
)

// llmConfig selects the classification model.
type llmConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// fileConfig is the shape of config.yaml.
type fileConfig struct {
	Target             string    `yaml:"target"`
	SourceRoots        []string  `yaml:"source_roots"`
	DryRun             bool      `yaml:"dry_run"`
	NonInteractive     bool      `yaml:"non_interactive"`
	IncludeExcluded    bool      `yaml:"include_excluded"`
	RulesDir           string    `yaml:"rules_dir"`
	LLM                llmConfig `yaml:"llm"`
	AISuffixEnabled    bool      `yaml:"ai_suffix_enabled"`
	AIPathEnabled      bool      `yaml:"ai_path_enabled"`
	AIDirectoryEnabled bool      `yaml:"ai_directory_enabled"`
	SendFullPathToAI   bool      `yaml:"send_full_path_to_ai"`
	AIPruneMode        string    `yaml:"ai_prune_mode"`
	PageSize           int       `yaml:"page_size"`
	EventIndex         bool      `yaml:"event_index"`
	LogLevel           string    `yaml:"log_level"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		LLM:                llmConfig{APIKeyEnv: "OPENAI_API_KEY"},
		AISuffixEnabled:    true,
		AIPathEnabled:      true,
		AIDirectoryEnabled: true,
		AIPruneMode:        string(pipeline.PruneHideLowValue),
		LogLevel:           "info",
	}
}

// loadFileConfig reads path over the defaults. A missing or empty file yields
// the defaults; unknown keys are an error.
func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate returns every problem that blocks a run.
func (c fileConfig) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Target) == "" {
		errs = append(errs, "target is required (-target or config target)")
	}
	if c.LLM.Enabled && strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, "llm.model is required when the model is enabled")
	}
	if c.LLM.Enabled && strings.TrimSpace(c.LLM.APIKeyEnv) == "" {
		errs = append(errs, "llm.api_key_env must name an environment variable")
	}
	if !pipeline.PruneMode(c.AIPruneMode).Valid() {
		errs = append(errs, fmt.Sprintf("ai_prune_mode must be %s or %s, got %q", pipeline.PruneHideLowValue, pipeline.PruneShowAll, c.AIPruneMode))
	}
	if c.PageSize < 0 {
		errs = append(errs, "page_size must not be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	return errs
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// runConfig is the merged configuration for a backup run.
type runConfig struct {
	fileConfig
	configPath  string
	dataDir     string
	resumeID    string
	showVersion bool
}

// parseRunArgs parses backup-run flags and merges them over the config file.
func parseRunArgs(args []string, stderr io.Writer) (runConfig, error) {
	var (
		rc      runConfig
		sources stringList
		flagCfg = defaultFileConfig()
		showAll bool
	)

	fs := flag.NewFlagSet("ark", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&rc.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/ark/config.yaml)")
	fs.StringVar(&rc.dataDir, "data-dir", "", "Data directory for run state and logs (default: $XDG_DATA_HOME/ark)")
	fs.StringVar(&rc.resumeID, "resume", "", "Resume the run with this id")
	fs.BoolVar(&rc.showVersion, "version", false, "Print version and exit")

	fs.StringVar(&flagCfg.Target, "target", "", "Backup target directory")
	fs.Var(&sources, "source", "Source root to scan (repeatable)")
	fs.BoolVar(&flagCfg.DryRun, "dry-run", false, "Plan the backup without copying")
	fs.BoolVar(&flagCfg.NonInteractive, "non-interactive", false, "Accept every default without prompting")
	fs.BoolVar(&flagCfg.IncludeExcluded, "include-excluded", false, "Show screened-out and ignored files in the review")
	fs.StringVar(&flagCfg.RulesDir, "rules-dir", "", "Directory with ignore, suffix and rules.md overrides")
	fs.BoolVar(&flagCfg.LLM.Enabled, "llm", false, "Classify with a model over an OpenAI-compatible API")
	fs.StringVar(&flagCfg.LLM.Model, "model", "", "Model name for classification")
	fs.StringVar(&flagCfg.LLM.BaseURL, "base-url", "", "Custom API base URL for the model provider")
	fs.BoolVar(&flagCfg.SendFullPathToAI, "full-paths", false, "Send full paths to the model instead of base names")
	fs.BoolVar(&showAll, "show-all", false, "Start the review with low-value branches visible")
	fs.IntVar(&flagCfg.PageSize, "page-size", 0, "Entries per review page (default: 20)")
	fs.BoolVar(&flagCfg.EventIndex, "index", false, "Mirror events into the SQLite event index")
	fs.StringVar(&flagCfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	fs.Usage = func() { printHelp(stderr, version) }

	if err := fs.Parse(args); err != nil {
		return rc, err
	}
	if fs.NArg() > 0 {
		return rc, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	path := rc.configPath
	if path == "" {
		if dir, err := defaultConfigDir(); err == nil {
			path = filepath.Join(dir, "config.yaml")
		}
	}
	file, err := loadFileConfig(path)
	if err != nil {
		return rc, err
	}
	rc.fileConfig = file

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "target":
			rc.Target = flagCfg.Target
		case "source":
			rc.SourceRoots = append([]string(nil), sources...)
		case "dry-run":
			rc.DryRun = flagCfg.DryRun
		case "non-interactive":
			rc.NonInteractive = flagCfg.NonInteractive
		case "include-excluded":
			rc.IncludeExcluded = flagCfg.IncludeExcluded
		case "rules-dir":
			rc.RulesDir = flagCfg.RulesDir
		case "llm":
			rc.LLM.Enabled = flagCfg.LLM.Enabled
		case "model":
			rc.LLM.Model = flagCfg.LLM.Model
		case "base-url":
			rc.LLM.BaseURL = flagCfg.LLM.BaseURL
		case "full-paths":
			rc.SendFullPathToAI = flagCfg.SendFullPathToAI
		case "show-all":
			if showAll {
				rc.AIPruneMode = string(pipeline.PruneShowAll)
			} else {
				rc.AIPruneMode = string(pipeline.PruneHideLowValue)
			}
		case "page-size":
			rc.PageSize = flagCfg.PageSize
		case "index":
			rc.EventIndex = flagCfg.EventIndex
		case "log-level":
			rc.LogLevel = flagCfg.LogLevel
		}
	})
	return rc, nil
}

// Validate checks the merged configuration. A resumed run takes its target
// and roots from the stored run, so the target is not required then.
func (rc runConfig) Validate() []string {
	var out []string
	for _, problem := range rc.fileConfig.Validate() {
		if rc.resumeID != "" && strings.HasPrefix(problem, "target is required") {
			continue
		}
		out = append(out, problem)
	}
	return out
}
