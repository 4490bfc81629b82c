// Package config handles loading and validating sentei configuration
// from files, environment variables, and CLI flag overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// AutoBase asks for the base branch to be detected from the repository.
const AutoBase = "auto"

// Config holds all sentei configuration.
type Config struct {
	BaseBranch                 string   `yaml:"base_branch"`
	ProtectedBranches          []string `yaml:"protected_branches"`
	ConfirmBeforeDelete        bool     `yaml:"confirm_before_delete"`
	ForceDeleteLocal           bool     `yaml:"force_delete_local"`
	IncludeRemoteInDeadCleanup bool     `yaml:"include_remote_in_dead_cleanup"`
	StaleDays                  int      `yaml:"stale_days"`
	AutoFetchPrune             bool     `yaml:"auto_fetch_prune"`
	ShowStatusBadges           bool     `yaml:"show_status_badges"`
	Remote                     string   `yaml:"remote"`
	DetectSquashMerges         bool     `yaml:"detect_squash_merges"`
	GithubToken                string   `yaml:"github_token"`

	// Workspace audit.
	ProjectsDir     string   `yaml:"projects_dir"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
	Workers         int      `yaml:"workers"` // parallel worker count for audit
}

// Defaults returns a Config with default values.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		BaseBranch:          AutoBase,
		ProtectedBranches:   []string{"main", "master", "develop", "release/*"},
		ConfirmBeforeDelete: true,
		StaleDays:           30,
		ShowStatusBadges:    true,
		Remote:              "origin",
		ProjectsDir:         filepath.Join(home, "projects"),
		ExcludePatterns:     []string{".archive", "vendor"},
		Workers:             min(4, runtime.NumCPU()),
	}
}

// Load reads configuration from the config file and environment variables.
// Values are layered: defaults < config file < environment variables.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom is Load with an explicit config file path. A missing file is
// not an error.
func LoadFrom(path string) (Config, error) {
	cfg := Defaults()
	if err := loadFile(&cfg, path); err != nil {
		return cfg, err
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects values no command can work with.
func (c Config) Validate() error {
	var errs []error
	if c.StaleDays < 0 {
		errs = append(errs, fmt.Errorf("stale_days must not be negative, got %d", c.StaleDays))
	}
	if strings.TrimSpace(c.Remote) == "" {
		errs = append(errs, errors.New("remote must not be empty"))
	}
	if strings.TrimSpace(c.BaseBranch) == "" {
		errs = append(errs, errors.New(`base_branch must not be empty (use "auto" to detect it)`))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	return errors.Join(errs...)
}

// Path returns the path to the config file.
func Path() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sentei", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sentei", "config.yaml")
}

func loadFile(cfg *Config, path string) error {
	path = filepath.Clean(path)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil // no config file is fine
	}
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.ProjectsDir = ExpandHome(cfg.ProjectsDir)
	return nil
}

// applyEnv overrides file values with SENTEI_* variables. Malformed
// values are errors rather than silently ignored.
func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = SplitList(v)
		}
	}

	str("SENTEI_BASE_BRANCH", &cfg.BaseBranch)
	list("SENTEI_PROTECTED_BRANCHES", &cfg.ProtectedBranches)
	boolean("SENTEI_CONFIRM_BEFORE_DELETE", &cfg.ConfirmBeforeDelete)
	boolean("SENTEI_FORCE_DELETE_LOCAL", &cfg.ForceDeleteLocal)
	boolean("SENTEI_INCLUDE_REMOTE_IN_DEAD_CLEANUP", &cfg.IncludeRemoteInDeadCleanup)
	integer("SENTEI_STALE_DAYS", &cfg.StaleDays)
	boolean("SENTEI_AUTO_FETCH_PRUNE", &cfg.AutoFetchPrune)
	boolean("SENTEI_SHOW_STATUS_BADGES", &cfg.ShowStatusBadges)
	str("SENTEI_REMOTE", &cfg.Remote)
	boolean("SENTEI_DETECT_SQUASH_MERGES", &cfg.DetectSquashMerges)
	list("SENTEI_EXCLUDE_PATTERNS", &cfg.ExcludePatterns)
	integer("SENTEI_WORKERS", &cfg.Workers)
	if v := os.Getenv("SENTEI_PROJECTS_DIR"); v != "" {
		cfg.ProjectsDir = ExpandHome(v)
	}

	str("SENTEI_GITHUB_TOKEN", &cfg.GithubToken)
	if v := os.Getenv("GITHUB_TOKEN"); v != "" && cfg.GithubToken == "" {
		cfg.GithubToken = v
	}
	if v := os.Getenv("GH_TOKEN"); v != "" && cfg.GithubToken == "" {
		cfg.GithubToken = v
	}
	return errors.Join(errs...)
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ExpandHome replaces a leading ~/ in path with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
