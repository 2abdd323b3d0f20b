package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for labscrub. Pointer
// fields distinguish unset from zero.
type FileConfig struct {
	// Output
	OutputDir  *string `yaml:"output_dir,omitempty"`
	Store      *string `yaml:"store,omitempty"`
	SQLitePath *string `yaml:"sqlite_path,omitempty"`

	// Batch selection and limits
	Include         *string `yaml:"include,omitempty"`
	Exclude         *string `yaml:"exclude,omitempty"`
	DefaultExcludes *bool   `yaml:"default_excludes,omitempty"`
	Threads         *int    `yaml:"threads,omitempty"`
	MaxBytes        *int64  `yaml:"max_bytes,omitempty"`
	MaxLineBytes    *int    `yaml:"max_line_bytes,omitempty"`
	NoCache         *bool   `yaml:"no_cache,omitempty"`
	NoColor         *bool   `yaml:"no_color,omitempty"`

	// Server
	Listen         *string `yaml:"listen,omitempty"`
	MaxUploadBytes *int64  `yaml:"max_upload_bytes,omitempty"`

	// Logging and audit
	LogLevel  *string `yaml:"log_level,omitempty"`
	LogFormat *string `yaml:"log_format,omitempty"`
	Audit     *string `yaml:"audit,omitempty"`

	// Retention of stored outputs, e.g. "720h", pruned on a cron schedule.
	Retention     *string `yaml:"retention,omitempty"`
	PruneSchedule *string `yaml:"prune_schedule,omitempty"`
}

// LoadFile reads a YAML config file from the provided path. Unknown keys
// are rejected so typos surface.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ErrNotFound is returned by LoadLocal and LoadGlobal when no file exists.
var ErrNotFound = errors.New("no config file")

// LocalNames are the file names LoadLocal looks for, in order.
var LocalNames = []string{".labscrub.yml", ".labscrub.yaml", "labscrub.yml", "labscrub.yaml"}

// LoadLocal searches for a config file in dir.
func LoadLocal(dir string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range LocalNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, ErrNotFound
}

// GlobalPath returns the global config file location under XDG_CONFIG_HOME
// or ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "labscrub", "config.yml"), nil
}

// LoadGlobal loads the global config file.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	p, err := GlobalPath()
	if err != nil {
		return cfg, err
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, ErrNotFound
}

// Validate checks values that can be checked without context.
func (fc FileConfig) Validate() error {
	if fc.Store != nil && *fc.Store != "file" && *fc.Store != "sqlite" {
		return fmt.Errorf("store must be file or sqlite, got %q", *fc.Store)
	}
	if fc.Threads != nil && *fc.Threads < 0 {
		return fmt.Errorf("threads must not be negative")
	}
	if fc.MaxLineBytes != nil && *fc.MaxLineBytes < 0 {
		return fmt.Errorf("max_line_bytes must not be negative")
	}
	if _, err := fc.RetentionDuration(); err != nil {
		return err
	}
	return nil
}

// RetentionDuration parses Retention. Unset means zero (keep forever).
func (fc FileConfig) RetentionDuration() (time.Duration, error) {
	if fc.Retention == nil || *fc.Retention == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(*fc.Retention)
	if err != nil {
		return 0, fmt.Errorf("retention: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("retention must not be negative")
	}
	return d, nil
}

// Starter is the file written by "labscrub config init".
const Starter = `# labscrub configuration
output_dir: sanitized
store: file            # file or sqlite
# sqlite_path: labscrub.db
include: "**/*.txt"
exclude: ""
default_excludes: true
threads: 0             # 0 = number of CPUs
max_bytes: 10485760    # skip batch inputs larger than this
max_line_bytes: 1048576
no_cache: false
listen: ":8080"
max_upload_bytes: 33554432
log_level: info        # debug, info, warn, error
log_format: text       # text or json
audit: .labscrub_audit.jsonl
# retention: 720h
# prune_schedule: "0 3 * * *"
`
