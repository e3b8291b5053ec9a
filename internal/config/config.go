// Package config holds compiled-in defaults and the optional YAML override file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Activity   ActivityConfig   `yaml:"activity"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Terminator TerminatorConfig `yaml:"terminator"`
	Probe      ProbeConfig      `yaml:"probe"`
	Policy     PolicyConfig     `yaml:"policy"`
	Journal    JournalConfig    `yaml:"journal"`
}

type ActivityConfig struct {
	Interval     time.Duration `yaml:"interval"`
	CycleTimeout time.Duration `yaml:"cycle_timeout"`
}

type TrackerConfig struct {
	Interval     time.Duration `yaml:"interval"`
	ExcludeNames []string      `yaml:"exclude_names"`
	// Lister is "native" (gopsutil) or "ps" (ps -e -o pid,comm).
	Lister string `yaml:"lister"`
}

type TerminatorConfig struct {
	GracePeriod  time.Duration `yaml:"grace_period"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type ProbeConfig struct {
	SubProbeTimeout time.Duration `yaml:"sub_probe_timeout"`
}

// PolicyConfig replaces the built-in policies when Keywords is non-empty.
type PolicyConfig struct {
	Keywords []string `yaml:"keywords"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

const (
	ListerNative = "native"
	ListerPS     = "ps"
)

// Default returns the compiled-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Activity: ActivityConfig{
			Interval:     2 * time.Second,
			CycleTimeout: 1500 * time.Millisecond,
		},
		Tracker: TrackerConfig{
			Interval:     time.Second,
			ExcludeNames: []string{"ps"},
			Lister:       ListerNative,
		},
		Terminator: TerminatorConfig{
			GracePeriod:  3 * time.Second,
			PollInterval: 100 * time.Millisecond,
		},
		Probe: ProbeConfig{
			SubProbeTimeout: 500 * time.Millisecond,
		},
		Journal: JournalConfig{
			Enabled: false,
			Dir:     filepath.Join(home, ".local", "share", "actmon"),
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the loops cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Activity.Interval <= 0:
		return errors.New("activity.interval must be positive")
	case c.Activity.CycleTimeout <= 0:
		return errors.New("activity.cycle_timeout must be positive")
	case c.Tracker.Interval <= 0:
		return errors.New("tracker.interval must be positive")
	case c.Terminator.GracePeriod < 0:
		return errors.New("terminator.grace_period must not be negative")
	case c.Terminator.PollInterval <= 0:
		return errors.New("terminator.poll_interval must be positive")
	case c.Probe.SubProbeTimeout <= 0:
		return errors.New("probe.sub_probe_timeout must be positive")
	}

	if c.Tracker.Lister != ListerNative && c.Tracker.Lister != ListerPS {
		return errors.Errorf("tracker.lister must be %q or %q, got %q", ListerNative, ListerPS, c.Tracker.Lister)
	}

	if c.Policy.Keywords != nil && !hasKeyword(c.Policy.Keywords) {
		return errors.New("policy.keywords must contain at least one non-blank keyword")
	}

	if c.Journal.Enabled && c.Journal.Dir == "" {
		return errors.New("journal.dir is required when the journal is enabled")
	}
	return nil
}

func hasKeyword(keywords []string) bool {
	for _, k := range keywords {
		if strings.TrimSpace(k) != "" {
			return true
		}
	}
	return false
}
