// Package config loads the daemon's schedules.yaml descriptor file: the
// list of schedules to run plus daemon-wide settings (log level, metrics
// bind address). Following the teacher's convention, a .env file is
// loaded first (via godotenv) so its values are available for env-var
// expansion inside the YAML.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	schederrors "github.com/inful/stitchcron/internal/foundation/errors"
)

// Config is the root of a schedules.yaml file.
type Config struct {
	Schedules []ScheduleDescriptor `yaml:"schedules"`
	Daemon    DaemonConfig         `yaml:"daemon"`
}

// ScheduleDescriptor is the on-disk form of a schedule.Schedule, before its
// naive anchor has been localized against an IANA zone.
type ScheduleDescriptor struct {
	ID          string               `yaml:"id"`
	Timezone    string               `yaml:"timezone"`
	NaiveAnchor string               `yaml:"anchor"` // ISO-8601 local date-time, no offset
	Priority    string               `yaml:"priority,omitempty"`
	Frequency   *FrequencyDescriptor `yaml:"frequency,omitempty"`
}

// FrequencyDescriptor is the on-disk form of a frequency.Frequency.
type FrequencyDescriptor struct {
	Kind            string   `yaml:"kind"` // hourly|daily|weekly|monthly|yearly|custom
	Every           int      `yaml:"every,omitempty"`
	Weekdays        []int    `yaml:"weekdays,omitempty"`         // 0=Sunday..6=Saturday, Weekly only
	OnDays          []int    `yaml:"on_days,omitempty"`          // Monthly/OnDays only
	Ordinal         string   `yaml:"ordinal,omitempty"`          // first|second|third|fourth|fifth|last
	Weekday         string   `yaml:"weekday,omitempty"`          // sun..sat|day|weekday|weekend
	Months          []int    `yaml:"months,omitempty"`           // 1=January..12=December, Yearly only
	CronExpressions []string `yaml:"cron_expressions,omitempty"` // Custom only
	Until           string   `yaml:"until,omitempty"`            // RFC3339; empty means never expires
}

// DaemonConfig holds settings for the long-running daemon process.
type DaemonConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the daemon's slog handler.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug|info|warn|error, defaults to info
}

// MetricsConfig configures the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"` // defaults to :9090
}

// Load reads and parses the schedules.yaml file at path, after loading a
// .env file (if present) and expanding ${VAR} references in its content.
func Load(path string) (*Config, error) {
	loadEnvFile()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, schederrors.ConfigError(fmt.Sprintf("configuration file not found: %s", path)).
			WithContext("path", path).
			Build()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schederrors.ConfigError("failed to read configuration file").
			WithContext("path", path).
			Build()
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, schederrors.WrapError(err, schederrors.CategoryConfig, "failed to parse configuration file").
			WithContext("path", path).
			Build()
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Daemon.Logging.Level == "" {
		cfg.Daemon.Logging.Level = "info"
	}
	if cfg.Daemon.Metrics.Listen == "" {
		cfg.Daemon.Metrics.Listen = ":9090"
	}
	for i := range cfg.Schedules {
		if cfg.Schedules[i].Priority == "" {
			cfg.Schedules[i].Priority = "Medium"
		}
	}
}

func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Schedules))
	for _, sd := range cfg.Schedules {
		if sd.ID == "" {
			return schederrors.ValidationError("schedule entry is missing an id").Build()
		}
		if seen[sd.ID] {
			return schederrors.ValidationError("duplicate schedule id").
				WithContext("schedule_id", sd.ID).
				Build()
		}
		seen[sd.ID] = true

		if sd.Timezone == "" {
			return schederrors.ValidationError("schedule is missing a timezone").
				WithContext("schedule_id", sd.ID).
				Build()
		}
		if sd.NaiveAnchor == "" {
			return schederrors.ValidationError("schedule is missing an anchor").
				WithContext("schedule_id", sd.ID).
				Build()
		}
	}
	return nil
}

// loadEnvFile loads .env, then .env.local, into the process environment.
// Neither file existing is not an error — most deployments configure
// everything via schedules.yaml or real environment variables instead.
func loadEnvFile() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "config: failed to load %s: %v\n", path, err)
		}
	}
}
