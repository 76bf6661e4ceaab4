// Package config loads and validates the cleaner's YAML configuration.
// Misconfiguration is caught here and at detector construction, before
// anything destructive runs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/catherinevee/tenantcleaner/internal/cleanup"
	"github.com/catherinevee/tenantcleaner/internal/detectors"
	"github.com/catherinevee/tenantcleaner/internal/logger"
	"github.com/catherinevee/tenantcleaner/internal/models"
	"github.com/catherinevee/tenantcleaner/internal/openstack"
	"github.com/catherinevee/tenantcleaner/internal/tracking"
)

// Duration is a time.Duration that unmarshals from Go duration strings
// ("168h", "30m") in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Rule configures cleanup of one item type
type Rule struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// RemoveIfOlderThan keeps every item whose tracked age is at or below
	// this threshold.
	RemoveIfOlderThan Duration `json:"remove_if_older_than" yaml:"remove_if_older_than"`
	// Excludes are anchored regular expressions matched against item names.
	Excludes []string `json:"excludes" yaml:"excludes"`
}

// TrackerConfig selects and configures the tracker backend
type TrackerConfig struct {
	Backend string `json:"backend" yaml:"backend" validate:"oneof=sqlite memory"`
	Path    string `json:"path" yaml:"path"`
}

// CleanupConfig holds the per-type rules
type CleanupConfig struct {
	Instances Rule `json:"instances" yaml:"instances"`
	Images    Rule `json:"images" yaml:"images"`
	Keypairs  Rule `json:"keypairs" yaml:"keypairs"`
}

// Config is the full application configuration
type Config struct {
	Auth    openstack.Credentials `json:"auth" yaml:"auth"`
	Tracker TrackerConfig         `json:"tracker" yaml:"tracker"`
	Logging logger.Config         `json:"logging" yaml:"logging"`
	Cleanup CleanupConfig         `json:"cleanup" yaml:"cleanup"`
}

// Default returns the configuration defaults applied before file values
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			Backend: "sqlite",
			Path:    tracking.DefaultDatabasePath(),
		},
		Logging: logger.Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Load reads, parses, and validates the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration, including that every configured rule
// can actually be compiled into detectors.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Tracker.Backend == "sqlite" && c.Tracker.Path == "" {
		return fmt.Errorf("invalid config: tracker.path is required for the sqlite backend")
	}
	if _, err := c.Plan(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Plan builds the detector plan the cleanup engine will run. Detector
// factories reject bad parameters here, so a malformed exclude pattern or a
// non-positive age threshold never reaches an evaluation pass.
func (c *Config) Plan() (cleanup.Plan, error) {
	plan := cleanup.Plan{}

	if c.Cleanup.Instances.Enabled {
		list, err := ruleDetectors(c.Cleanup.Instances)
		if err != nil {
			return nil, fmt.Errorf("instances: %w", err)
		}
		plan[models.ItemTypeInstance] = list
	}
	if c.Cleanup.Images.Enabled {
		list, err := ruleDetectors(c.Cleanup.Images)
		if err != nil {
			return nil, fmt.Errorf("images: %w", err)
		}
		plan[models.ItemTypeImage] = append([]detectors.Detector{
			detectors.ProtectedImage{},
			detectors.ImageInUse{},
		}, list...)
	}
	if c.Cleanup.Keypairs.Enabled {
		list, err := ruleDetectors(c.Cleanup.Keypairs)
		if err != nil {
			return nil, fmt.Errorf("keypairs: %w", err)
		}
		plan[models.ItemTypeKeypair] = append([]detectors.Detector{
			detectors.KeypairInUse{},
		}, list...)
	}
	return plan, nil
}

// ruleDetectors builds the detectors shared by every item type: excludes
// first, then the age guard.
func ruleDetectors(rule Rule) ([]detectors.Detector, error) {
	var list []detectors.Detector
	if len(rule.Excludes) > 0 {
		exclude, err := detectors.NewExclude(rule.Excludes)
		if err != nil {
			return nil, err
		}
		list = append(list, exclude)
	}
	olderThan, err := detectors.NewOlderThan(rule.RemoveIfOlderThan.Std())
	if err != nil {
		return nil, err
	}
	return append(list, olderThan), nil
}

// OpenStore opens the configured tracker backend
func (c *Config) OpenStore() (tracking.Store, error) {
	switch c.Tracker.Backend {
	case "memory":
		return tracking.NewMemoryStore(), nil
	case "sqlite":
		return tracking.NewSQLiteStore(c.Tracker.Path)
	default:
		return nil, fmt.Errorf("unknown tracker backend %q", c.Tracker.Backend)
	}
}
