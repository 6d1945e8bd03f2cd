package screening

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/azaharizaman/atomy-sub011/internal/screening/matching"
)

// Config is the complete screening-core configuration, loaded from a YAML
// file. Every knob carries an operational default so a zero config is usable.
type Config struct {
	Matching  MatchingConfig  `yaml:"matching"`
	Lists     ListsConfig     `yaml:"lists"`
	Pep       PepConfig       `yaml:"pep"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Database  DatabaseConfig  `yaml:"database"`
}

// MatchingConfig tunes the similarity engine and qualification threshold.
type MatchingConfig struct {
	MatchThreshold float64          `yaml:"match_threshold"`
	Similarity     matching.Options `yaml:"similarity"`
}

// ListsConfig assigns risk-escalation classes to list sources.
type ListsConfig struct {
	// Classes maps list id -> "blocking" | "advisory".
	Classes map[string]ListClass `yaml:"classes"`
}

// PepConfig tunes PEP level inference and EDD policy.
type PepConfig struct {
	MatchThreshold float64 `yaml:"match_threshold"`
	// HighSeniorityKeywords mark positions that infer a HIGH PEP level.
	HighSeniorityKeywords []string `yaml:"high_seniority_keywords"`
	// MidSeniorityKeywords mark positions that infer a MEDIUM PEP level.
	MidSeniorityKeywords []string `yaml:"mid_seniority_keywords"`
	// FormerCutoffMonths is how long after the end of tenure a PEP is
	// downgraded to LOW (the "former PEP" rule).
	FormerCutoffMonths int `yaml:"former_cutoff_months"`
	// EddThreshold is the risk level at or above which enhanced due
	// diligence is required.
	EddThreshold RiskLevel `yaml:"edd_threshold"`
}

// SchedulerConfig tunes batch execution of scheduled screenings.
type SchedulerConfig struct {
	DefaultBatchSize int           `yaml:"default_batch_size"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
}

// UnmarshalYAML accepts durations in time.ParseDuration form ("5m", "1h30m").
// Absent keys keep whatever value the struct already carries, so overrides
// layer over the defaults.
func (c *SchedulerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		DefaultBatchSize *int    `yaml:"default_batch_size"`
		RetryDelay       *string `yaml:"retry_delay"`
		SweepInterval    *string `yaml:"sweep_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.DefaultBatchSize != nil {
		c.DefaultBatchSize = *raw.DefaultBatchSize
	}
	if raw.RetryDelay != nil {
		d, err := time.ParseDuration(*raw.RetryDelay)
		if err != nil {
			return fmt.Errorf("scheduler.retry_delay: %w", err)
		}
		c.RetryDelay = d
	}
	if raw.SweepInterval != nil {
		d, err := time.ParseDuration(*raw.SweepInterval)
		if err != nil {
			return fmt.Errorf("scheduler.sweep_interval: %w", err)
		}
		c.SweepInterval = d
	}
	return nil
}

// DatabaseConfig holds the schedule-store connection settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// DefaultConfig returns the standard operational configuration.
func DefaultConfig() *Config {
	return &Config{
		Matching: MatchingConfig{
			MatchThreshold: DefaultMatchThreshold,
			Similarity:     matching.DefaultOptions(),
		},
		Lists: ListsConfig{
			Classes: map[string]ListClass{
				"ofac_sdn":        ListClassBlocking,
				"un_consolidated": ListClassBlocking,
				"eu_consolidated": ListClassBlocking,
				"adverse_media":   ListClassAdvisory,
				"internal_watch":  ListClassAdvisory,
			},
		},
		Pep: PepConfig{
			MatchThreshold: DefaultMatchThreshold,
			HighSeniorityKeywords: []string{
				"president", "head of state", "head of government", "prime minister",
				"minister", "chief justice", "supreme court", "central bank governor",
				"general", "admiral", "marshal",
			},
			MidSeniorityKeywords: []string{
				"director", "deputy", "ambassador", "colonel", "commissioner",
				"senator", "member of parliament", "mayor", "judge",
			},
			FormerCutoffMonths: 12,
			EddThreshold:       RiskLevelHigh,
		},
		Scheduler: SchedulerConfig{
			DefaultBatchSize: 50,
			RetryDelay:       5 * time.Minute,
			SweepInterval:    time.Hour,
		},
		Database: DatabaseConfig{},
	}
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Matching.MatchThreshold < 0 || c.Matching.MatchThreshold > 1 {
		return fmt.Errorf("matching.match_threshold must be in [0,1], got %f", c.Matching.MatchThreshold)
	}
	if c.Pep.MatchThreshold < 0 || c.Pep.MatchThreshold > 1 {
		return fmt.Errorf("pep.match_threshold must be in [0,1], got %f", c.Pep.MatchThreshold)
	}
	for list, class := range c.Lists.Classes {
		if class != ListClassBlocking && class != ListClassAdvisory {
			return fmt.Errorf("lists.classes[%s] must be blocking or advisory, got %q", list, class)
		}
	}
	if c.Pep.FormerCutoffMonths < 0 {
		return fmt.Errorf("pep.former_cutoff_months must not be negative, got %d", c.Pep.FormerCutoffMonths)
	}
	if !c.Pep.EddThreshold.Valid() {
		return fmt.Errorf("pep.edd_threshold %q is not a recognized risk level", c.Pep.EddThreshold)
	}
	if c.Scheduler.DefaultBatchSize < 1 || c.Scheduler.DefaultBatchSize > 1000 {
		return fmt.Errorf("scheduler.default_batch_size must be in [1,1000], got %d", c.Scheduler.DefaultBatchSize)
	}
	return nil
}
