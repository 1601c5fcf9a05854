// Package config loads process-wide configuration: the environment block
// read at startup plus an optional YAML tuning file for loop cadence.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration block.
type Config struct {
	// Chat platform.
	SlackToken     string
	SlackAppToken  string
	FounderUserID  string
	AlertsChannel  string
	SummaryChannel string
	GeneralChannel string

	// Scheduling.
	Timezone string

	// Health HTTP.
	HealthPort string

	// Tools.
	SearchAPIKey   string
	SocialQueueURL string
	SocialQueueKey string

	// Document stores.
	NotesToken        string
	NotesParentPageID string
	DriveCredentials  string
	DriveRootFolderID string
	GitHubToken       string
	GitHubOwner       string
	GitHubRepo        string
	GitHubBranch      string

	// Summary email (optional).
	SummaryEmail string

	Tuning Tuning
}

// Tuning holds the loop cadence knobs, overridable via agentworld.yaml.
type Tuning struct {
	DispatcherTick     time.Duration `yaml:"dispatcher_tick"`
	ExecutorTick       time.Duration `yaml:"executor_tick"`
	IngressTick        time.Duration `yaml:"ingress_tick"`
	StaleStepThreshold time.Duration `yaml:"stale_step_threshold"`
	HealthInterval     time.Duration `yaml:"health_interval"`
	StalledAfter       time.Duration `yaml:"stalled_after"`
}

// UnmarshalYAML accepts Go duration strings ("10s", "30m") for every knob,
// leaving absent keys at their prior values.
func (t *Tuning) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		DispatcherTick     string `yaml:"dispatcher_tick"`
		ExecutorTick       string `yaml:"executor_tick"`
		IngressTick        string `yaml:"ingress_tick"`
		StaleStepThreshold string `yaml:"stale_step_threshold"`
		HealthInterval     string `yaml:"health_interval"`
		StalledAfter       string `yaml:"stalled_after"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	set := func(dst *time.Duration, s, key string) error {
		if s == "" {
			return nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	if err := set(&t.DispatcherTick, raw.DispatcherTick, "dispatcher_tick"); err != nil {
		return err
	}
	if err := set(&t.ExecutorTick, raw.ExecutorTick, "executor_tick"); err != nil {
		return err
	}
	if err := set(&t.IngressTick, raw.IngressTick, "ingress_tick"); err != nil {
		return err
	}
	if err := set(&t.StaleStepThreshold, raw.StaleStepThreshold, "stale_step_threshold"); err != nil {
		return err
	}
	if err := set(&t.HealthInterval, raw.HealthInterval, "health_interval"); err != nil {
		return err
	}
	return set(&t.StalledAfter, raw.StalledAfter, "stalled_after")
}

// DefaultTuning returns the built-in loop cadence.
func DefaultTuning() Tuning {
	return Tuning{
		DispatcherTick:     10 * time.Second,
		ExecutorTick:       10 * time.Second,
		IngressTick:        5 * time.Second,
		StaleStepThreshold: 30 * time.Minute,
		HealthInterval:     10 * time.Minute,
		StalledAfter:       120 * time.Second,
	}
}

// Load reads the environment block and, when present, the YAML tuning file.
// Required settings are validated by the process entry points, not here —
// the ingress adapter needs the chat token, the executor does not.
func Load(tuningPath string) (*Config, error) {
	cfg := &Config{
		SlackToken:        os.Getenv("SLACK_BOT_TOKEN"),
		SlackAppToken:     os.Getenv("SLACK_APP_TOKEN"),
		FounderUserID:     os.Getenv("FOUNDER_USER_ID"),
		AlertsChannel:     getEnvOrDefault("SLACK_ALERTS_CHANNEL", "alerts"),
		SummaryChannel:    getEnvOrDefault("SLACK_SUMMARY_CHANNEL", "daily-summary"),
		GeneralChannel:    getEnvOrDefault("SLACK_GENERAL_CHANNEL", "general"),
		Timezone:          getEnvOrDefault("TIMEZONE", "America/New_York"),
		HealthPort:        getEnvOrDefault("HEALTH_PORT", "8090"),
		SearchAPIKey:      os.Getenv("SEARCH_API_KEY"),
		SocialQueueURL:    os.Getenv("SOCIAL_QUEUE_URL"),
		SocialQueueKey:    os.Getenv("SOCIAL_QUEUE_API_KEY"),
		NotesToken:        os.Getenv("NOTES_API_TOKEN"),
		NotesParentPageID: os.Getenv("NOTES_PARENT_PAGE_ID"),
		DriveCredentials:  os.Getenv("DRIVE_CREDENTIALS_FILE"),
		DriveRootFolderID: os.Getenv("DRIVE_ROOT_FOLDER_ID"),
		GitHubToken:       os.Getenv("GITHUB_TOKEN"),
		GitHubOwner:       os.Getenv("GITHUB_STATE_OWNER"),
		GitHubRepo:        os.Getenv("GITHUB_STATE_REPO"),
		GitHubBranch:      getEnvOrDefault("GITHUB_STATE_BRANCH", "main"),
		SummaryEmail:      os.Getenv("SUMMARY_EMAIL"),
		Tuning:            DefaultTuning(),
	}

	if tuningPath != "" {
		if err := loadTuning(tuningPath, &cfg.Tuning); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func loadTuning(path string, tuning *Tuning) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read tuning file: %w", err)
	}

	var raw struct {
		Tuning Tuning `yaml:"tuning"`
	}
	raw.Tuning = *tuning
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse tuning file: %w", err)
	}
	*tuning = raw.Tuning

	if tuning.DispatcherTick <= 0 || tuning.ExecutorTick <= 0 || tuning.IngressTick <= 0 {
		return fmt.Errorf("tick intervals must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
