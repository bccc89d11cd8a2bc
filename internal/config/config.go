package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Limits carries the labor-compliance thresholds.
type Limits struct {
	MinRestHours            int     `yaml:"minRestHours" validate:"min=0"`
	DailyHoursWarn          float64 `yaml:"dailyHoursWarn" validate:"gt=0"`
	DailyHoursHard          float64 `yaml:"dailyHoursHard" validate:"gtefield=DailyHoursWarn"`
	WeeklyHoursWarn         float64 `yaml:"weeklyHoursWarn" validate:"gt=0"`
	WeeklyHoursHard         float64 `yaml:"weeklyHoursHard" validate:"gtefield=WeeklyHoursWarn"`
	ConsecutiveDaysWarn     int     `yaml:"consecutiveDaysWarn" validate:"min=1"`
	ConsecutiveDaysOverride int     `yaml:"consecutiveDaysOverride" validate:"gtefield=ConsecutiveDaysWarn"`
	SuggestionLimit         int     `yaml:"suggestionLimit" validate:"min=1"`
}

// Coordination carries the exclusive-section and presence settings.
type Coordination struct {
	LockWaitMillis  int `yaml:"lockWaitMillis" validate:"min=1"`
	PresenceTTLSecs int `yaml:"presenceTTLSecs" validate:"min=1"`
}

// Swaps carries the negotiation deadlines.
type Swaps struct {
	AcceptanceTTLHours  int `yaml:"acceptanceTTLHours" validate:"min=1"`
	DropExpiryLeadHours int `yaml:"dropExpiryLeadHours" validate:"min=0"`
	MaxPendingPerWorker int `yaml:"maxPendingPerWorker" validate:"min=1"`
}

// Config represents the application configuration.
type Config struct {
	DatabaseURL  string       `yaml:"databaseURL" validate:"required"`
	NATSURL      string       `yaml:"natsURL,omitempty"`
	SweepCron    string       `yaml:"sweepCron,omitempty"`
	Limits       Limits       `yaml:"limits"`
	Coordination Coordination `yaml:"coordination"`
	Swaps        Swaps        `yaml:"swaps"`
}

// LockWait returns the bounded wait for exclusive-section acquisition.
func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Coordination.LockWaitMillis) * time.Millisecond
}

// PresenceTTL returns how long an unreleased presence notice stays live.
func (c *Config) PresenceTTL() time.Duration {
	return time.Duration(c.Coordination.PresenceTTLSecs) * time.Second
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the configuration with standard compliance thresholds
// and no database target.
func Default() *Config {
	return &Config{
		SweepCron: "@every 15m",
		Limits: Limits{
			MinRestHours:            10,
			DailyHoursWarn:          8,
			DailyHoursHard:          12,
			WeeklyHoursWarn:         35,
			WeeklyHoursHard:         40,
			ConsecutiveDaysWarn:     6,
			ConsecutiveDaysOverride: 7,
			SuggestionLimit:         5,
		},
		Coordination: Coordination{
			LockWaitMillis:  2000,
			PresenceTTLSecs: 60,
		},
		Swaps: Swaps{
			AcceptanceTTLHours:  24,
			DropExpiryLeadHours: 24,
			MaxPendingPerWorker: 3,
		},
	}
}

// Load loads and validates the configuration from shiftsync.yaml.
// It looks in the current directory first, then the user's home directory.
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}
	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path.
// Omitted sections keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration struct.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func findConfigFile() (string, error) {
	const name = "shiftsync.yaml"

	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	path := filepath.Join(home, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%s not found in current or home directory", name)
}
