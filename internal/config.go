package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/fsdocs/internal/naming"
	"github.com/starford/fsdocs/internal/pathguard"
)

// Confinement modes.
const (
	ConfinementRoot = "root"
	ConfinementNone = "none"
)

// Naming strategies.
const (
	StrategyProbe     = "probe"
	StrategyExclusive = "exclusive"
)

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Store StoreConfig       `yaml:"store"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.Store.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In(slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError)),
	)
}

// StoreConfig describes where documents live and how paths are policed.
//
// Confinement controls how operation paths are resolved:
//   - "root" (default): paths are relative to Root; with AllowAbsolute,
//     absolute paths are accepted as-is.
//   - "none": no root; every path must be absolute and Root must be empty.
type StoreConfig struct {
	Root          string       `yaml:"root"`
	Confinement   string       `yaml:"confinement"`
	AllowAbsolute bool         `yaml:"allow_absolute"`
	Naming        NamingConfig `yaml:"naming"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Confinement == "" {
		c.Confinement = ConfinementRoot
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Confinement, validation.Required, validation.In(ConfinementRoot, ConfinementNone)),
		validation.Field(&c.Root,
			validation.When(c.Confinement == ConfinementRoot, validation.Required),
			validation.When(c.Confinement == ConfinementNone, validation.Empty),
		),
	); err != nil {
		return err
	}
	return c.Naming.Validate()
}

// Policy converts the confinement settings into a pathguard policy.
func (c *StoreConfig) Policy() (pathguard.Policy, error) {
	conf, err := pathguard.ParseConfinement(c.Confinement)
	if err != nil {
		return pathguard.Policy{}, err
	}
	return pathguard.Policy{Confinement: conf, AllowAbsolute: c.AllowAbsolute}, nil
}

// AbsRoot returns Root made absolute against the working directory, or ""
// when the store is rootless.
func (c *StoreConfig) AbsRoot() (string, error) {
	if c.Confinement == ConfinementNone || c.Root == "" {
		return c.Root, nil
	}
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return "", fmt.Errorf("resolve store root: %w", err)
	}
	return abs, nil
}

// NamingConfig controls collision handling for new documents.
type NamingConfig struct {
	Strategy  string `yaml:"strategy"`
	MaxSuffix int    `yaml:"max_suffix"`
}

// Validate validates the naming configuration.
func (c *NamingConfig) Validate() error {
	if c.Strategy == "" {
		c.Strategy = StrategyProbe
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Strategy, validation.Required, validation.In(StrategyProbe, StrategyExclusive)),
		validation.Field(&c.MaxSuffix, validation.Min(0)),
	)
}

// ParsedStrategy returns the naming strategy.
func (c *NamingConfig) ParsedStrategy() (naming.Strategy, error) {
	return naming.ParseStrategy(c.Strategy)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Store: StoreConfig{
			Root:        "./documents",
			Confinement: ConfinementRoot,
			Naming: NamingConfig{
				Strategy: StrategyProbe,
			},
		},
	}
}
