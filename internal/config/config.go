// Package config handles loading, saving, and resolving the gitfleet
// configuration file and the roots file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"
)

const (
	// ConfigAPIVersion is the current config schema apiVersion.
	ConfigAPIVersion = "gitfleet/v1"
	// ConfigKind is the current config schema kind.
	ConfigKind = "FleetConfig"
	// EnvConfig names a config file or directory overriding the default location.
	EnvConfig = "GITFLEET_CONFIG"
	// ConfigFilename is the file name used inside a config directory.
	ConfigFilename = "config.yaml"
)

// Defaults holds default values for fleet operations.
type Defaults struct {
	Concurrency     int    `json:"concurrency" yaml:"concurrency" toml:"concurrency" validate:"min=1,max=256"`
	TimeoutSeconds  int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds" validate:"min=0"`
	PullMode        string `json:"pull_mode" yaml:"pull_mode" toml:"pull_mode" validate:"oneof=smart safe force"`
	IncludeNoRemote bool   `json:"include_no_remote" yaml:"include_no_remote" toml:"include_no_remote"`
	IncludeDetached bool   `json:"include_detached" yaml:"include_detached" toml:"include_detached"`
}

// Timeout returns the per-invocation git timeout. Zero disables it.
func (d Defaults) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Log configures diagnostic logging.
type Log struct {
	Level string `json:"level" yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	// File enables a rotating JSON log at this path.
	File string `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`
}

// Config represents the gitfleet configuration.
type Config struct {
	APIVersion string   `json:"apiVersion" yaml:"apiVersion" toml:"apiVersion"`
	Kind       string   `json:"kind" yaml:"kind" toml:"kind"`
	Exclude    []string `json:"exclude" yaml:"exclude" toml:"exclude" validate:"dive,required"`
	Defaults   Defaults `json:"defaults" yaml:"defaults" toml:"defaults"`
	Log        Log      `json:"log" yaml:"log" toml:"log"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() Config {
	return Config{
		APIVersion: ConfigAPIVersion,
		Kind:       ConfigKind,
		Exclude:    []string{"**/node_modules/**", "**/.terraform/**", "**/vendor/**"},
		Defaults: Defaults{
			Concurrency:    8,
			TimeoutSeconds: 300,
			PullMode:       "smart",
		},
		Log: Log{Level: "warn"},
	}
}

// ConfigDir returns the platform-appropriate config directory path.
// It checks, in order: the override parameter, GITFLEET_CONFIG env var,
// and finally os.UserConfigDir()/gitfleet.
func ConfigDir(override string) (string, error) {
	if override != "" {
		if isConfigFilePath(override) {
			return filepath.Dir(override), nil
		}
		return override, nil
	}

	if env := os.Getenv(EnvConfig); env != "" {
		if isConfigFilePath(env) {
			return filepath.Dir(env), nil
		}
		return env, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gitfleet"), nil
}

// ConfigPath resolves the config file path from override/env/defaults.
func ConfigPath(override string) (string, error) {
	if override != "" {
		if isConfigFilePath(override) {
			return override, nil
		}
		return filepath.Join(override, ConfigFilename), nil
	}

	if env := os.Getenv(EnvConfig); env != "" {
		if isConfigFilePath(env) {
			return env, nil
		}
		return filepath.Join(env, ConfigFilename), nil
	}

	dir, err := ConfigDir("")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFilename), nil
}

// Resolve locates and loads the config for a command run. A missing file at
// the default location yields DefaultConfig; a missing file named by the
// override or GITFLEET_CONFIG is an error.
func Resolve(override string) (*Config, string, error) {
	path, err := ConfigPath(override)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err == nil {
		return cfg, path, nil
	}
	explicit := override != "" || os.Getenv(EnvConfig) != ""
	if errors.Is(err, os.ErrNotExist) && !explicit {
		def := DefaultConfig()
		return &def, path, nil
	}
	return nil, path, err
}

// Load reads the config file from the given path. Files ending in .toml are
// decoded as TOML, everything else as YAML. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigGVK(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the config to the given path, as TOML for .toml paths and
// YAML otherwise.
func Save(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	applyConfigGVK(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the schema identity and field constraints of cfg.
func Validate(cfg *Config) error {
	if err := validateConfigGVK(cfg); err != nil {
		return err
	}
	err := newValidator().Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: value %v violates %s", field, fe.Value(), rule))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func isConfigFilePath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml" || ext == ".toml"
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func applyConfigGVK(cfg *Config) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = ConfigAPIVersion
	}
	if strings.TrimSpace(cfg.Kind) == "" {
		cfg.Kind = ConfigKind
	}
}

func validateConfigGVK(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.APIVersion != ConfigAPIVersion {
		return fmt.Errorf("unsupported config apiVersion %q (expected %q)", cfg.APIVersion, ConfigAPIVersion)
	}
	if cfg.Kind != ConfigKind {
		return fmt.Errorf("unsupported config kind %q (expected %q)", cfg.Kind, ConfigKind)
	}
	return nil
}
