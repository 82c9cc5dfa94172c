package appconfig

import (
	"os"
	"path/filepath"

	"github.com/robodeck/robodeck/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string           `mapstructure:"state_dir" yaml:"state_dir"`
	Server        ServerConfig     `mapstructure:"server" yaml:"server"`
	Telemetry     TelemetryConfig  `mapstructure:"telemetry" yaml:"telemetry"`
	Blueprints    BlueprintsConfig `mapstructure:"blueprints" yaml:"blueprints"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ServerConfig points at the backend blueprint document API.
type ServerConfig struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	Token          string `mapstructure:"token" yaml:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// TelemetryConfig points at the backend telemetry websocket.
type TelemetryConfig struct {
	URL   string `mapstructure:"url" yaml:"url"`
	Token string `mapstructure:"token" yaml:"token"`
}

// BlueprintsConfig controls binding service behavior.
type BlueprintsConfig struct {
	CopySuffix string `mapstructure:"copy_suffix" yaml:"copy_suffix"`
	NameMax    int    `mapstructure:"name_max" yaml:"name_max"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".robodeck", "state"),
		Server: ServerConfig{
			BaseURL:        "http://127.0.0.1:8700",
			Token:          "",
			TimeoutSeconds: 15,
		},
		Telemetry: TelemetryConfig{
			URL:   "ws://127.0.0.1:8700/ws",
			Token: "",
		},
		Blueprints: BlueprintsConfig{
			CopySuffix: schema.DefaultCopySuffix,
			NameMax:    schema.DefaultNameMax,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".robodeck", "config.yaml"), nil
}
