package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/emmett/voxremote/internal/vocab"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	SourceMic = "mic"
	SourceWAV = "wav"

	BackendKeys  = "keys"
	BackendMPRIS = "mpris"

	FormatTUI     = "tui"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config represents the application configuration
type Config struct {
	// Model settings
	Model struct {
		Default string `yaml:"default"`
		Dir     string `yaml:"dir"`
		Locale  string `yaml:"locale"`
	} `yaml:"model"`

	// Audio settings
	Audio struct {
		Source  string `yaml:"source"`
		Device  string `yaml:"device"`
		WAVFile string `yaml:"wav_file"`
		Paced   bool   `yaml:"paced"`
	} `yaml:"audio"`

	// Vocabulary replaces the default phrases when non-empty
	Vocabulary []vocab.PhraseMapping `yaml:"vocabulary"`

	// Media settings
	Media struct {
		Backend string `yaml:"backend"`
		Player  string `yaml:"player"`
	} `yaml:"media"`

	// Output settings
	Output struct {
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"output"`

	// Hotkey settings
	Hotkey struct {
		Enabled bool   `yaml:"enabled"`
		Keys    string `yaml:"keys"`
	} `yaml:"hotkey"`

	// Log settings
	Log struct {
		Dir   string `yaml:"dir"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	// Metrics settings
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Model.Locale = "en-US"

	cfg.Audio.Source = SourceMic
	cfg.Audio.Paced = true

	cfg.Media.Backend = BackendKeys

	cfg.Output.Format = FormatTUI

	cfg.Hotkey.Enabled = false
	cfg.Hotkey.Keys = "ctrl+shift+v"

	cfg.Log.Level = "info"

	return cfg
}

// Load loads configuration from file
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// UserPath returns ~/.voxremoterc.
func UserPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".voxremoterc"), nil
}

// SystemPath is the machine-wide configuration file.
const SystemPath = "/etc/voxremote/config.yaml"

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.voxremoterc > /etc/voxremote/config.yaml
func LoadWithFallback(fs afero.Fs, explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(fs, explicitPath)
	}

	var candidates []string
	if userPath, err := UserPath(); err == nil {
		candidates = append(candidates, userPath)
	}
	candidates = append(candidates, SystemPath)

	for _, path := range candidates {
		ok, err := afero.Exists(fs, path)
		if err != nil || !ok {
			continue
		}
		cfg, err := Load(fs, path)
		if err != nil {
			// A broken fallback file is reported, never skipped.
			return nil, err
		}
		return cfg, nil
	}

	return DefaultConfig(), nil
}

// Save saves the configuration to a file
func (c *Config) Save(fs afero.Fs, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks enumerated fields and the vocabulary.
func (c *Config) Validate() error {
	switch c.Audio.Source {
	case SourceMic:
	case SourceWAV:
		if c.Audio.WAVFile == "" {
			return fmt.Errorf("%w: audio.source is wav but audio.wav_file is empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: audio.source %q (want mic or wav)", ErrInvalidConfig, c.Audio.Source)
	}

	switch c.Media.Backend {
	case BackendKeys, BackendMPRIS:
	default:
		return fmt.Errorf("%w: media.backend %q (want keys or mpris)", ErrInvalidConfig, c.Media.Backend)
	}

	switch c.Output.Format {
	case FormatTUI, FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("%w: output.format %q (want tui, console or json)", ErrInvalidConfig, c.Output.Format)
	}

	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
		}
	}

	if _, err := vocab.Build(c.Vocabulary); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
