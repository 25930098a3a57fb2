// Package config loads voxa settings: defaults, then an optional YAML file,
// then environment variables. Command-line flags are applied by main.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EngineDeepgram = "deepgram"
	EngineScript   = "script"
)

type DeepgramConfig struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	Endpoint        string `yaml:"endpoint"`
	UtteranceEndMs  int    `yaml:"utterance_end_ms"`
	NoSpeechTimeout int    `yaml:"no_speech_timeout_ms"`
}

type Config struct {
	Engine         string         `yaml:"engine"`
	Language       string         `yaml:"language"`
	Continuous     bool           `yaml:"continuous"`
	InterimResults bool           `yaml:"interim_results"`
	OutputDir      string         `yaml:"output_dir"`
	DataDir        string         `yaml:"data_dir"`
	Script         string         `yaml:"script"`
	Device         string         `yaml:"device"`
	Hotkey         string         `yaml:"hotkey"`
	Beep           bool           `yaml:"beep"`
	Deepgram       DeepgramConfig `yaml:"deepgram"`
}

func Default() Config {
	return Config{
		Engine:         EngineDeepgram,
		Language:       "en-US",
		Continuous:     true,
		InterimResults: true,
		OutputDir:      ".",
		DataDir:        DefaultDataDir(),
		Hotkey:         "ctrl+shift+space",
		Beep:           true,
		Deepgram: DeepgramConfig{
			Model:           "nova-3",
			UtteranceEndMs:  1000,
			NoSpeechTimeout: 8000,
		},
	}
}

// DefaultDataDir is where the preference database lives.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".voxa")
	}
	return filepath.Join(dir, "voxa")
}

// Load reads path (if non-empty) over the defaults and applies environment
// overrides. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Engine, "VOXA_ENGINE")
	overrideString(&cfg.Language, "VOXA_LANG")
	overrideString(&cfg.OutputDir, "VOXA_OUTPUT_DIR")
	overrideString(&cfg.DataDir, "VOXA_DATA_DIR")
	overrideString(&cfg.Script, "VOXA_SCRIPT")
	overrideBool(&cfg.Beep, "VOXA_BEEP")
	overrideString(&cfg.Deepgram.APIKey, "DEEPGRAM_API_KEY")
	overrideString(&cfg.Deepgram.Model, "DEEPGRAM_MODEL")
	overrideInt(&cfg.Deepgram.UtteranceEndMs, "DEEPGRAM_UTTERANCE_END_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func (c Config) Validate() error {
	switch c.Engine {
	case EngineDeepgram:
		if c.Deepgram.APIKey == "" {
			return errors.New("DEEPGRAM_API_KEY environment variable not set (or deepgram.api_key in config)")
		}
		if c.Deepgram.UtteranceEndMs < 0 {
			return errors.New("deepgram.utterance_end_ms must be >= 0")
		}
		if c.Deepgram.NoSpeechTimeout < 0 {
			return errors.New("deepgram.no_speech_timeout_ms must be >= 0")
		}
	case EngineScript:
		if c.Script == "" {
			return errors.New("script must be set when engine=script")
		}
	default:
		return fmt.Errorf("engine must be one of %s|%s, got %q", EngineDeepgram, EngineScript, c.Engine)
	}
	if strings.TrimSpace(c.Language) == "" {
		return errors.New("language must not be empty")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	return nil
}

func (c Config) NoSpeechTimeout() time.Duration {
	return time.Duration(c.Deepgram.NoSpeechTimeout) * time.Millisecond
}

// StorePath is the preference database inside DataDir.
func (c Config) StorePath() string {
	return filepath.Join(c.DataDir, "voxa.db")
}
