package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"VOXA_ENGINE", "VOXA_LANG", "VOXA_OUTPUT_DIR", "VOXA_DATA_DIR", "VOXA_SCRIPT",
		"VOXA_BEEP", "DEEPGRAM_API_KEY", "DEEPGRAM_MODEL", "DEEPGRAM_UTTERANCE_END_MS",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine != EngineDeepgram || cfg.Language != "en-US" {
		t.Errorf("defaults = %+v", cfg)
	}
	if !cfg.Continuous || !cfg.InterimResults {
		t.Error("continuous and interim results should default on")
	}
	if cfg.Deepgram.UtteranceEndMs != 1000 {
		t.Errorf("utterance_end_ms = %d", cfg.Deepgram.UtteranceEndMs)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("deepgram without api key should not validate")
	}
}

func TestFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "voxa.yaml")
	data := `engine: script
script: session.txt
language: de-DE
output_dir: /tmp/reports
deepgram:
  model: nova-2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VOXA_LANG", "fr-FR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine != EngineScript || cfg.Script != "session.txt" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Language != "fr-FR" {
		t.Errorf("Language = %q, env should win over file", cfg.Language)
	}
	if cfg.Deepgram.Model != "nova-2" || cfg.Deepgram.UtteranceEndMs != 1000 {
		t.Errorf("deepgram = %+v, want file model and default utterance end", cfg.Deepgram)
	}
	if cfg.OutputDir != "/tmp/reports" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Default()
	base.Deepgram.APIKey = "key"

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"deepgram with key", func(*Config) {}, true},
		{"unknown engine", func(c *Config) { c.Engine = "whisper" }, false},
		{"script without file", func(c *Config) { c.Engine = EngineScript }, false},
		{"script with file", func(c *Config) { c.Engine = EngineScript; c.Script = "a.txt" }, true},
		{"blank language", func(c *Config) { c.Language = " " }, false},
		{"negative utterance end", func(c *Config) { c.Deepgram.UtteranceEndMs = -1 }, false},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, false},
	}
	for _, tt := range tests {
		cfg := base
		tt.mutate(&cfg)
		err := cfg.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}
