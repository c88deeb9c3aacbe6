// Package config loads subtake's YAML settings and resolves provider API
// keys.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFileName            = "subtake.yaml"
	DefaultOperationMemorySize = 64
	DefaultFrameRate           = 60
	DefaultDebounceMS          = 100
	DefaultWaveCacheSize       = 16
	DefaultWaveWorkers         = 4
	DefaultConcurrency         = 3
	DefaultBatchSize           = 50
)

type Config struct {
	// where the project database lives; ~ is expanded
	DataDir  string `yaml:"data_dir"`
	Database string `yaml:"database"`

	// undo steps kept per project, 2..256
	OperationMemorySize int `yaml:"operation_memory_size"`
	FrameRate           int `yaml:"frame_rate"`

	Wave struct {
		Spectrum  bool `yaml:"spectrum"`
		CacheSize int  `yaml:"cache_size"`
		Workers   int  `yaml:"workers"`
	} `yaml:"wave"`

	Editor struct {
		DebounceMS int  `yaml:"debounce_ms"`
		LockLength bool `yaml:"lock_length"`
		AutoSave   bool `yaml:"auto_save"`
	} `yaml:"editor"`

	Providers struct {
		Transcribe     string `yaml:"transcribe"`
		Translate      string `yaml:"translate"`
		GeminiModel    string `yaml:"gemini_model"`
		OpenAIModel    string `yaml:"openai_model"`
		AnthropicModel string `yaml:"anthropic_model"`
		Concurrency    int    `yaml:"concurrency"`
		BatchSize      int    `yaml:"batch_size"`
	} `yaml:"providers"`

	path string
}

func Default() *Config {
	c := &Config{}
	c.DataDir = defaultDataDir()
	c.Database = "subtake.db"
	c.OperationMemorySize = DefaultOperationMemorySize
	c.FrameRate = DefaultFrameRate

	c.Wave.CacheSize = DefaultWaveCacheSize
	c.Wave.Workers = DefaultWaveWorkers

	c.Editor.DebounceMS = DefaultDebounceMS
	c.Editor.LockLength = true
	c.Editor.AutoSave = true

	c.Providers.Transcribe = "gemini"
	c.Providers.Translate = "gemini"
	c.Providers.Concurrency = DefaultConcurrency
	c.Providers.BatchSize = DefaultBatchSize
	return c
}

// DefaultPath is $XDG_CONFIG_HOME/subtake/subtake.yaml or the OS equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return DefaultFileName
	}
	return filepath.Join(dir, "subtake", DefaultFileName)
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "subtake")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".subtake"
	}
	return filepath.Join(home, ".local", "share", "subtake")
}

// LoadEnv reads .env from the working directory if there is one.
func LoadEnv() {
	_ = godotenv.Load() // best-effort
}

// Load reads path over the defaults. A missing file is not an error; fields
// absent from the file keep their defaults. Environment overrides apply
// last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		// windows paths written with backslashes
		data = bytes.ReplaceAll(data, []byte(`\`), []byte(`/`))
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// Path is the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SUBTAKE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SUBTAKE_OPERATION_MEMORY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.OperationMemorySize = n
		}
	}
}

func (c *Config) normalize() {
	c.DataDir = expandHome(strings.TrimSpace(c.DataDir))
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	c.DataDir = filepath.Clean(c.DataDir)

	c.Database = strings.TrimSpace(c.Database)
	if c.Database == "" {
		c.Database = "subtake.db"
	}

	// out-of-range sizes are ignored, as History does
	if c.OperationMemorySize < 2 || c.OperationMemorySize > 256 {
		c.OperationMemorySize = DefaultOperationMemorySize
	}
	if c.FrameRate <= 0 {
		c.FrameRate = DefaultFrameRate
	}
	if c.Wave.CacheSize <= 0 {
		c.Wave.CacheSize = DefaultWaveCacheSize
	}
	if c.Wave.Workers <= 0 {
		c.Wave.Workers = DefaultWaveWorkers
	}
	if c.Editor.DebounceMS <= 0 {
		c.Editor.DebounceMS = DefaultDebounceMS
	}

	c.Providers.Transcribe = strings.ToLower(strings.TrimSpace(c.Providers.Transcribe))
	if c.Providers.Transcribe == "" {
		c.Providers.Transcribe = "gemini"
	}
	c.Providers.Translate = strings.ToLower(strings.TrimSpace(c.Providers.Translate))
	if c.Providers.Translate == "" {
		c.Providers.Translate = "gemini"
	}
	if c.Providers.Concurrency <= 0 {
		c.Providers.Concurrency = DefaultConcurrency
	}
	if c.Providers.BatchSize <= 0 {
		c.Providers.BatchSize = DefaultBatchSize
	}
}

// DatabasePath resolves Database against DataDir unless it is absolute.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(c.DataDir, c.Database)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
