package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when none is named.
const DefaultPath = "kiln.yaml"

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CommandConfig struct {
	// Rate is the sustained commands per second allowed per player.
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

type Config struct {
	Listen         string        `yaml:"listen"`
	DataDir        string        `yaml:"data_dir"`
	Admin          string        `yaml:"admin"`
	Charset        string        `yaml:"charset"`
	PollTimeout    time.Duration `yaml:"poll_timeout"`
	InputBuffer    int           `yaml:"input_buffer"`
	OutputBuffer   int           `yaml:"output_buffer"`
	ReadChunk      int           `yaml:"read_chunk"`
	SaveInterval   time.Duration `yaml:"save_interval"`
	FingerCacheTTL time.Duration `yaml:"finger_cache_ttl"`
	MetricsListen  string        `yaml:"metrics_listen"`
	Log            LogConfig     `yaml:"log"`
	Commands       CommandConfig `yaml:"commands"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Listen:         ":4000",
		DataDir:        "data",
		Admin:          "admin",
		Charset:        "latin1",
		PollTimeout:    60 * time.Second,
		InputBuffer:    1024,
		OutputBuffer:   16 * 1024,
		ReadChunk:      512,
		SaveInterval:   30 * time.Second,
		FingerCacheTTL: 5 * time.Minute,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Commands: CommandConfig{
			Rate:  5,
			Burst: 10,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Listen) == "" {
		errs = append(errs, errors.New("listen must not be empty"))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.PollTimeout <= 0 {
		errs = append(errs, fmt.Errorf("poll_timeout must be positive, got %s", c.PollTimeout))
	}
	if c.InputBuffer < 16 {
		errs = append(errs, fmt.Errorf("input_buffer must be at least 16, got %d", c.InputBuffer))
	}
	if c.OutputBuffer < 256 {
		errs = append(errs, fmt.Errorf("output_buffer must be at least 256, got %d", c.OutputBuffer))
	}
	if c.ReadChunk <= 0 {
		errs = append(errs, fmt.Errorf("read_chunk must be positive, got %d", c.ReadChunk))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// PlayersDir is where account records are kept.
func (c *Config) PlayersDir() string {
	return filepath.Join(c.DataDir, "players")
}

// WriteDefault writes the default configuration to path unless a file is
// already there.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	cfg := Default()
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger described by lc.
func NewLogger(w io.Writer, lc LogConfig) *slog.Logger {
	level, err := ParseLevel(lc.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
