package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// Python is the interpreter used to execute package initializers.
	Python  string  `toml:"python"`
	Loader  Loader  `toml:"loader"`
	Exclude Exclude `toml:"exclude"`
	Output  Output  `toml:"output"`
	History History `toml:"history"`
	Metrics Metrics `toml:"metrics"`
	Watch   Watch   `toml:"watch"`
}

type Loader struct {
	Enabled bool          `toml:"enabled"`
	Timeout time.Duration `toml:"timeout"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Output struct {
	DOT     string `toml:"dot"`
	Mermaid string `toml:"mermaid"`
	TSV     string `toml:"tsv"`
}

type History struct {
	Path string `toml:"path"`
}

type Metrics struct {
	Addr         string `toml:"addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

type Watch struct {
	Debounce          time.Duration `toml:"debounce"`
	RebuildsPerMinute float64       `toml:"rebuilds_per_minute"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

func Default() *Config {
	cfg := &Config{}
	cfg.Loader.Enabled = true
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Python == "" {
		c.Python = "python3"
	}
	if c.Loader.Timeout == 0 {
		c.Loader.Timeout = 10 * time.Second
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	if c.Watch.RebuildsPerMinute == 0 {
		c.Watch.RebuildsPerMinute = 6
	}
}
