package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Server  ServerConfig  `mapstructure:"server"`
	Render  RenderConfig  `mapstructure:"render"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Log     LogConfig     `mapstructure:"log"`
}

// SourceConfig selects and configures the club data source.
type SourceConfig struct {
	// Kind is one of "file", "neo4j", "memory".
	Kind string `mapstructure:"kind"`

	// File source.
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`

	// Neo4j source.
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	HealthAddr string `mapstructure:"health_addr"`
}

type RenderConfig struct {
	// Mode pins the initial performance mode; empty means automatic.
	Mode             string `mapstructure:"mode"`
	CullingThreshold int    `mapstructure:"culling_threshold"`
	MaxVisibleNodes  int    `mapstructure:"max_visible_nodes"`
	LowEndDevice     bool   `mapstructure:"low_end_device"`
	LowPowerMode     bool   `mapstructure:"low_power_mode"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Environment  string  `mapstructure:"environment"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source: SourceConfig{Kind: "file", Path: "data"},
		Server: ServerConfig{ListenAddr: ":9090", HealthAddr: ":8080"},
		Render: RenderConfig{CullingThreshold: 1000, MaxVisibleNodes: 500},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	switch c.Source.Kind {
	case "", "file", "neo4j", "memory":
	default:
		warnings = append(warnings, fmt.Sprintf("source kind '%s' is not one of file, neo4j, memory", c.Source.Kind))
	}
	if c.Source.Kind == "file" && c.Source.Path == "" {
		warnings = append(warnings, "file source configured but path is empty")
	}
	if c.Source.Kind == "neo4j" && c.Source.URI == "" {
		warnings = append(warnings, "neo4j source configured but uri is empty")
	}
	if c.Source.Watch && c.Source.Kind != "file" {
		warnings = append(warnings, fmt.Sprintf("watch has no effect for source kind '%s'", c.Source.Kind))
	}

	switch c.Render.Mode {
	case "", "standard", "high-performance", "ultra":
	default:
		warnings = append(warnings, fmt.Sprintf("render mode '%s' is not one of standard, high-performance, ultra", c.Render.Mode))
	}
	if c.Render.MaxVisibleNodes < 0 {
		warnings = append(warnings, fmt.Sprintf("render max_visible_nodes %d is negative", c.Render.MaxVisibleNodes))
	}
	if c.Render.CullingThreshold < 0 {
		warnings = append(warnings, fmt.Sprintf("render culling_threshold %d is negative", c.Render.CullingThreshold))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		warnings = append(warnings, "audit enabled but path is empty; events go to stdout")
	}

	return warnings
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CLUBGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
