// Package config provides configuration for the normalization service,
// loaded from a YAML file with environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config captures runtime settings for the normalization service.
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Enrich   EnrichConfig   `mapstructure:"enrich" yaml:"enrich"`
	Schema   SchemaConfig   `mapstructure:"schema" yaml:"schema"`
	Rules    RulesConfig    `mapstructure:"rules" yaml:"rules"`
	NATS     NATSConfig     `mapstructure:"nats" yaml:"nats"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// PipelineConfig controls the demuxer and its per-source queues.
type PipelineConfig struct {
	QueueCapacity  int    `mapstructure:"queue_capacity" yaml:"queue_capacity"`
	FuzzySeparator string `mapstructure:"fuzzy_separator" yaml:"fuzzy_separator"`
}

// EnrichConfig controls default schema enrichment behaviour.
type EnrichConfig struct {
	AddEnumSiblings bool `mapstructure:"add_enum_siblings" yaml:"add_enum_siblings"`
	AddObservables  bool `mapstructure:"add_observables" yaml:"add_observables"`
}

// SchemaConfig points at the schema catalog document.
type SchemaConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// RulesConfig points at the rule-document directory tree.
type RulesConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// NATSConfig holds message bus settings.
type NATSConfig struct {
	URL            string `mapstructure:"url" yaml:"url"`
	Name           string `mapstructure:"name" yaml:"name"`
	IngestSubject  string `mapstructure:"ingest_subject" yaml:"ingest_subject"`
	EventSubject   string `mapstructure:"event_subject" yaml:"event_subject"`
	RawSubject     string `mapstructure:"raw_subject" yaml:"raw_subject"`
	IngestQueue    string `mapstructure:"ingest_queue" yaml:"ingest_queue"`
	MaxReconnects  int    `mapstructure:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWaitS int    `mapstructure:"reconnect_wait_seconds" yaml:"reconnect_wait_seconds"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns a Config populated with sane defaults.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			QueueCapacity:  1000,
			FuzzySeparator: ":",
		},
		Enrich: EnrichConfig{
			AddEnumSiblings: true,
			AddObservables:  true,
		},
		Rules: RulesConfig{
			Dir: "rules",
		},
		NATS: NATSConfig{
			URL:            "nats://localhost:4222",
			Name:           "telhawk-normalize",
			IngestSubject:  "events.raw.ingest",
			EventSubject:   "events.normalized",
			RawSubject:     "events.raw.unparsed",
			IngestQueue:    "normalize-workers",
			MaxReconnects:  -1,
			ReconnectWaitS: 2,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9464",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from the given file (optional) plus THN_
// prefixed environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("THN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("pipeline.queue_capacity", d.Pipeline.QueueCapacity)
	v.SetDefault("pipeline.fuzzy_separator", d.Pipeline.FuzzySeparator)
	v.SetDefault("enrich.add_enum_siblings", d.Enrich.AddEnumSiblings)
	v.SetDefault("enrich.add_observables", d.Enrich.AddObservables)
	v.SetDefault("schema.path", d.Schema.Path)
	v.SetDefault("rules.dir", d.Rules.Dir)
	v.SetDefault("nats.url", d.NATS.URL)
	v.SetDefault("nats.name", d.NATS.Name)
	v.SetDefault("nats.ingest_subject", d.NATS.IngestSubject)
	v.SetDefault("nats.event_subject", d.NATS.EventSubject)
	v.SetDefault("nats.raw_subject", d.NATS.RawSubject)
	v.SetDefault("nats.ingest_queue", d.NATS.IngestQueue)
	v.SetDefault("nats.max_reconnects", d.NATS.MaxReconnects)
	v.SetDefault("nats.reconnect_wait_seconds", d.NATS.ReconnectWaitS)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// WriteTemplate renders the default configuration as YAML to the given
// path, refusing to overwrite an existing file.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %q already exists", path)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("render config template: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
