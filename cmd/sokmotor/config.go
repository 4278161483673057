package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// appConfig captures every knob of the binary, loaded from an optional
// config file and SOKMOTOR_* environment variables.
type appConfig struct {
	Crawler  crawlerConfig  `mapstructure:"crawler"`
	Frontier frontierConfig `mapstructure:"frontier"`
	Graph    graphConfig    `mapstructure:"graph"`
	PageRank pageRankConfig `mapstructure:"pagerank"`
	Logging  loggingConfig  `mapstructure:"logging"`
}

type crawlerConfig struct {
	FetchWorkers int      `mapstructure:"fetch_workers"`
	IntervalSec  int      `mapstructure:"interval_seconds"`
	RefreshSec   int      `mapstructure:"refresh_seconds"`
	UserAgent    string   `mapstructure:"user_agent"`
	SeedURLs     []string `mapstructure:"seed_urls"`
}

type frontierConfig struct {
	PolitenessMs int    `mapstructure:"politeness_ms"`
	MaxAttempts  int    `mapstructure:"max_attempts"`
	VisitedPath  string `mapstructure:"visited_path"`
}

type graphConfig struct {
	// URI selects the link graph store: "in-memory://" or a
	// "postgres://" DSN.
	URI string `mapstructure:"uri"`
}

type pageRankConfig struct {
	IntervalSec int `mapstructure:"interval_seconds"`
}

type loggingConfig struct {
	Level string `mapstructure:"level"`
}

func (c appConfig) crawlInterval() time.Duration {
	return time.Duration(c.Crawler.IntervalSec) * time.Second
}

func (c appConfig) refreshInterval() time.Duration {
	return time.Duration(c.Crawler.RefreshSec) * time.Second
}

func (c appConfig) politenessDelay() time.Duration {
	return time.Duration(c.Frontier.PolitenessMs) * time.Millisecond
}

func (c appConfig) pageRankInterval() time.Duration {
	return time.Duration(c.PageRank.IntervalSec) * time.Second
}

// loadConfig builds an appConfig from disk and environment.
func loadConfig(path string) (appConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("SOKMOTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return appConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return appConfig{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.fetch_workers", 4)
	v.SetDefault("crawler.interval_seconds", 300)
	v.SetDefault("crawler.refresh_seconds", 86400)
	v.SetDefault("crawler.user_agent", "sokmotorbot/1.0")
	v.SetDefault("frontier.politeness_ms", 1000)
	v.SetDefault("frontier.max_attempts", 3)
	v.SetDefault("graph.uri", "in-memory://")
	v.SetDefault("pagerank.interval_seconds", 3600)
	v.SetDefault("logging.level", "info")
}

func (c appConfig) validate() error {
	if c.Crawler.FetchWorkers <= 0 {
		return fmt.Errorf("crawler.fetch_workers must be > 0")
	}
	if c.Crawler.IntervalSec <= 0 {
		return fmt.Errorf("crawler.interval_seconds must be > 0")
	}
	if c.Crawler.RefreshSec <= 0 {
		return fmt.Errorf("crawler.refresh_seconds must be > 0")
	}
	if c.Frontier.PolitenessMs <= 0 {
		return fmt.Errorf("frontier.politeness_ms must be > 0")
	}
	if c.PageRank.IntervalSec <= 0 {
		return fmt.Errorf("pagerank.interval_seconds must be > 0")
	}
	if c.Graph.URI == "" {
		return fmt.Errorf("graph.uri must be set")
	}

	return nil
}
