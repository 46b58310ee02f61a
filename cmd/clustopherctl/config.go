package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is clustopherctl's configuration, loaded from flags,
// environment variables (CLUSTOPHER_*), and an optional config file,
// in that order of precedence, the way the teacher's am package layers
// its sources.
type Config struct {
	Server struct {
		Port           int      `mapstructure:"port"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"server"`

	Cluster struct {
		MinZoom   int     `mapstructure:"min_zoom"`
		MaxZoom   int     `mapstructure:"max_zoom"`
		MinPoints int     `mapstructure:"min_points"`
		Radius    float64 `mapstructure:"radius"`
		Extent    int     `mapstructure:"extent"`
		NodeSize  int     `mapstructure:"node_size"`
	} `mapstructure:"cluster"`

	SaveDir string `mapstructure:"save_dir"`
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("cluster.min_zoom", 0)
	v.SetDefault("cluster.max_zoom", 16)
	v.SetDefault("cluster.min_points", 2)
	v.SetDefault("cluster.radius", 40.0)
	v.SetDefault("cluster.extent", 512)
	v.SetDefault("cluster.node_size", 64)

	v.SetDefault("save_dir", "data/clusters")
}

// loadConfig reads clustopherctl's configuration from (in ascending
// precedence) defaults, an optional ./clustopherctl.toml, and
// CLUSTOPHER_-prefixed environment variables.
func loadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("clustopherctl")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLUSTOPHER")
	v.AutomaticEnv()

	setConfigDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
