package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Planner struct {
		Granularity            int   `yaml:"granularity"`
		MaxConcurrentAttendees int   `yaml:"max_concurrent_attendees"`
		ShortSolveMillis       int64 `yaml:"short_solve_millis"`
		LongSolveMillis        int64 `yaml:"long_solve_millis"`
	} `yaml:"planner"`

	Solver struct {
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		SolvePath      string  `yaml:"solve_path"`
		CallbackURL    string  `yaml:"callback_url"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RatePerSecond  float64 `yaml:"rate_per_second"`
		RateBurst      int     `yaml:"rate_burst"`
	} `yaml:"solver"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address      string `yaml:"address"`
		Password     string `yaml:"password"`
		DB           int    `yaml:"db"`
		ArchiveTTL   int    `yaml:"archive_ttl_hours"`
		KeyNamespace string `yaml:"key_namespace"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Planner.Granularity == 0 {
		cfg.Planner.Granularity = 30
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/planner.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	return &cfg, nil
}
