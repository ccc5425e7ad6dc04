// Package config loads runtime configuration from the environment (with an
// optional .env file) and the per-deployment category map from YAML.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	APIPort     int    `env:"API_PORT" envDefault:"8080"`

	// Ingestion
	StrictIngestion bool     `env:"STRICT_INGESTION" envDefault:"false"`
	IngestWorkers   int      `env:"INGEST_WORKERS" envDefault:"1"`
	DatasetPaths    []string `env:"DATASET_PATHS" envSeparator:","`

	// Category enumeration override; defaults to the built-in map when empty.
	CategoryMapPath string `env:"CATEGORY_MAP_PATH"`

	// Analysis exports
	ExportDir            string `env:"EXPORT_DIR" envDefault:"./exports"`
	ExportTopN           int    `env:"EXPORT_TOP_N" envDefault:"100"`
	ExportTimeSeriesTopN int    `env:"EXPORT_TIMESERIES_TOP_N" envDefault:"10"`

	// Query API rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// categoryMapFile is the YAML shape of a category map override:
//
//	categories:
//	  total: ALL
//	  economy: "002000000"
type categoryMapFile struct {
	Categories map[string]string `yaml:"categories"`
}

// Categories returns the closed category enumeration for this deployment:
// category name → data source identifier. The set is fixed per deployment,
// never discovered dynamically; ingestion rejects anything outside it.
func (c *Config) Categories() (domain.CategorySet, error) {
	if c.CategoryMapPath == "" {
		return defaultCategories(), nil
	}

	raw, err := os.ReadFile(c.CategoryMapPath)
	if err != nil {
		return nil, fmt.Errorf("read category map %s: %w", c.CategoryMapPath, err)
	}

	var file categoryMapFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse category map %s: %w", c.CategoryMapPath, err)
	}

	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("category map %s: no categories defined", c.CategoryMapPath)
	}

	set := make(domain.CategorySet, len(file.Categories))
	for name, sourceID := range file.Categories {
		set[domain.Category(name)] = sourceID
	}

	return set, nil
}

// defaultCategories mirrors the source site's issue-category selector: the
// "total" view plus the economy section code.
func defaultCategories() domain.CategorySet {
	return domain.CategorySet{
		domain.CategoryTotal:   "ALL",
		domain.CategoryEconomy: "002000000",
	}
}
