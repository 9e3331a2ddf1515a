// Package config loads database connection configuration from config
// files and the environment.
package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/quillsql/quill/engine"
	"github.com/quillsql/quill/internal/debug"
)

// AppFs is the filesystem used for config discovery, replaceable in
// tests.
var AppFs = afero.NewOsFs()

// Config holds connection settings.
type Config struct {
	Provider        string
	URL             string
	Debug           bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Load reads configuration from .quill.yaml (searched in the working
// directory, the home directory and ~/.config/quill), QUILL_* environment
// variables, and .env/.env.local files.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName(".quill")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "quill"))

	v.SetEnvPrefix("QUILL")
	v.AutomaticEnv()

	v.SetDefault("provider", "mysql")
	v.SetDefault("debug", false)
	v.SetDefault("max_open_conns", 10)
	v.SetDefault("max_idle_conns", 2)
	v.SetDefault("conn_max_lifetime", "30m")

	// Config file is optional.
	_ = v.ReadInConfig()

	// .env files are optional too; .env.local wins.
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	url := v.GetString("database_url")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}

	cfg := &Config{
		Provider:        v.GetString("provider"),
		URL:             url,
		Debug:           v.GetBool("debug"),
		MaxOpenConns:    v.GetInt("max_open_conns"),
		MaxIdleConns:    v.GetInt("max_idle_conns"),
		ConnMaxLifetime: v.GetDuration("conn_max_lifetime"),
	}
	return cfg, nil
}

// Open opens and verifies an engine configured from cfg.
func (cfg *Config) Open(ctx context.Context) (*engine.Engine, error) {
	debug.Init(cfg.Debug)
	eng, err := engine.Open(cfg.Provider, cfg.URL)
	if err != nil {
		return nil, err
	}
	db := eng.DB()
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := eng.Connect(ctx); err != nil {
		eng.Close()
		return nil, err
	}
	return eng, nil
}
