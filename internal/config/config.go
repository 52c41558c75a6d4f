package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Joseda-hg/lazynote/internal/db"
)

const (
	EnvDB    = "LAZYNOTE_DB"
	EnvDSN   = "LAZYNOTE_DSN"
	EnvOwner = "LAZYNOTE_OWNER"
	EnvPort  = "LAZYNOTE_PORT"
)

type Web struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type Config struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn,omitempty"`
	DBPath   string `yaml:"db_path,omitempty"`
	Web      Web    `yaml:"web"`
	OwnerID  string `yaml:"owner_id"`
	LogLevel string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Driver:   string(db.DriverSQLite),
		Web:      Web{Port: 8080},
		OwnerID:  "local",
		LogLevel: "info",
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazynote", "config.yaml"), nil
}

// DefaultDBPath places the sqlite file next to the config file.
func DefaultDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazynote", "lazynote.db"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads path, falling back to defaults when the file does not exist,
// then applies environment overrides.
func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return Config{}, err
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if value, ok := lookup(EnvDB); ok && value != "" {
		c.Driver = value
	}
	if value, ok := lookup(EnvDSN); ok && value != "" {
		c.DSN = value
	}
	if value, ok := lookup(EnvOwner); ok && value != "" {
		c.OwnerID = value
	}
	if value, ok := lookup(EnvPort); ok && value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvPort, err)
		}
		c.Web.Port = port
	}
	return nil
}

// Source returns the driver and data source to open. For sqlite an empty
// DSN falls back to DBPath and then to the default database file.
func (c Config) Source() (db.Driver, string, error) {
	driver, err := db.ParseDriver(c.Driver)
	if err != nil {
		return "", "", err
	}

	dsn := strings.TrimSpace(c.DSN)
	if driver == db.DriverPostgres {
		if dsn == "" {
			return "", "", fmt.Errorf("postgres driver needs a dsn")
		}
		return driver, dsn, nil
	}

	if dsn == "" {
		dsn = c.DBPath
	}
	if dsn == "" {
		if dsn, err = DefaultDBPath(); err != nil {
			return "", "", err
		}
	}
	if dsn != ":memory:" {
		if err := EnsureDir(dsn); err != nil {
			return "", "", err
		}
	}
	return driver, dsn, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
