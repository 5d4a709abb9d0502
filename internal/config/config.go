package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	DataDir      string   `toml:"data_dir"`
	WorkDirName  string   `toml:"work_dir_name"`
	ShimName     string   `toml:"shim_name"`
	LogLevel     string   `toml:"log_level"`
	StageTimeout Duration `toml:"stage_timeout"`
}

// Duration decodes TOML strings such as "10m". Zero means no timeout.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Dir is where config.toml and .env are looked up.
func Dir(home string) string {
	return filepath.Join(home, ".config", "zoexport")
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(Dir(home), home)
}

// LoadFrom applies, in order: defaults, <dir>/config.toml, <dir>/.env and
// ZOEXPORT_* environment variables.
func LoadFrom(dir, home string) (*Config, error) {
	cfg := &Config{
		DataDir:     filepath.Join(home, "Zotero"),
		WorkDirName: "zo_import",
		ShimName:    "shim",
		LogLevel:    "info",
	}

	cfgPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		// existing environment variables win over the file
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.DataDir = expandHome(cfg.DataDir, home)

	if cfg.WorkDirName == "" || filepath.Base(cfg.WorkDirName) != cfg.WorkDirName {
		return nil, fmt.Errorf("work_dir_name must be a single path element, got %q", cfg.WorkDirName)
	}
	if cfg.ShimName == "" {
		return nil, fmt.Errorf("shim_name must not be empty")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("ZOEXPORT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ZOEXPORT_WORK_DIR_NAME"); v != "" {
		cfg.WorkDirName = v
	}
	if v := os.Getenv("ZOEXPORT_SHIM_NAME"); v != "" {
		cfg.ShimName = v
	}
	if v := os.Getenv("ZOEXPORT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ZOEXPORT_STAGE_TIMEOUT"); v != "" {
		if err := cfg.StageTimeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("ZOEXPORT_STAGE_TIMEOUT: %w", err)
		}
	}
	return nil
}

// DBPath is the Zotero catalog database inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "zotero.sqlite")
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator) {
		return filepath.Join(home, path[2:])
	}
	return path
}
