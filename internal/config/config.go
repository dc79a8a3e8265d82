// Package config loads the application configuration.
//
// Values are layered: the embedded defaults, an optional TOML file, a .env
// file and finally the process environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

//go:embed config.example.toml
var exampleConf []byte

// Profile store kinds.
const (
	ProfileStoreRemote = "remote"
	ProfileStoreLocal  = "local"
)

// Log formats.
const (
	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatPretty = "pretty"
)

// DefaultEnvFile is the .env file read by Load.
const DefaultEnvFile = ".env"

// Config represents the application configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	YouTube YouTubeConfig `toml:"youtube"`
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
	Bridge  BridgeConfig  `toml:"bridge"`
	Library LibraryConfig `toml:"library"`
}

// APIConfig locates the profile API and the session's user.
type APIConfig struct {
	BaseURL      string `toml:"base_url"`
	UserID       string `toml:"user_id"`
	ProfileStore string `toml:"profile_store"`
}

// YouTubeConfig contains the search credentials and request rate.
type YouTubeConfig struct {
	APIKey            string  `toml:"api_key"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// ServerConfig contains the profile API server settings.
type ServerConfig struct {
	Addr   string `toml:"addr"`
	DBPath string `toml:"db_path"`
}

// BridgeConfig contains the screen bridge settings.
type BridgeConfig struct {
	Addr string `toml:"addr"`
}

// LibraryConfig contains the local library settings.
type LibraryConfig struct {
	Dir   string `toml:"dir"`
	Watch bool   `toml:"watch"`
}

// Default returns the configuration of the embedded example file.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &cfg
}

// Load reads the configuration file at path (skipped when empty), the .env
// file of the working directory and the environment.
func Load(path string) (*Config, error) {
	return LoadWith(path, DefaultEnvFile, os.LookupEnv)
}

// LoadWith is Load with an explicit .env file and environment lookup. A
// missing .env file is ignored; the environment wins over it.
func LoadWith(path, envFile string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = values
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(env func(string) (string, bool)) error {
	strs := map[string]*string{
		"NUVE_API_BASE_URL":    &c.API.BaseURL,
		"NUVE_USER_ID":         &c.API.UserID,
		"NUVE_PROFILE_STORE":   &c.API.ProfileStore,
		"NUVE_YOUTUBE_API_KEY": &c.YouTube.APIKey,
		"NUVE_LOG_LEVEL":       &c.Log.Level,
		"NUVE_LOG_FORMAT":      &c.Log.Format,
		"NUVE_LOG_FILE":        &c.Log.File,
		"NUVE_SERVER_ADDR":     &c.Server.Addr,
		"NUVE_DB_PATH":         &c.Server.DBPath,
		"NUVE_BRIDGE_ADDR":     &c.Bridge.Addr,
		"NUVE_LIBRARY_DIR":     &c.Library.Dir,
	}
	for key, field := range strs {
		if v, ok := env(key); ok {
			*field = strings.TrimSpace(v)
		}
	}

	if v, ok := env("NUVE_LIBRARY_WATCH"); ok {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid NUVE_LIBRARY_WATCH %q: %w", v, err)
		}
		c.Library.Watch = watch
	}
	return nil
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	var errs []error
	if c.API.UserID == "" {
		errs = append(errs, errors.New("api.user_id is required"))
	}
	if c.API.ProfileStore == ProfileStoreRemote && c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required for the remote profile store"))
	}
	if !lo.Contains([]string{ProfileStoreRemote, ProfileStoreLocal}, c.API.ProfileStore) {
		errs = append(errs, fmt.Errorf("unknown profile store %q", c.API.ProfileStore))
	}
	if !lo.Contains([]string{LogFormatText, LogFormatJSON, LogFormatPretty}, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.YouTube.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("youtube.requests_per_second must not be negative"))
	}
	return errors.Join(errs...)
}

// CreateConfigFile writes the example configuration to path. It fails if
// the file exists.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
