package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Transport   TransportConfig   `yaml:"transport" toml:"transport"`
	DB          DBConfig          `yaml:"db" toml:"db"`
	Persistence PersistenceConfig `yaml:"persistence" toml:"persistence"`
	Log         LogConfig         `yaml:"log" toml:"log"`
	Timestamps  TimestampsConfig  `yaml:"timestamps" toml:"timestamps"`
	App         AppConfig         `yaml:"app" toml:"app"`
}

type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

// TransportConfig selects how the MCP surface is served: "http" or "stdio".
type TransportConfig struct {
	Mode string `yaml:"mode" toml:"mode"`
}

// DBConfig configures the local persistence service.
type DBConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" toml:"driver"`
	// Path is the SQLite file.
	Path string `yaml:"path" toml:"path"`
	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn" toml:"dsn"`
}

// PersistenceConfig selects where versions are stored: "local" uses the
// database, "remote" the tabulation API.
type PersistenceConfig struct {
	Backend  string   `yaml:"backend" toml:"backend"`
	Endpoint string   `yaml:"endpoint" toml:"endpoint"`
	Timeout  Duration `yaml:"timeout" toml:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

type TimestampsConfig struct {
	Offset string `yaml:"offset" toml:"offset"`
}

// AppConfig holds the paths navigation targets are built from.
type AppConfig struct {
	BasePath        string   `yaml:"base_path" toml:"base_path"`
	HomePath        string   `yaml:"home_path" toml:"home_path"`
	NavigationDelay Duration `yaml:"navigation_delay" toml:"navigation_delay"`
}

// Duration is a time.Duration written as "1s" or "1500ms" in config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		DB: DBConfig{
			Driver: "sqlite",
			Path:   "tallysheet.db",
		},
		Persistence: PersistenceConfig{
			Backend:  "local",
			Endpoint: "https://api.tabulation.ecstag.opensource.lk",
			Timeout:  Duration(30 * time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
		Timestamps: TimestampsConfig{
			Offset: "+05:30",
		},
		App: AppConfig{
			BasePath:        "tabulation",
			HomePath:        "/home",
			NavigationDelay: Duration(time.Second),
		},
	}
}

// Load reads configuration from defaults, an optional YAML or TOML file
// (TALLY_CONFIG_PATH), an optional .env file (TALLY_ENV_FILE, default
// ".env") and TALLY_* environment variables, in that order.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("TALLY_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	envFile := os.Getenv("TALLY_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.DB.Driver {
	case "sqlite":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("invalid db driver %q", c.DB.Driver)
	}
	switch c.Persistence.Backend {
	case "local":
	case "remote":
		if c.Persistence.Endpoint == "" {
			return fmt.Errorf("persistence.endpoint is required for remote backend")
		}
	default:
		return fmt.Errorf("invalid persistence backend %q", c.Persistence.Backend)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("TALLY_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TALLY_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid TALLY_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("TALLY_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = strings.ToLower(mode)
	}
	if driver := os.Getenv("TALLY_DB_DRIVER"); driver != "" {
		cfg.DB.Driver = strings.ToLower(driver)
	}
	if dbPath := os.Getenv("TALLY_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if dsn := os.Getenv("TALLY_DB_DSN"); dsn != "" {
		cfg.DB.DSN = dsn
	}
	if backend := os.Getenv("TALLY_PERSISTENCE_BACKEND"); backend != "" {
		cfg.Persistence.Backend = strings.ToLower(backend)
	}
	if endpoint := os.Getenv("TALLY_TABULATION_API_ENDPOINT"); endpoint != "" {
		cfg.Persistence.Endpoint = endpoint
	}
	if timeout := os.Getenv("TALLY_PERSISTENCE_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid TALLY_PERSISTENCE_TIMEOUT: %w", err)
		}
		cfg.Persistence.Timeout = Duration(d)
	}
	if level := os.Getenv("TALLY_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if offset := os.Getenv("TALLY_TIMESTAMP_OFFSET"); offset != "" {
		cfg.Timestamps.Offset = offset
	}
	if base := os.Getenv("TALLY_BASE_PATH"); base != "" {
		cfg.App.BasePath = base
	}
	if home := os.Getenv("TALLY_HOME_PATH"); home != "" {
		cfg.App.HomePath = home
	}
	if delay := os.Getenv("TALLY_NAVIGATION_DELAY"); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return fmt.Errorf("invalid TALLY_NAVIGATION_DELAY: %w", err)
		}
		cfg.App.NavigationDelay = Duration(d)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
