package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server     ServerConfig       `yaml:"server"`
	Transport  TransportConfig    `yaml:"transport"`
	Auth       AuthConfig         `yaml:"auth"`
	DB         DBConfig           `yaml:"db"`
	Store      StoreConfig        `yaml:"store"`
	Backup     BackupConfig       `yaml:"backup"`
	Log        LogConfig          `yaml:"log"`
	Timezone   string             `yaml:"timezone"`
	Operators  []int64            `yaml:"operators"`
	SeedGroups []attendance.Group `yaml:"seed_groups" validate:"dive"`

	// Warnings collects non-fatal problems found while loading.
	Warnings []string `yaml:"-"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

type TransportConfig struct {
	Mode string `yaml:"mode" validate:"oneof=stdio http"`
}

type AuthConfig struct {
	Token string `yaml:"token"`
}

type DBConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type StoreConfig struct {
	Driver    string `yaml:"driver" validate:"oneof=file sqlite"`
	Path      string `yaml:"path" validate:"required_if=Driver file"`
	BackupDir string `yaml:"backup_dir"`
}

type BackupConfig struct {
	Schedule string `yaml:"schedule"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Location returns the configured time zone, or Local when none is set.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Default returns the configuration used when nothing is set.
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
			Path: "rollcall.db",
		},
		Store: StoreConfig{
			Driver:    "file",
			Path:      "attendance_db.json",
			BackupDir: "backups",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional .env file, an optional YAML file
// and environment variables, in that order of increasing precedence.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("ROLLCALL_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("ROLLCALL_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("ROLLCALL_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid ROLLCALL_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("ROLLCALL_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if token := os.Getenv("ROLLCALL_AUTH_TOKEN"); token != "" {
		cfg.Auth.Token = token
	}
	if dbPath := os.Getenv("ROLLCALL_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if driver := os.Getenv("ROLLCALL_STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}
	if path := os.Getenv("ROLLCALL_STORE_PATH"); path != "" {
		cfg.Store.Path = path
	}
	if dir := os.Getenv("ROLLCALL_BACKUP_DIR"); dir != "" {
		cfg.Store.BackupDir = dir
	}
	if schedule, ok := os.LookupEnv("ROLLCALL_BACKUP_SCHEDULE"); ok {
		cfg.Backup.Schedule = schedule
	}
	if level := os.Getenv("ROLLCALL_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if tz := os.Getenv("ROLLCALL_TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}

	raw := os.Getenv("ROLLCALL_OPERATORS")
	key := "ROLLCALL_OPERATORS"
	if raw == "" {
		raw = os.Getenv("ADMIN_IDS")
		key = "ADMIN_IDS"
	}
	if raw != "" {
		ids, warnings := ParseOperators(raw)
		cfg.Operators = ids
		for _, w := range warnings {
			cfg.Warnings = append(cfg.Warnings, key+": "+w)
		}
	}
	return nil
}

// ParseOperators parses a comma-separated list of user ids. Entries that are
// not integers are skipped and reported as warnings.
func ParseOperators(raw string) ([]int64, []string) {
	var ids []int64
	var warnings []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring invalid operator id %q", part))
			continue
		}
		ids = append(ids, id)
	}
	return ids, warnings
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
