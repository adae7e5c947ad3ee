// Package config loads lattice settings from a YAML file, .env files and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds all configuration for the lattice CLI and servers.
type Config struct {
	Agent     AgentConfig  `yaml:"agent"`
	OpenAI    OpenAIConfig `yaml:"openai"`
	ToolsFile string       `yaml:"tools_file"`
	Store     StoreConfig  `yaml:"store"`
	Server    ServerConfig `yaml:"server"`
	Log       LogConfig    `yaml:"log"`
}

type AgentConfig struct {
	Name          string `yaml:"name" validate:"required"`
	Instructions  string `yaml:"instructions"`
	Model         string `yaml:"model" validate:"required"`
	MaxIterations int    `yaml:"max_iterations" validate:"gte=0"`
}

type OpenAIConfig struct {
	BaseURL    string        `yaml:"base_url" validate:"omitempty,url"`
	APIKey     string        `yaml:"api_key"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=0"`
}

type StoreConfig struct {
	Backend string       `yaml:"backend" validate:"oneof=memory redis sqlite"`
	Redis   RedisConfig  `yaml:"redis"`
	SQLite  SQLiteConfig `yaml:"sqlite"`

	// EncryptionKey is a base64 AES-256 key sealing archived run outputs.
	EncryptionKey string `yaml:"encryption_key" validate:"omitempty,base64"`
	// Redact lists patterns of keys whose values are masked before archiving.
	Redact []string `yaml:"redact"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
	Prefix   string        `yaml:"prefix"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Agent: AgentConfig{
			Name:          "assistant",
			Instructions:  "You are a helpful assistant.",
			Model:         "gpt-4o-mini",
			MaxIterations: 10,
		},
		OpenAI: OpenAIConfig{
			MaxRetries: 3,
			Timeout:    60 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis:   RedisConfig{Addr: "localhost:6379"},
			SQLite:  SQLiteConfig{Path: "lattice.db"},
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. Values are applied in order: defaults,
// the YAML file at path (skipped when path is empty), then environment
// variables. Variables from a .env file in the working directory are loaded
// first without overriding the ones already set.
func Load(path string) (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadEnv loads the given .env files, or ".env" when none are given.
// Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Parse decodes YAML into cfg, rejecting unknown keys.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	str("LATTICE_MODEL", &c.Agent.Model)
	num("LATTICE_MAX_ITERATIONS", &c.Agent.MaxIterations)
	str("LATTICE_TOOLS_FILE", &c.ToolsFile)
	str("LATTICE_STORE", &c.Store.Backend)
	str("LATTICE_REDIS_ADDR", &c.Store.Redis.Addr)
	str("LATTICE_REDIS_PASSWORD", &c.Store.Redis.Password)
	num("LATTICE_REDIS_DB", &c.Store.Redis.DB)
	str("LATTICE_SQLITE_PATH", &c.Store.SQLite.Path)
	str("LATTICE_ENCRYPTION_KEY", &c.Store.EncryptionKey)
	str("LATTICE_ADDR", &c.Server.Addr)
	str("LATTICE_LOG_LEVEL", &c.Log.Level)
	str("LATTICE_LOG_FORMAT", &c.Log.Format)
}

// Validate checks field constraints and backend specific settings.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q validation", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		s := sl.Current().Interface().(StoreConfig)
		switch s.Backend {
		case BackendRedis:
			if s.Redis.Addr == "" {
				sl.ReportError(s.Redis.Addr, "redis.addr", "Addr", "required", "")
			}
		case BackendSQLite:
			if s.SQLite.Path == "" {
				sl.ReportError(s.SQLite.Path, "sqlite.path", "Path", "required", "")
			}
		}
	}, StoreConfig{})
	return v
}
