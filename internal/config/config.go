// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

// Package config loads service configuration. Sources are layered, later
// ones winning: built-in defaults, an optional YAML file, the bare
// JWT_SECRET_KEY, GROQ_API_KEY, HOST and PORT variables, POLYLINGO_*
// variables, and finally command-line flags that were set explicitly.
package config

import (
	"net"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/polylingo/polylingo/internal/auth"
)

// Error codes.
const (
	CodeLoad    = "CONFIG_LOAD"
	CodeInvalid = "CONFIG_INVALID"
)

// EnvPrefix is the prefix for environment overrides. Nested keys are
// separated by a double underscore: POLYLINGO_UPSTREAM__API_KEY.
const EnvPrefix = "POLYLINGO_"

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Upstream UpstreamConfig `koanf:"upstream"`
	CORS     CORSConfig     `koanf:"cors"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	MetricsAddr       string        `koanf:"metrics_addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// AuthConfig configures credentials and tokens.
type AuthConfig struct {
	JWTSecretKey    string        `koanf:"jwt_secret_key"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	Hasher          string        `koanf:"hasher"`
	BcryptCost      int           `koanf:"bcrypt_cost"`
	RequireForTasks bool          `koanf:"require_for_tasks"`
}

// UpstreamConfig configures the completion service.
type UpstreamConfig struct {
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	Timeout     time.Duration `koanf:"timeout"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`
	MaxRetries  int           `koanf:"max_retries"`
}

// CORSConfig lists allowed origins as glob patterns.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8001",
			MetricsAddr:       "127.0.0.1:9101",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:   auth.DefaultTokenTTL,
			Hasher:     "bcrypt",
			BcryptCost: auth.DefaultBcryptCost,
		},
		Upstream: UpstreamConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama3-8b-8192",
			Timeout:     15 * time.Second,
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":             "server.addr",
	"metrics-addr":     "server.metrics_addr",
	"log-format":       "log.format",
	"log-level":        "log.level",
	"upstream-url":     "upstream.base_url",
	"model":            "upstream.model",
	"upstream-timeout": "upstream.timeout",
	"require-auth":     "auth.require_for_tasks",
}

// legacyEnv maps unprefixed variables kept for existing deployments.
var legacyEnv = map[string]string{
	"JWT_SECRET_KEY": "auth.jwt_secret_key",
	"GROQ_API_KEY":   "upstream.api_key",
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.Server.Addr, "HTTP listen address")
	fs.String("metrics-addr", d.Server.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("upstream-url", d.Upstream.BaseURL, "completion service base URL")
	fs.String("model", d.Upstream.Model, "completion model name")
	fs.Duration("upstream-timeout", d.Upstream.Timeout, "timeout for one completion call")
	fs.Bool("require-auth", d.Auth.RequireForTasks, "require a bearer token on task endpoints")
}

// Load builds the configuration. path may be empty; fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeLoad).With("path", path).Wrapf(err, "read config file")
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", legacyEnvKey), nil); err != nil {
		return nil, oops.Code(CodeLoad).Wrapf(err, "read environment")
	}
	if addr, ok := legacyListenAddr(); ok {
		if err := k.Set("server.addr", addr); err != nil {
			return nil, oops.Code(CodeLoad).Wrapf(err, "apply HOST/PORT")
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", prefixedEnvKey), nil); err != nil {
		return nil, oops.Code(CodeLoad).Wrapf(err, "read environment")
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeLoad).Wrapf(err, "read flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code(CodeLoad).Wrapf(err, "decode config")
	}
	return cfg, nil
}

func legacyEnvKey(key, value string) (string, any) {
	if mapped, ok := legacyEnv[key]; ok && value != "" {
		return mapped, value
	}
	return "", nil
}

func prefixedEnvKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "cors.allowed_origins" {
		return key, strings.Split(value, ",")
	}
	return key, value
}

// legacyListenAddr joins HOST and PORT when either is set.
func legacyListenAddr() (string, bool) {
	host, hostSet := os.LookupEnv("HOST")
	port, portSet := os.LookupEnv("PORT")
	if !hostSet && !portSet {
		return "", false
	}
	if port == "" {
		port = "8001"
	}
	return net.JoinHostPort(host, port), true
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	invalid := func(key string, format string, args ...any) error {
		return oops.Code(CodeInvalid).With("key", key).Errorf(format, args...)
	}

	if c.Server.Addr == "" {
		return invalid("server.addr", "server.addr is required")
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		return invalid("server.read_header_timeout", "server.read_header_timeout must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return invalid("server.shutdown_timeout", "server.shutdown_timeout must be positive")
	}
	if c.Auth.TokenTTL <= 0 {
		return invalid("auth.token_ttl", "auth.token_ttl must be positive")
	}
	if !slices.Contains([]string{"bcrypt", "argon2id"}, c.Auth.Hasher) {
		return invalid("auth.hasher", "auth.hasher must be 'bcrypt' or 'argon2id', got %q", c.Auth.Hasher)
	}
	if c.Auth.BcryptCost < auth.MinBcryptCost || c.Auth.BcryptCost > auth.MaxBcryptCost {
		return invalid("auth.bcrypt_cost", "auth.bcrypt_cost must be between %d and %d", auth.MinBcryptCost, auth.MaxBcryptCost)
	}
	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("upstream.base_url", "upstream.base_url must be an absolute URL")
	}
	if c.Upstream.Model == "" {
		return invalid("upstream.model", "upstream.model is required")
	}
	if c.Upstream.Timeout <= 0 {
		return invalid("upstream.timeout", "upstream.timeout must be positive")
	}
	if c.Upstream.Temperature < 0 || c.Upstream.Temperature > 2 {
		return invalid("upstream.temperature", "upstream.temperature must be between 0 and 2")
	}
	if c.Upstream.MaxTokens <= 0 {
		return invalid("upstream.max_tokens", "upstream.max_tokens must be positive")
	}
	if c.Upstream.MaxRetries < 0 {
		return invalid("upstream.max_retries", "upstream.max_retries cannot be negative")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return invalid("log.level", "log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	return nil
}

// UsesInsecureSigningKey reports whether no signing key was configured.
func (c *Config) UsesInsecureSigningKey() bool {
	return c.Auth.JWTSecretKey == "" || c.Auth.JWTSecretKey == auth.InsecureDefaultSigningKey
}

// SigningKey returns the configured key, or the insecure default.
func (c *Config) SigningKey() []byte {
	if c.Auth.JWTSecretKey == "" {
		return []byte(auth.InsecureDefaultSigningKey)
	}
	return []byte(c.Auth.JWTSecretKey)
}
