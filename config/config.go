package config

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"gopkg.in/yaml.v3"

	auth "github.com/goliatone/go-blog-auth"
	"github.com/goliatone/go-blog-auth/paseto"
)

// Defaults
const (
	DefaultEnv             = "development"
	DefaultPort            = 8080
	DefaultLifespanMillis  = 120000
	DefaultSQLiteDSN       = "file:blog.db?cache=shared"
	DefaultPostgresPort    = 5432
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultMetricsPath     = "/metrics"
)

// Config is the blog API configuration
type Config struct {
	Env      string         `yaml:"env" json:"env"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Paseto   PasetoConfig   `yaml:"paseto" json:"paseto"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ShutdownTimeout time.Duration `yaml:"-" json:"shutdown_timeout"`

	ShutdownTimeoutRaw string `yaml:"shutdown_timeout" json:"-"`
}

// PasetoConfig holds the token key pair and lifespan. Keys are base64
// encoded PEM documents.
type PasetoConfig struct {
	LifespanMillis int64  `yaml:"lifespan" json:"lifespan"`
	PublicKey      string `yaml:"public_key" json:"public_key"`
	PrivateKey     Secret `yaml:"private_key" json:"private_key"`
}

// DatabaseConfig selects the bun driver
type DatabaseConfig struct {
	Driver   string `yaml:"driver" json:"driver"`
	DSN      Secret `yaml:"dsn" json:"dsn"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password Secret `yaml:"password" json:"password"`
	Name     string `yaml:"name" json:"name"`
	SSLMode  string `yaml:"sslmode" json:"sslmode"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// Load reads the YAML file at path, if any, applies defaults and the
// environment, and validates the result. An empty path loads from the
// environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable value, or an
// empty string when it is not set.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	secret := func(key string, dst *Secret) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = Secret(v)
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("NODE_ENV", &cfg.Env)
	if err := integer("API_PORT", &cfg.Server.Port); err != nil {
		return err
	}

	if v, ok := lookup("API_PASETO_LIFESPAN"); ok && v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("API_PASETO_LIFESPAN must be milliseconds: %w", err)
		}
		cfg.Paseto.LifespanMillis = n
	}
	str("API_PASETO_PUBLIC_KEY", &cfg.Paseto.PublicKey)
	secret("API_PASETO_PRIVATE_KEY", &cfg.Paseto.PrivateKey)

	str("API_DATABASE_DRIVER", &cfg.Database.Driver)
	secret("API_DATABASE_DSN", &cfg.Database.DSN)
	str("API_DATABASE_HOST", &cfg.Database.Host)
	if err := integer("POSTGRES_PORT", &cfg.Database.Port); err != nil {
		return err
	}
	str("POSTGRES_USER", &cfg.Database.User)
	secret("POSTGRES_PASSWORD", &cfg.Database.Password)
	str("POSTGRES_DB", &cfg.Database.Name)

	str("API_LOG_LEVEL", &cfg.Logging.Level)

	return nil
}

func (c *Config) applyDefaults() error {
	if c.Env == "" {
		c.Env = DefaultEnv
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	c.Server.ShutdownTimeout = DefaultShutdownTimeout
	if c.Server.ShutdownTimeoutRaw != "" {
		d, err := time.ParseDuration(c.Server.ShutdownTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing shutdown_timeout %q: %w", c.Server.ShutdownTimeoutRaw, err)
		}
		c.Server.ShutdownTimeout = d
	}

	if c.Paseto.LifespanMillis == 0 {
		c.Paseto.LifespanMillis = DefaultLifespanMillis
	}

	if c.Database.Driver == "" {
		c.Database.Driver = auth.DriverSQLite
	}

	if c.Database.Driver == auth.DriverPostgres {
		if c.Database.Port == 0 {
			c.Database.Port = DefaultPostgresPort
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "json"
		if c.IsDevelopment() {
			c.Logging.Format = "console"
		}
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	return nil
}

// Validate checks that all required configuration fields are present and valid
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Env, validation.Required),
		validation.Field(&c.Server),
		validation.Field(&c.Paseto),
		validation.Field(&c.Database),
		validation.Field(&c.Logging),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

func (p PasetoConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.LifespanMillis, validation.Required, validation.Min(int64(1))),
		validation.Field(&p.PublicKey, validation.Required),
		validation.Field(&p.PrivateKey, validation.Required),
	)
}

func (d DatabaseConfig) Validate() error {
	// postgres needs either a DSN or the parts to build one
	var parts []validation.Rule
	if d.Driver == auth.DriverPostgres && d.DSN.IsZero() {
		parts = append(parts, validation.Required)
	}

	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In(auth.DriverSQLite, auth.DriverPostgres)),
		validation.Field(&d.Host, parts...),
		validation.Field(&d.Name, parts...),
		validation.Field(&d.Port, validation.Min(0), validation.Max(65535)),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("json", "console")),
	)
}

// IsDevelopment reports whether the process runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Lifespan returns the token lifespan
func (c *Config) Lifespan() time.Duration {
	return time.Duration(c.Paseto.LifespanMillis) * time.Millisecond
}

// DSN returns the database connection string, building a postgres URL
// from its parts when no explicit DSN is configured.
func (c *Config) DSN() string {
	if !c.Database.DSN.IsZero() {
		return c.Database.DSN.Value()
	}

	switch c.Database.Driver {
	case auth.DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
			Path:   "/" + c.Database.Name,
		}
		if c.Database.User != "" {
			if c.Database.Password.IsZero() {
				u.User = url.User(c.Database.User)
			} else {
				u.User = url.UserPassword(c.Database.User, c.Database.Password.Value())
			}
		}
		q := url.Values{}
		q.Set("sslmode", c.Database.SSLMode)
		u.RawQuery = q.Encode()
		return u.String()
	default:
		return DefaultSQLiteDSN
	}
}

// KeyPair decodes the configured key material. The public key must
// belong to the private key.
func (c *Config) KeyPair() (auth.KeyPair, error) {
	privPEM, err := decodeKey(c.Paseto.PrivateKey.Value())
	if err != nil {
		return auth.KeyPair{}, fmt.Errorf("decoding private key: %w", err)
	}

	priv, err := paseto.ParsePrivateKey(privPEM)
	if err != nil {
		return auth.KeyPair{}, fmt.Errorf("parsing private key: %w", err)
	}

	pubPEM, err := decodeKey(c.Paseto.PublicKey)
	if err != nil {
		return auth.KeyPair{}, fmt.Errorf("decoding public key: %w", err)
	}

	pub, err := paseto.ParsePublicKey(pubPEM)
	if err != nil {
		return auth.KeyPair{}, fmt.Errorf("parsing public key: %w", err)
	}

	keys := auth.KeyPair{Public: pub, Private: priv}
	if err := keys.Validate(); err != nil {
		return auth.KeyPair{}, err
	}
	return keys, nil
}

// EncodeKey is the inverse of the key decoding done by KeyPair
func EncodeKey(pem []byte) string {
	return base64.StdEncoding.EncodeToString(pem)
}

func decodeKey(value string) ([]byte, error) {
	value = strings.Join(strings.Fields(value), "")
	if value == "" {
		return nil, fmt.Errorf("key is empty")
	}
	if out, err := base64.StdEncoding.DecodeString(value); err == nil {
		return out, nil
	}
	return base64.RawStdEncoding.DecodeString(value)
}
