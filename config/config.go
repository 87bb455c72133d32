// Package config loads the application configuration from a YAML file with
// environment variable overrides. Environment variables use the IDEAS_
// prefix and underscores for nesting: IDEAS_AUTH_SIGNING_KEY overrides
// auth.signing_key.
package config

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "IDEAS_"

type Server struct {
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
	BaseURL string `koanf:"base_url"`
}

type Database struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
}

type Mailer struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type Auth struct {
	SigningKey      string `koanf:"signing_key"`
	TokenExpiration int    `koanf:"token_expiration"`
	AuthScheme      string `koanf:"auth_scheme"`
	ContextKey      string `koanf:"context_key"`
}

// ApplicationConfiguration is the full configuration tree. It satisfies the
// auth package's Config interface.
type ApplicationConfiguration struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"database"`
	Mailer   Mailer   `koanf:"mailer"`
	Auth     Auth     `koanf:"auth"`
}

// Load reads the YAML file at path, applies environment overrides, fills in
// defaults, and validates the result.
func Load(path string) (*ApplicationConfiguration, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to read configuration file").
			WithTextCode("CONFIGURATION_ERROR").
			WithMetadata(map[string]any{"path": path})
	}

	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to read environment overrides").
			WithTextCode("CONFIGURATION_ERROR")
	}

	cfg := &ApplicationConfiguration{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to unmarshal configuration").
			WithTextCode("CONFIGURATION_ERROR")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "invalid configuration").
			WithTextCode("CONFIGURATION_ERROR")
	}

	return cfg, nil
}

// envToKey maps IDEAS_SERVER_BASE_URL to server.base_url. Only the first
// underscore separates the section from the key; the rest stay literal.
func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}

func (c *ApplicationConfiguration) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Auth.TokenExpiration == 0 {
		c.Auth.TokenExpiration = 1
	}
	if c.Auth.AuthScheme == "" {
		c.Auth.AuthScheme = "Bearer"
	}
	if c.Auth.ContextKey == "" {
		c.Auth.ContextKey = "user"
	}
	if c.Mailer.Port == 0 {
		c.Mailer.Port = 587
	}
}

func (c *ApplicationConfiguration) Validate() error {
	if err := validation.ValidateStruct(&c.Auth,
		validation.Field(&c.Auth.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.Auth.TokenExpiration, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	if err := validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.DSN, validation.Required),
	); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.BaseURL, validation.Required),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	return nil
}

func (c *ApplicationConfiguration) GetSigningKey() string {
	return c.Auth.SigningKey
}

// GetTokenExpiration is the session token lifetime in hours.
func (c *ApplicationConfiguration) GetTokenExpiration() int {
	return c.Auth.TokenExpiration
}

func (c *ApplicationConfiguration) GetAuthScheme() string {
	return c.Auth.AuthScheme
}

func (c *ApplicationConfiguration) GetContextKey() string {
	return c.Auth.ContextKey
}

func (c *ApplicationConfiguration) GetBaseURL() string {
	return c.Server.BaseURL
}

// Addr is the host:port pair the HTTP server binds.
func (c *ApplicationConfiguration) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
