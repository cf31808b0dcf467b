// Package config loads the service configuration from the environment.
//
// Values are read once at startup and treated as read-only afterwards.
// Secrets (SECRET_KEY, OIDC_CLIENT_SECRET) are never logged; use Redacted
// when printing a Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"secrets/internal/credential"
)

// SecretsView controls who sees submitted notes on the secrets page.
type SecretsView string

const (
	// ViewAggregate shows every user's note to every authenticated user.
	ViewAggregate SecretsView = "aggregate"
	// ViewOwner shows each user only their own note.
	ViewOwner SecretsView = "owner"
)

// Config holds runtime settings.
type Config struct {
	Addr        string
	DatabaseURL string
	RedisAddr   string
	PublicURL   string
	LogLevel    string

	Codec      credential.Variant
	SecretKey  string
	BcryptCost int

	SessionTTL     time.Duration
	SessionSliding bool
	CookieSecure   bool
	SecretsView    SecretsView

	OIDC OIDC
}

// OIDC holds the federated provider settings.
type OIDC struct {
	Provider     string
	Issuer       string
	ClientID     string
	ClientSecret string
}

// Enabled reports whether federated login is configured.
func (o OIDC) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.PublicURL = "http://localhost:8080"
	c.LogLevel = "info"
	c.Codec = credential.Bcrypt
	c.BcryptCost = credential.DefaultCost
	c.SessionTTL = 24 * time.Hour
	c.SecretsView = ViewAggregate
	c.OIDC.Provider = "google"
	c.OIDC.Issuer = "https://accounts.google.com"
}

// Load builds a Config from defaults overlaid with os.Getenv.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom builds a Config reading variables through getenv.
func LoadFrom(getenv func(string) string) (*Config, error) {
	c := &Config{}
	c.LoadDefaults()

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("ADDR", &c.Addr)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_ADDR", &c.RedisAddr)
	str("PUBLIC_URL", &c.PublicURL)
	str("LOG_LEVEL", &c.LogLevel)
	c.SecretKey = getenv("SECRET_KEY")

	if v := getenv("CREDENTIAL_CODEC"); v != "" {
		c.Codec = credential.Variant(strings.ToLower(v))
	}
	if v := getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BCRYPT_COST: %w", err))
		}
		c.BcryptCost = n
	}
	if v := getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SESSION_TTL: %w", err))
		}
		c.SessionTTL = d
	}
	boolean("SESSION_SLIDING", &c.SessionSliding)
	boolean("COOKIE_SECURE", &c.CookieSecure)
	if v := getenv("SECRETS_VIEW"); v != "" {
		c.SecretsView = SecretsView(strings.ToLower(v))
	}

	str("OIDC_PROVIDER", &c.OIDC.Provider)
	str("OIDC_ISSUER", &c.OIDC.Issuer)
	c.OIDC.ClientID = getenv("OIDC_CLIENT_ID")
	c.OIDC.ClientSecret = getenv("OIDC_CLIENT_SECRET")

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	switch c.Codec {
	case credential.Plaintext, credential.Bcrypt:
	case credential.Symmetric:
		if c.SecretKey == "" {
			errs = append(errs, errors.New("SECRET_KEY is required for the symmetric codec"))
		}
	case credential.Federated:
		if !c.OIDC.Enabled() {
			errs = append(errs, errors.New("CREDENTIAL_CODEC=federated requires OIDC_CLIENT_ID and OIDC_CLIENT_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("CREDENTIAL_CODEC: unsupported value %q", c.Codec))
	}
	if c.Codec == credential.Bcrypt && (c.BcryptCost < 4 || c.BcryptCost > 31) {
		errs = append(errs, fmt.Errorf("BCRYPT_COST: %d out of range [4, 31]", c.BcryptCost))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must not be negative"))
	}
	if c.SessionSliding && c.SessionTTL == 0 {
		errs = append(errs, errors.New("SESSION_SLIDING requires a non-zero SESSION_TTL"))
	}
	if c.SecretsView != ViewAggregate && c.SecretsView != ViewOwner {
		errs = append(errs, fmt.Errorf("SECRETS_VIEW: unsupported value %q", c.SecretsView))
	}
	if c.OIDC.Enabled() {
		if c.SecretKey == "" {
			errs = append(errs, errors.New("SECRET_KEY is required to sign OAuth state"))
		}
		if c.OIDC.Provider == "" || strings.ContainsAny(c.OIDC.Provider, "/?#") {
			errs = append(errs, fmt.Errorf("OIDC_PROVIDER: invalid name %q", c.OIDC.Provider))
		}
	}
	return errors.Join(errs...)
}

// CallbackURL returns the absolute callback address for the provider.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.PublicURL, "/") + "/auth/" + c.OIDC.Provider + "/callback"
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.SecretKey != "" {
		c.SecretKey = "[redacted]"
	}
	if c.OIDC.ClientSecret != "" {
		c.OIDC.ClientSecret = "[redacted]"
	}
	if c.DatabaseURL != "" {
		c.DatabaseURL = "[redacted]"
	}
	return c
}
