package grants

import (
	"time"

	"github.com/goliatone/go-errors"
)

// KindConfig holds per-kind token settings. Expiration is whole seconds.
type KindConfig struct {
	Expiration int
	Issuer     string
	Audience   []string
}

// Config is the process-wide grant configuration. It is built once at
// startup and treated as immutable; nothing in this package mutates it after
// construction.
type Config struct {
	signingKey         []byte
	kinds              map[TokenKind]KindConfig
	defaultIssuer      string
	defaultAudience    []string
	secureStatusWindow time.Duration
	cookieName         string
	cookieMaxAge       time.Duration
	cookieSecure       bool
	authScheme         string
	contextKey         string
	bcryptCost         int
}

// ConfigOption mutates the config during construction only.
type ConfigOption func(*Config)

const (
	defaultAccessExpiration  = 3600          // 1 hour
	defaultRefreshExpiration = 30 * 86400    // 30 days
	defaultResetExpiration   = 4 * 3600      // 4 hours
)

// NewConfig builds a validated, immutable Config. Kinds not overridden get
// sensible defaults; the signing key is mandatory.
func NewConfig(signingKey string, opts ...ConfigOption) (*Config, error) {
	if signingKey == "" {
		return nil, errors.New("signing key is required", errors.CategoryValidation).
			WithTextCode("SIGNING_KEY_REQUIRED")
	}

	cfg := &Config{
		signingKey: []byte(signingKey),
		kinds: map[TokenKind]KindConfig{
			TokenKindAccess:        {Expiration: defaultAccessExpiration},
			TokenKindRefresh:       {Expiration: defaultRefreshExpiration},
			TokenKindResetPassword: {Expiration: defaultResetExpiration},
		},
		secureStatusWindow: 10 * time.Minute,
		cookieName:         "refresh_token",
		cookieMaxAge:       time.Duration(defaultRefreshExpiration) * time.Second,
		cookieSecure:       true,
		authScheme:         "Bearer",
		contextKey:         "claims",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	for kind, kc := range cfg.kinds {
		if kc.Expiration <= 0 {
			return nil, errors.New("token kind expiration must be positive", errors.CategoryValidation).
				WithTextCode("TOKEN_EXPIRATION_INVALID").
				WithMetadata(map[string]any{"kind": string(kind)})
		}

		// Process-wide issuer and audience apply after all options ran, so
		// a kind registered after WithIssuer still inherits them. Explicit
		// per-kind values win.
		if kc.Issuer == "" {
			kc.Issuer = cfg.defaultIssuer
		}
		if len(kc.Audience) == 0 {
			kc.Audience = cfg.defaultAudience
		}
		cfg.kinds[kind] = kc
	}

	return cfg, nil
}

// WithTokenKind overrides or registers the configuration for a token kind.
func WithTokenKind(kind TokenKind, kc KindConfig) ConfigOption {
	return func(c *Config) {
		c.kinds[kind] = kc
	}
}

// WithIssuer sets the issuer for every kind that does not set its own. It is
// order-independent with respect to WithTokenKind.
func WithIssuer(issuer string) ConfigOption {
	return func(c *Config) {
		c.defaultIssuer = issuer
	}
}

// WithAudience sets the audience for every kind that does not set its own.
// It is order-independent with respect to WithTokenKind.
func WithAudience(audience ...string) ConfigOption {
	return func(c *Config) {
		c.defaultAudience = audience
	}
}

// WithSecureStatusWindow sets the elevated-trust window attached to password
// grants that request it.
func WithSecureStatusWindow(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.secureStatusWindow = d
	}
}

// WithRefreshCookie configures the cookie that carries refresh tokens.
func WithRefreshCookie(name string, maxAge time.Duration, secure bool) ConfigOption {
	return func(c *Config) {
		c.cookieName = name
		c.cookieMaxAge = maxAge
		c.cookieSecure = secure
	}
}

// WithAuthScheme sets the Authorization header scheme, default "Bearer".
func WithAuthScheme(scheme string) ConfigOption {
	return func(c *Config) {
		c.authScheme = scheme
	}
}

// WithContextKey sets the locals key middleware stores claims under.
func WithContextKey(key string) ConfigOption {
	return func(c *Config) {
		c.contextKey = key
	}
}

// WithBcryptCost overrides the password hashing cost factor.
func WithBcryptCost(cost int) ConfigOption {
	return func(c *Config) {
		c.bcryptCost = cost
	}
}

func (c *Config) GetSigningKey() []byte { return c.signingKey }

// GetKindConfig returns the settings for a kind, failing closed for
// unregistered kinds.
func (c *Config) GetKindConfig(kind TokenKind) (KindConfig, error) {
	kc, ok := c.kinds[kind]
	if !ok {
		clone := ErrTokenKindNotConfigured.Clone()
		return KindConfig{}, clone.WithMetadata(map[string]any{"kind": string(kind)})
	}
	return kc, nil
}

func (c *Config) GetSecureStatusWindow() time.Duration { return c.secureStatusWindow }
func (c *Config) GetCookieName() string                { return c.cookieName }
func (c *Config) GetCookieMaxAge() time.Duration       { return c.cookieMaxAge }
func (c *Config) GetCookieSecure() bool                { return c.cookieSecure }
func (c *Config) GetAuthScheme() string                { return c.authScheme }
func (c *Config) GetContextKey() string                { return c.contextKey }
func (c *Config) GetBcryptCost() int                   { return c.bcryptCost }
