package gate

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Default session values.
const (
	// DefaultBaseURL is the live Gateway endpoint.
	DefaultBaseURL = "https://gate.appla-x.com/api/v0.6"

	// DefaultSandboxBaseURL is the sandbox Gateway endpoint. The sandbox
	// shares the live host; the Gateway switches on the API key.
	DefaultSandboxBaseURL = "https://gate.appla-x.com/api/v0.6"

	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultConnectTimeout is the default connection-establishment timeout.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retries after the first
	// failed attempt.
	DefaultMaxRetries = 3

	// DefaultUserAgent identifies the SDK on every outbound request.
	DefaultUserAgent = "gate-sdk-go/" + Version
)

// Config holds the immutable session settings. Build one with FromEnv or let
// New assemble it from defaults and options.
type Config struct {
	APIKey         string        `koanf:"api_key"          validate:"required,min=32"`
	BaseURL        string        `koanf:"base_url"         validate:"required,url"`
	SandboxBaseURL string        `koanf:"sandbox_base_url" validate:"required,url"`
	Sandbox        bool          `koanf:"sandbox"`
	Timeout        time.Duration `koanf:"timeout"          validate:"required,min=1s"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"  validate:"required,min=100ms"`
	MaxRetries     int           `koanf:"max_retries"      validate:"min=0,max=10"`
	Debug          bool          `koanf:"debug"`
	UserAgent      string        `koanf:"user_agent"       validate:"required"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"base_url":         DefaultBaseURL,
		"sandbox_base_url": DefaultSandboxBaseURL,
		"sandbox":          false,
		"timeout":          "30s",
		"connect_timeout":  "10s",
		"max_retries":      DefaultMaxRetries,
		"debug":            false,
		"user_agent":       DefaultUserAgent,
	}
}

// defaultConfig builds a Config carrying only the default values.
func defaultConfig() (Config, error) {
	k := koanf.New(".")

	err := k.Load(confmap.Provider(defaults(), "."), nil)
	if err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	var cfg Config

	err = k.Unmarshal("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// FromEnv loads configuration with the following precedence (highest to
// lowest):
//  1. Environment variables (GATE_ prefix: GATE_API_KEY, GATE_SANDBOX,
//     GATE_TIMEOUT, GATE_CONNECT_TIMEOUT, GATE_MAX_RETRIES, GATE_DEBUG,
//     GATE_BASE_URL, GATE_SANDBOX_BASE_URL, GATE_USER_AGENT)
//  2. Default values
func FromEnv() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(confmap.Provider(defaults(), "."), nil)
	if err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	err = k.Load(env.Provider("GATE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "GATE_"))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config

	err = k.Unmarshal("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// endpointBase returns the Gateway base URL the session targets.
func (c *Config) endpointBase() string {
	if c.Sandbox {
		return c.SandboxBaseURL
	}
	return c.BaseURL
}

// Validate validates the configuration. Validation fails fast - a session is
// never constructed over invalid settings. API key failures come back as
// Authentication errors, everything else as Validation errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return classifyValidationError(err)
	}
	return nil
}
