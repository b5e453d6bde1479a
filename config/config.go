// Package config loads the vault configuration from a YAML file and the
// environment. Values set in the environment override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/ruteri/nildb-agentkit/registry"
	"github.com/ruteri/nildb-agentkit/sharing"
	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvOrgID           = "NILLION_ORG_ID"
	EnvSecretKey       = "NILLION_SECRET_KEY"
	EnvRegistrationURL = "NILLION_REGISTRATION_URL"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvOpenAIModel     = "OPENAI_MODEL"
	EnvOpenAIBaseURL   = "OPENAI_BASE_URL"
)

const (
	DefaultTokenTTL    = time.Hour
	DefaultHTTPTimeout = 30 * time.Second
	DefaultTextModel   = "gpt-4o-mini"
	DefaultOpenAIBase  = "https://api.openai.com/v1"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Config is the top-level configuration structure.
type Config struct {
	// OrgDID identifies the organization to the registration service and nodes.
	OrgDID string `yaml:"org_did"`

	// SecretKey is the hex-encoded secp256k1 key of the organization.
	SecretKey string `yaml:"secret_key"`

	RegistrationURL string        `yaml:"registration_url"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`

	// IDPolicy is "regenerate" (default) or "preserve".
	IDPolicy string `yaml:"id_policy"`

	TextModel TextModelConfig `yaml:"text_model"`
}

// TextModelConfig configures the OpenAI-compatible schema synthesizer.
type TextModelConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Default returns a configuration with every optional field set.
func Default() *Config {
	return &Config{
		RegistrationURL: registry.DefaultRegistrationURL,
		TokenTTL:        DefaultTokenTTL,
		HTTPTimeout:     DefaultHTTPTimeout,
		IDPolicy:        sharing.IDPolicyRegenerate.String(),
		TextModel: TextModelConfig{
			Model:   DefaultTextModel,
			BaseURL: DefaultOpenAIBase,
		},
	}
}

// Load reads a YAML configuration file on top of Default, expands environment
// variables inside it, then applies environment overrides. An empty path only
// applies defaults and environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}

		expanded, err := expandEnv(raw)
		if err != nil {
			return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
		}

		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	cfg.FromEnv()
	return cfg, nil
}

// FromEnv overrides fields with the environment variables that are set.
func (c *Config) FromEnv() {
	overrides := []struct {
		env   string
		field *string
	}{
		{EnvOrgID, &c.OrgDID},
		{EnvSecretKey, &c.SecretKey},
		{EnvRegistrationURL, &c.RegistrationURL},
		{EnvOpenAIKey, &c.TextModel.APIKey},
		{EnvOpenAIModel, &c.TextModel.Model},
		{EnvOpenAIBaseURL, &c.TextModel.BaseURL},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.field = v
		}
	}
}

// Validate checks the settings needed to reach the cluster. With
// requireTextModel the OpenAI API key must be present as well.
func (c *Config) Validate(requireTextModel bool) error {
	var errs []error
	if c.OrgDID == "" {
		errs = append(errs, fmt.Errorf("%w: %s is not configured", interfaces.ErrConfiguration, EnvOrgID))
	}
	if c.SecretKey == "" {
		errs = append(errs, fmt.Errorf("%w: %s is not configured", interfaces.ErrConfiguration, EnvSecretKey))
	}
	if requireTextModel && c.TextModel.APIKey == "" {
		errs = append(errs, fmt.Errorf("%w: %s is not configured", interfaces.ErrConfiguration, EnvOpenAIKey))
	}
	if _, err := sharing.ParseIDPolicy(c.IDPolicy); err != nil {
		errs = append(errs, err)
	}
	if c.TokenTTL < 0 || c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: durations must not be negative", interfaces.ErrConfiguration))
	}
	return errors.Join(errs...)
}

// Policy returns the parsed id policy. Call Validate first.
func (c *Config) Policy() sharing.IDPolicy {
	p, _ := sharing.ParseIDPolicy(c.IDPolicy)
	return p
}

// Registry returns the registry credentials derived from the configuration.
func (c *Config) Registry() registry.Config {
	return registry.Config{
		OrgDID:       c.OrgDID,
		SecretKeyHex: c.SecretKey,
		TokenTTL:     c.TokenTTL,
	}
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
// Returns an error listing all unresolved variables (no default, no env value).
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if hasDefault {
			return subs[2]
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
