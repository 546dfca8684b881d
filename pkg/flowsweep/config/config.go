// Package config loads and validates the multi-org cleanup configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	// PolicyAllOldVersions selects every inactive, non-latest flow version.
	PolicyAllOldVersions = "all-old-versions"
	// PolicyNamedFlows restricts the selection to named flow definitions.
	PolicyNamedFlows = "named-flows"
)

const (
	DefaultCallbackPort = 8080
	minCallbackPort     = 1024
	maxCallbackPort     = 65535
)

// Config is the whole cleanup run configuration: the org list plus tool
// settings. Field names match the original org-file schema, so existing JSON
// config files load unchanged (YAML is a JSON superset).
type Config struct {
	Orgs     []Org    `yaml:"orgs"`
	Settings Settings `yaml:"settings,omitempty"`
}

type Settings struct {
	OutputFormat string `yaml:"output_format,omitempty"`
	LogDir       string `yaml:"log_dir,omitempty"`
}

// Org is one tenant's identity and policy. Immutable once validated; each org
// is owned by exactly one orchestration run at a time.
type Org struct {
	Instance              string   `yaml:"instance"`
	ClientID              string   `yaml:"client_id"`
	ClientSecret          string   `yaml:"client_secret,omitempty"`
	ClientSecretEnv       string   `yaml:"client_secret_env,omitempty"`
	ClientSecretFile      string   `yaml:"client_secret_file,omitempty"`
	ClientSecretKeyring   string   `yaml:"client_secret_keyring,omitempty"`
	Policy                string   `yaml:"policy,omitempty"`
	CleanupType           string   `yaml:"cleanup_type,omitempty"`
	FlowNames             []string `yaml:"flow_names,omitempty"`
	SkipProductionCheck   bool     `yaml:"skip_production_check,omitempty"`
	AutoConfirmProduction bool     `yaml:"auto_confirm_production,omitempty"`
	CallbackPort          int      `yaml:"callback_port,omitempty"`
	CallbackTimeout       string   `yaml:"callback_timeout,omitempty"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

func (c *Config) applyDefaults() {
	for i := range c.Orgs {
		org := &c.Orgs[i]
		org.Instance = NormalizeInstanceURL(org.Instance)
		if org.CallbackPort == 0 {
			org.CallbackPort = DefaultCallbackPort
		}
		if org.Policy == "" {
			// The original config schema numbered the cleanup modes.
			switch org.CleanupType {
			case "2":
				org.Policy = PolicyNamedFlows
			default:
				org.Policy = PolicyAllOldVersions
			}
		}
	}
}

func (c *Config) Validate() error {
	if len(c.Orgs) == 0 {
		return errors.New("at least one org is required")
	}
	for i := range c.Orgs {
		if err := c.Orgs[i].Validate(); err != nil {
			return fmt.Errorf("org %d: %w", i+1, err)
		}
	}
	return nil
}

func (o *Org) Validate() error {
	if strings.TrimSpace(o.Instance) == "" {
		return errors.New("instance is required")
	}
	if _, err := url.Parse(o.Instance); err != nil {
		return fmt.Errorf("invalid instance URL: %w", err)
	}
	if strings.TrimSpace(o.ClientID) == "" {
		return errors.New("client_id is required")
	}
	if o.CallbackPort < minCallbackPort || o.CallbackPort > maxCallbackPort {
		return fmt.Errorf("callback_port must be between %d and %d", minCallbackPort, maxCallbackPort)
	}
	switch o.Policy {
	case PolicyAllOldVersions:
	case PolicyNamedFlows:
		if len(o.FlowNames) == 0 {
			return errors.New("flow_names is required for the named-flows policy")
		}
	default:
		return fmt.Errorf("unknown policy: %s", o.Policy)
	}
	if o.CallbackTimeout != "" {
		if _, err := time.ParseDuration(o.CallbackTimeout); err != nil {
			return fmt.Errorf("invalid callback_timeout: %w", err)
		}
	}
	return nil
}

// Timeout returns the org's callback timeout, or zero when unset so the
// listener default applies.
func (o *Org) Timeout() time.Duration {
	if o.CallbackTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(o.CallbackTimeout)
	if err != nil {
		return 0
	}
	return d
}

// NormalizeInstanceURL ensures the instance carries an https scheme, matching
// how the original tool treated bare hostnames.
func NormalizeInstanceURL(instance string) string {
	instance = strings.TrimSpace(strings.TrimRight(instance, "/"))
	if instance == "" {
		return instance
	}
	if !strings.HasPrefix(instance, "http://") && !strings.HasPrefix(instance, "https://") {
		instance = "https://" + instance
	}
	return instance
}
