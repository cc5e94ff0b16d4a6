// Package config provides configuration management for gitscribe.
// It handles loading and parsing YAML configuration files, and provides
// structured access to application settings including provider endpoints,
// the OAuth client registration, session storage, and logging behavior.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default provider endpoints (GitHub-shaped; any compatible host works).
const (
	DefaultAuthEndpoint  = "https://github.com/login/oauth/authorize"
	DefaultTokenEndpoint = "https://github.com/login/oauth/access_token"
	DefaultAPIBaseURL    = "https://api.github.com"
	DefaultCallbackPort  = 7423
)

// DefaultScopes covers repository browsing and content publishing.
var DefaultScopes = []string{"repo", "read:user"}

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// AuthEndpoint is the provider's OAuth authorization endpoint.
	AuthEndpoint string `yaml:"auth-endpoint" json:"auth-endpoint"`

	// TokenEndpoint is the provider's OAuth token endpoint.
	TokenEndpoint string `yaml:"token-endpoint" json:"token-endpoint"`

	// APIBaseURL is the root of the provider's REST surface.
	APIBaseURL string `yaml:"api-base-url" json:"api-base-url"`

	// ClientID is the public OAuth client identifier. PKCE replaces the
	// client secret, so no secret ever appears in configuration.
	ClientID string `yaml:"client-id" json:"client-id"`

	// Scopes lists the OAuth scopes requested at login.
	Scopes []string `yaml:"scopes" json:"scopes"`

	// CallbackPort is the loopback port the redirect URI points at.
	CallbackPort int `yaml:"callback-port" json:"callback-port"`

	// SessionDir is the directory holding the ephemeral session file.
	// Defaults to ~/.gitscribe when empty.
	SessionDir string `yaml:"session-dir" json:"session-dir"`

	// ProxyURL is the URL of an optional proxy server for outbound requests.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// RequestLog enables detailed provider request logging.
	RequestLog bool `yaml:"request-log" json:"request-log"`

	// LogDir mirrors log output into rotating files when set.
	LogDir string `yaml:"log-dir" json:"log-dir"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" json:"debug"`
}

// LoadConfig reads the configuration file at path, applies environment
// overrides and defaults, and validates the result. A missing file yields a
// default configuration rather than an error so first runs work out of the box.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
				return nil, fmt.Errorf("config: parse %s failed: %w", path, errUnmarshal)
			}
		case os.IsNotExist(err):
			// fall through to defaults
		default:
			return nil, fmt.Errorf("config: read %s failed: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("config: client-id is required (set it in %s or GITSCRIBE_CLIENT_ID)", path)
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GITSCRIBE_CLIENT_ID"); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv("GITSCRIBE_API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("GITSCRIBE_PROXY_URL"); v != "" {
		c.ProxyURL = v
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.AuthEndpoint) == "" {
		c.AuthEndpoint = DefaultAuthEndpoint
	}
	if strings.TrimSpace(c.TokenEndpoint) == "" {
		c.TokenEndpoint = DefaultTokenEndpoint
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.CallbackPort <= 0 {
		c.CallbackPort = DefaultCallbackPort
	}
	if len(c.Scopes) == 0 {
		c.Scopes = append([]string(nil), DefaultScopes...)
	}
	if strings.TrimSpace(c.SessionDir) == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.SessionDir = filepath.Join(home, ".gitscribe")
		} else {
			c.SessionDir = ".gitscribe"
		}
	}
}

// RedirectURI returns the loopback redirect URI registered with the provider.
func (c *Config) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/callback", c.CallbackPort)
}

// SessionFile returns the path of the ephemeral session file.
func (c *Config) SessionFile() string {
	return filepath.Join(c.SessionDir, "session.json")
}
