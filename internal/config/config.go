// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the resolved configuration.
type Config struct {
	// API settings
	BaseURL  string `json:"base_url"`
	StoreID  string `json:"store_id"`
	BranchID string `json:"branch_id"`

	// Profile settings (named environment bundles: production, staging, ...)
	Profiles       map[string]*ProfileConfig `json:"profiles,omitempty"`
	DefaultProfile string                    `json:"default_profile,omitempty"`
	ActiveProfile  string                    `json:"-"` // Set at runtime, not persisted

	// Output settings
	Format string `json:"format"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// ProfileConfig holds configuration for a named profile.
type ProfileConfig struct {
	BaseURL  string `json:"base_url"`
	StoreID  string `json:"store_id,omitempty"`
	BranchID string `json:"branch_id,omitempty"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceSystem  Source = "system"
	SourceGlobal  Source = "global"
	SourceLocal   Source = "local"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	Store   string
	Branch  string
	Profile string
	Format  string
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BaseURL: "http://localhost:8080/api/v1",
		Format:  "auto",
		Sources: make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > local > global > system > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, systemConfigPath(), SourceSystem)
	loadFromFile(cfg, globalConfigPath(), SourceGlobal)
	if p := localConfigPath(); p != "" {
		loadFromFile(cfg, p, SourceLocal)
	}

	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	return cfg, nil
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	// Authority keys (base_url, profiles, default_profile) control where
	// tokens are sent. Local config must NOT set these — a malicious config
	// in a shared checkout could redirect authenticated traffic.
	untrusted := source == SourceLocal

	if v, ok := fileCfg["base_url"].(string); ok && v != "" {
		if untrusted {
			fmt.Fprintf(os.Stderr, "warning: ignoring base_url %q from %s config at %s (authority keys are not trusted from local config)\n", v, source, path)
		} else {
			cfg.BaseURL = v
			cfg.Sources["base_url"] = string(source)
		}
	}
	if v := getStringOrNumber(fileCfg, "store_id"); v != "" {
		cfg.StoreID = v
		cfg.Sources["store_id"] = string(source)
	}
	if v := getStringOrNumber(fileCfg, "branch_id"); v != "" {
		cfg.BranchID = v
		cfg.Sources["branch_id"] = string(source)
	}
	if v, ok := fileCfg["format"].(string); ok && v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(source)
	}
	if v, ok := fileCfg["default_profile"].(string); ok && v != "" {
		if untrusted {
			fmt.Fprintf(os.Stderr, "warning: ignoring default_profile %q from %s config at %s\n", v, source, path)
		} else {
			cfg.DefaultProfile = v
			cfg.Sources["default_profile"] = string(source)
		}
	}
	if v, ok := fileCfg["profiles"].(map[string]any); ok {
		if untrusted {
			fmt.Fprintf(os.Stderr, "warning: ignoring profiles from %s config at %s\n", source, path)
		} else {
			loadProfiles(cfg, v, source)
		}
	}
}

func loadProfiles(cfg *Config, v map[string]any, source Source) {
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*ProfileConfig)
	}
	for name, profileData := range v {
		profileMap, ok := profileData.(map[string]any)
		if !ok {
			continue
		}
		baseURL, ok := profileMap["base_url"].(string)
		if !ok || baseURL == "" {
			// Skip profiles with empty or missing base_url
			continue
		}
		cfg.Profiles[name] = &ProfileConfig{
			BaseURL:  baseURL,
			StoreID:  getStringOrNumber(profileMap, "store_id"),
			BranchID: getStringOrNumber(profileMap, "branch_id"),
		}
	}
	cfg.Sources["profiles"] = string(source)
}

// LoadFromEnv loads configuration from environment variables.
// Exported so root.go can re-apply after profile overlay.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("SHOPCTL_BASE_URL"); v != "" {
		cfg.BaseURL = v
		cfg.Sources["base_url"] = string(SourceEnv)
	}
	if v := os.Getenv("SHOPCTL_STORE_ID"); v != "" {
		cfg.StoreID = v
		cfg.Sources["store_id"] = string(SourceEnv)
	}
	if v := os.Getenv("SHOPCTL_BRANCH_ID"); v != "" {
		cfg.BranchID = v
		cfg.Sources["branch_id"] = string(SourceEnv)
	}
	if v := os.Getenv("SHOPCTL_FORMAT"); v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(SourceEnv)
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
// Exported so root.go can re-apply after profile overlay.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.Store != "" {
		cfg.StoreID = o.Store
		cfg.Sources["store_id"] = string(SourceFlag)
	}
	if o.Branch != "" {
		cfg.BranchID = o.Branch
		cfg.Sources["branch_id"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
}

// ApplyProfile overlays profile values onto the config.
//
// This is the first pass of a two-pass precedence system: profile values
// unconditionally overwrite config fields, then the caller re-applies
// LoadFromEnv and ApplyOverrides so env vars and flags keep final precedence.
func (cfg *Config) ApplyProfile(name string) error {
	if cfg.Profiles == nil {
		return fmt.Errorf("no profiles configured")
	}
	p, ok := cfg.Profiles[name]
	if !ok {
		return fmt.Errorf("profile %q not found", name)
	}

	cfg.ActiveProfile = name

	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
		cfg.Sources["base_url"] = "profile"
	}
	if p.StoreID != "" {
		cfg.StoreID = p.StoreID
		cfg.Sources["store_id"] = "profile"
	}
	if p.BranchID != "" {
		cfg.BranchID = p.BranchID
		cfg.Sources["branch_id"] = "profile"
	}

	return nil
}

// getStringOrNumber extracts a value that may be either a string or number in JSON.
func getStringOrNumber(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// JSON numbers are unmarshaled as float64
		return strings.TrimSuffix(fmt.Sprintf("%.0f", val), ".0")
	default:
		return ""
	}
}

// Path helpers

func systemConfigPath() string {
	return "/etc/shopctl/config.json"
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// localConfigPath returns the .shopctl/config.json in the current working
// directory only. Parent traversal is deliberately not done: a parent
// directory outside the operator's control must not influence tenant scoping.
func localConfigPath() string {
	dir, err := os.Getwd()
	if err != nil {
		return "" // fail closed: can't determine CWD
	}
	p := filepath.Join(dir, ".shopctl", "config.json")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "shopctl")
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
