package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8080/api/v1", cfg.BaseURL)
	assert.Equal(t, "auto", cfg.Format)
	assert.Empty(t, cfg.StoreID)
	assert.NotNil(t, cfg.Sources)
}

func TestLoadFromFileValues(t *testing.T) {
	cfg := Default()
	path := writeConfig(t, `{"base_url":"https://admin.example.com/api/v1","store_id":5,"branch_id":"b-9","format":"json"}`)

	loadFromFile(cfg, path, SourceGlobal)

	assert.Equal(t, "https://admin.example.com/api/v1", cfg.BaseURL)
	assert.Equal(t, "5", cfg.StoreID, "numeric store_id should be normalized to string")
	assert.Equal(t, "b-9", cfg.BranchID)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, string(SourceGlobal), cfg.Sources["base_url"])
}

func TestLoadFromFileMalformed(t *testing.T) {
	cfg := Default()
	path := writeConfig(t, `{not json`)

	loadFromFile(cfg, path, SourceGlobal)

	// Malformed file is skipped, defaults survive
	assert.Equal(t, "http://localhost:8080/api/v1", cfg.BaseURL)
}

func TestLocalConfigCannotSetAuthorityKeys(t *testing.T) {
	cfg := Default()
	path := writeConfig(t, `{"base_url":"https://evil.example.com","store_id":"s-1"}`)

	loadFromFile(cfg, path, SourceLocal)

	assert.Equal(t, "http://localhost:8080/api/v1", cfg.BaseURL,
		"local config must not override base_url")
	assert.Equal(t, "s-1", cfg.StoreID, "non-authority keys are still applied")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SHOPCTL_BASE_URL", "https://env.example.com")
	t.Setenv("SHOPCTL_STORE_ID", "s-env")
	t.Setenv("SHOPCTL_BRANCH_ID", "b-env")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	assert.Equal(t, "s-env", cfg.StoreID)
	assert.Equal(t, "b-env", cfg.BranchID)
	assert.Equal(t, string(SourceEnv), cfg.Sources["store_id"])
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.StoreID = "from-file"

	ApplyOverrides(cfg, FlagOverrides{Store: "from-flag", Branch: "b-1"})

	assert.Equal(t, "from-flag", cfg.StoreID)
	assert.Equal(t, "b-1", cfg.BranchID)
	assert.Equal(t, string(SourceFlag), cfg.Sources["store_id"])
}

func TestApplyProfile(t *testing.T) {
	cfg := Default()
	cfg.Profiles = map[string]*ProfileConfig{
		"staging": {BaseURL: "https://staging.example.com/api/v1", StoreID: "s-stg"},
	}

	require.NoError(t, cfg.ApplyProfile("staging"))

	assert.Equal(t, "staging", cfg.ActiveProfile)
	assert.Equal(t, "https://staging.example.com/api/v1", cfg.BaseURL)
	assert.Equal(t, "s-stg", cfg.StoreID)
}

func TestApplyProfileMissing(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.ApplyProfile("nope"), "missing profile should error")

	cfg.Profiles = map[string]*ProfileConfig{"a": {BaseURL: "https://a"}}
	assert.Error(t, cfg.ApplyProfile("nope"))
}

func TestProfilesSkipEmptyBaseURL(t *testing.T) {
	cfg := Default()
	path := writeConfig(t, `{"profiles":{"good":{"base_url":"https://g"},"bad":{"store_id":"s-1"}}}`)

	loadFromFile(cfg, path, SourceGlobal)

	assert.Contains(t, cfg.Profiles, "good")
	assert.NotContains(t, cfg.Profiles, "bad", "profile without base_url is skipped")
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://a.example.com", NormalizeBaseURL("https://a.example.com/"))
	assert.Equal(t, "https://a.example.com", NormalizeBaseURL("https://a.example.com"))
}

func TestGetStringOrNumber(t *testing.T) {
	m := map[string]any{
		"str": "5",
		"num": float64(7),
		"nil": nil,
		"arr": []any{1},
	}

	assert.Equal(t, "5", getStringOrNumber(m, "str"))
	assert.Equal(t, "7", getStringOrNumber(m, "num"))
	assert.Equal(t, "", getStringOrNumber(m, "nil"))
	assert.Equal(t, "", getStringOrNumber(m, "arr"))
	assert.Equal(t, "", getStringOrNumber(m, "missing"))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
