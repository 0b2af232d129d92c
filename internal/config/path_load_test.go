package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "mockinterview", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "mockinterview", "config.jsonc"), resolved)
}

func TestStateDirPrecedence(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdg)
	dir, err := StateDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "mockinterview"), dir)

	t.Setenv("XDG_STATE_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir, err = StateDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state", "mockinterview"), dir)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "api": {
    "base_url": "https://coach.example.com",
    "retries": 4,
  },
  "interview": {"settle_delay_ms": 3000}
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "https://coach.example.com", loaded.Config.API.BaseURL)
	require.Equal(t, 4, loaded.Config.API.Retries)
	require.Equal(t, 3000, loaded.Config.Interview.SettleDelayMS)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"api": {"base_url": "https://file.example.com"}}`), 0o600))

	t.Setenv("MOCKINTERVIEW_API_URL", "https://env.example.com")
	t.Setenv("MOCKINTERVIEW_SETTLE_DELAY_MS", "1500")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com", loaded.Config.API.BaseURL)
	require.Equal(t, 1500, loaded.Config.Interview.SettleDelayMS)
}

func TestLoadDotenvNextToConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MOCKINTERVIEW_ASR_ENDPOINT=ws://dotenv.local:2700\n"), 0o600))
	t.Setenv("MOCKINTERVIEW_ASR_ENDPOINT", "")
	os.Unsetenv("MOCKINTERVIEW_ASR_ENDPOINT")
	t.Cleanup(func() { os.Unsetenv("MOCKINTERVIEW_ASR_ENDPOINT") })

	loaded, err := Load(path)
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, "ws://dotenv.local:2700", loaded.Config.ASR.Endpoint)
}

func TestLoadRejectsInvalidEnvironmentOverride(t *testing.T) {
	t.Setenv("MOCKINTERVIEW_API_URL", "not a url")

	_, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "environment override")
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}

func TestLoadWarningsDescribeOverriddenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"api": {"require_auth": true}}`), 0o600))
	t.Setenv("MOCKINTERVIEW_AUTH_TOKEN", "")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "require_auth")

	t.Setenv("MOCKINTERVIEW_AUTH_TOKEN", "from-env")
	loaded, err = Load(path)
	require.NoError(t, err)
	require.Empty(t, loaded.Warnings)
	require.Equal(t, "from-env", loaded.Config.API.AuthToken)
}

func TestLoadReportsEachWarningOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"api": {"auth_token": "inline", "require_auth": true}}`), 0o600))
	t.Setenv("MOCKINTERVIEW_AUTH_TOKEN", "")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "plain text")
}
