package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "feldsher.yaml", `
listen_addr: ":9090"
db_path: /tmp/clinic.db
providers:
  - name: primary
    kind: openai
    api_key: sk-test
    model: gpt-4o-mini
  - name: backup
    kind: compat
    api_url: https://api.groq.com/openai/v1
    api_key: gsk-test
    model: llama-3.3-70b-versatile
telegram:
  token: tg-token
  chat_id: 12345
report_cron: "0 9 * * *"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.Len(t, cfg.Providers, 2)
	require.Equal(t, "primary", cfg.Providers[0].Name)
	require.Equal(t, "compat", cfg.Providers[1].Kind)
	require.EqualValues(t, 12345, cfg.Telegram.ChatID)
	require.Equal(t, "0 9 * * *", cfg.ReportCron)
	// Unset fields fall back to defaults.
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, ":8081", cfg.MCP.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "feldsher.yaml", `
listen_addr: ":9090"
providers:
  - name: primary
    kind: openai
    api_key: sk-test
    model: m
`)
	t.Setenv("FELDSHER_LISTEN_ADDR", ":7070")
	t.Setenv("FELDSHER_LOG_LEVEL", "debug")
	t.Setenv("FELDSHER_TELEGRAM_CHAT_ID", "99")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.ListenAddr, "env wins over file")
	require.Equal(t, "debug", cfg.LogLevel)
	require.EqualValues(t, 99, cfg.Telegram.ChatID)
}

func TestLoadProviderShortcutFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GROQ_API_KEY", "gsk-env")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	require.Equal(t, "openai", cfg.Providers[0].Name)
	require.Equal(t, "groq", cfg.Providers[1].Name)
}

func TestLoadNoProviders(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 1)
}

func TestLoadDotenv(t *testing.T) {
	path := writeFile(t, ".env", `
# comment line
FELDSHER_TEST_A=hello
FELDSHER_TEST_B="quoted value"
malformed line
FELDSHER_TEST_C=
`)
	t.Setenv("FELDSHER_TEST_B", "already set")
	defer os.Unsetenv("FELDSHER_TEST_A")

	require.NoError(t, LoadDotenv(path))
	require.Equal(t, "hello", os.Getenv("FELDSHER_TEST_A"))
	require.Equal(t, "already set", os.Getenv("FELDSHER_TEST_B"), "existing env wins")

	require.NoError(t, LoadDotenv(filepath.Join(t.TempDir(), "absent")), "missing file is fine")
}
