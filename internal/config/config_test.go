package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"db_path": "data/drafts",
		"indicators_path": "indicators.json",
		"log": {"level": "debug", "output": "both", "file": "logs/editor.log"},
		"backend": {"base_url": "http://file.example", "api_token": "from-file", "name": "rsi dip", "symbol": "BTCUSDT"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "data/drafts", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogConfig.Level)
	assert.Equal(t, "from-file", cfg.Backend.APIToken)
	assert.Equal(t, ":8090", cfg.Server.Addr, "defaults fill missing server settings")
	assert.Equal(t, int64(1<<20), cfg.Server.MaxMessageBytes)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.json", `{"backend": {"base_url": "http://file.example", "api_token": "from-file"}}`)
	t.Setenv(EnvBackendToken, "from-env")
	t.Setenv(EnvBackendURL, "http://env.example")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Backend.APIToken)
	assert.Equal(t, "http://env.example", cfg.Backend.BaseURL)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "bad.json", `{"db_path": 3}`))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "typo.json", `{"db_pth": "x"}`))
	assert.Error(t, err, "unknown keys are rejected")
}

func TestLoadSelectedIndicators(t *testing.T) {
	path := writeFile(t, "indicators.json", `[
		{"id": "rsi-1", "type": "rsi", "timeframe": "1h", "params": [14]},
		{"id": "macd-1", "type": "macd", "name": "MACD fast", "timeframe": "4h", "params": [12, 26, 9]}
	]`)
	selected, err := LoadSelectedIndicators(path)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "MACD fast", selected[1].Name)

	empty, err := LoadSelectedIndicators("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = LoadSelectedIndicators(writeFile(t, "dup.json", `[{"id":"a","type":"rsi"},{"id":"a","type":"ma"}]`))
	assert.Error(t, err)

	_, err = LoadSelectedIndicators(writeFile(t, "noid.json", `[{"type":"rsi"}]`))
	assert.Error(t, err)
}
