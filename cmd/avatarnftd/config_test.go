package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/avatarnft/types"
)

const testYAML = `
admin: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
initialFee: "0.1"
incrementThreshold: 50
nativeOracle: "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
defaultTimeout: 5s
tokens:
  - token: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
    oracle: "0x9326BFA02ADD2366b30bacB125260Af641031331"
store:
  driver: sqlite
  path: /tmp/avatarnft.db
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "avatarnft.yaml", testYAML))
	require.NoError(t, err)

	assert.Equal(t, types.DefaultName, cfg.Name)
	assert.Equal(t, "ANME", cfg.Symbol)
	assert.Equal(t, uint64(50), cfg.IncrementThreshold)
	assert.Equal(t, 5*time.Second, cfg.DefaultTimeout)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	require.Len(t, cfg.Tokens, 1)

	fee, err := cfg.InitialFeeWei()
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000", fee.String())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("AVATARNFT_STORE_PATH", "/var/lib/avatarnft.db")
	t.Setenv("AVATARNFT_LISTEN", ":9090")

	cfg, err := loadConfig(writeConfig(t, "avatarnft.yaml", testYAML))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/avatarnft.db", cfg.Store.Path)
	assert.Equal(t, ":9090", cfg.Listen)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "bad.yaml", "admin: nope\n"))
	assert.True(t, types.HasCode(err, types.ErrConfigError))

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
