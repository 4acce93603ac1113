package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pawnhub/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pawnd.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(200), cfg.AdminFeeBps)
	require.Equal(t, ":8661", cfg.ListenAddress)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file should be written")
}

func TestLoadRejectsOutOfRangeFee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pawnd.toml")
	require.NoError(t, os.WriteFile(path, []byte("AdminFeeBps = 10001\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestCollectorAddressRoundTrip(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	collector := key.PubKey().Address()

	cfg := &Config{AdminFeeBps: 200, FeeCollector: collector.String()}
	require.NoError(t, cfg.Validate())

	decoded, err := cfg.CollectorAddress()
	require.NoError(t, err)
	require.Equal(t, collector.Bytes(), decoded[:])
}

func TestCollectorAddressRejectsGarbage(t *testing.T) {
	cfg := &Config{AdminFeeBps: 200, FeeCollector: "not-a-bech32-address"}
	require.Error(t, cfg.Validate())
}
