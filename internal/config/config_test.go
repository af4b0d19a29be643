package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

// inTempDir runs the test from an empty directory so no stray .env or
// config file is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, 10*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 30*time.Second, cfg.BatchTimeout)
	assert.Equal(t, 300*time.Second, cfg.CacheTTL)
	assert.Equal(t, 60*time.Second, cfg.CacheSweepInterval)
	assert.Equal(t, 1000, cfg.SignatureLimit)
	assert.Zero(t, cfg.ProtocolSampleSize)
	assert.True(t, cfg.UseMemory)
	assert.Equal(t, 10, cfg.PostgresMaxConns)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("BLOCKSCORE_CACHE_TTL", "90s")
	t.Setenv("BLOCKSCORE_ADMIN_KEY", "secret")

	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, "secret", cfg.AdminKey)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv("BLOCKSCORE_SIGNATURE_LIMIT", "200")

	cfg, err := Load("", newFlags(t, "--signature-limit=500", "--protocol-sample-size=25"))
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.SignatureLimit)
	assert.Equal(t, 25, cfg.ProtocolSampleSize)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BLOCKSCORE_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BLOCKSCORE_LOG_LEVEL") })

	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen-addr: \":8080\"\nbatch-timeout: 5s\n"), 0o600))

	cfg, err := Load(path, newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	inTempDir(t)

	_, err := Load("", newFlags(t, "--use-memory=false"))
	assert.Error(t, err)

	_, err = Load("", newFlags(t, "--signature-limit=0"))
	assert.Error(t, err)
}
