package tlsconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCAFile(t *testing.T) {
	_, err := ParseCAFile(filepath.Join(t.TempDir(), "missing.pem"))
	require.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a cert"), 0o600))
	_, err = ParseCAFile(garbage)
	require.Error(t, err)
}

func TestClientConfig(t *testing.T) {
	cfg, err := ClientConfig("logs.example.com", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "logs.example.com", cfg.ServerName)
	assert.Empty(t, cfg.Certificates)
	assert.Nil(t, cfg.KeyLogWriter)

	_, err = ClientConfig("logs.example.com", "", "cert.pem", "key.pem")
	require.Error(t, err)
}

func TestClientConfig_keyLog(t *testing.T) {
	keyLog := filepath.Join(t.TempDir(), "keys.log")
	t.Setenv(KeyLogEnv, keyLog)
	cfg, err := ClientConfig("logs.example.com", "", "", "")
	require.NoError(t, err)
	assert.NotNil(t, cfg.KeyLogWriter)
	assert.FileExists(t, keyLog)
}
