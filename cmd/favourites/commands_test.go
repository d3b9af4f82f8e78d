package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
app:
  name: favourites
  logLevel: error
apiServer:
  auth:
    enabled: true
    mode: apikey
    apiKeys:
      - very-secret-key
favourites:
  backend: badger
  badger:
    in_memory: true
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cli.yaml"), []byte(testConfigYAML), 0o600))
	t.Setenv("FAVOURITES_CONFIG_DIR", dir)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env", "cli"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	out, err := runCLI(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "name: favourites")
	assert.NotContains(t, out, "very-secret-key")
}

func TestClearCacheCommand_MemoryCache(t *testing.T) {
	out, err := runCLI(t, "clear-cache", "--reason", "test")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 0 cached favourites lists")
}

func TestMigrateCommand_RequiresDSN(t *testing.T) {
	_, err := runCLI(t, "migrate")
	assert.Error(t, err)
}

func TestUnknownEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FAVOURITES_CONFIG_DIR", dir)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env", "missing", "config"})
	assert.Error(t, cmd.Execute())
}
