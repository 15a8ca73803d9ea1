package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/layer-3/wellness/internal/devbackend"
	"github.com/layer-3/wellness/logger"
)

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "wellness.yml")
	body := fmt.Sprintf(`
api:
  base_url: %s
store:
  driver: bolt
  path: %s
events:
  driver: none
breathing:
  interval: 1ms
`, baseURL, filepath.Join(dir, "credentials.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logger.Reset()
	t.Cleanup(logger.Reset)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSessionCommands(t *testing.T) {
	backend, err := devbackend.New(devbackend.Config{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL+"/api")

	out, err := run(t, "--config", cfgPath, "--env-file", "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	out, err = run(t, "--config", cfgPath, "--env-file", "", "register", "sam@example.com", "-u", "sam", "-p", "hunter22")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome, sam")

	out, err = run(t, "--config", cfgPath, "--env-file", "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, `"email": "sam@example.com"`)

	out, err = run(t, "--config", cfgPath, "--env-file", "", "mental-box", "add", "-t", "Tuesday", "-c", "calmer")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved ")

	out, err = run(t, "--config", cfgPath, "--env-file", "", "mental-box", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Tuesday")

	out, err = run(t, "--config", cfgPath, "--env-file", "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = run(t, "--config", cfgPath, "--env-file", "", "mood", "stats")
	assert.ErrorContains(t, err, "not signed in")
}

func TestBreatheCommand(t *testing.T) {
	cfgPath := writeConfig(t, "http://localhost:8000/api")

	out, err := run(t, "--config", cfgPath, "--env-file", "", "breathe")
	require.NoError(t, err)
	assert.Contains(t, out, "round 1/4")
	assert.Contains(t, out, "Well done.")
}
