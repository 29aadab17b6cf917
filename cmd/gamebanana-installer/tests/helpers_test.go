package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"go-gamebanana-install/internal/models"

	"github.com/stretchr/testify/require"
)

// runCommand executes the binary from a scratch working directory so that no
// ./config.toml or ./data from the repository leaks into the run.
func runCommand(t *testing.T, env []string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir())
	cmd.Env = append(cmd.Env, env...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		t.Logf("Command failed with error: %v\nStderr:\n%s", err, stderr.String())
	}
	return stdout.String(), stderr.String(), err
}

func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "temp_config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "Failed to write temporary config file")
	return path
}

func parseShowConfigOutput(t *testing.T, output string) models.Config {
	t.Helper()
	var cfg models.Config
	err := json.Unmarshal([]byte(output), &cfg)
	if err != nil {
		t.Logf("Failed to unmarshal JSON output:\n%s", output)
	}
	require.NoError(t, err, "Failed to parse JSON output from debug show-config")
	return cfg
}
