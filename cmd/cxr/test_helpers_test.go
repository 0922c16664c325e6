package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

// setupCLITestEnv isolates the command under a temp home with every
// pipeline directory redirected into the test sandbox.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", base)
	t.Setenv("CXR_DATA_ROOT", filepath.Join(base, "data"))
	t.Setenv("CXR_IMAGE_ROOT", filepath.Join(base, "data", "images"))
	t.Setenv("CXR_ARRAY_ROOT", filepath.Join(base, "arrays"))
	t.Setenv("CXR_CHECKPOINT_DIR", filepath.Join(base, "checkpoints"))

	configPath := filepath.Join(base, "config.toml")
	body := fmt.Sprintf(`[paths]
data_root = %q
image_root = %q
array_root = %q
checkpoint_dir = %q
log_dir = %q
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "data", "images"),
		filepath.Join(base, "arrays"),
		filepath.Join(base, "checkpoints"),
		filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}

	return &cliTestEnv{baseDir: base, configPath: configPath}
}

// runCLI executes the root command with the given arguments and returns
// captured stdout.
func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd.SetArgs(args)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
