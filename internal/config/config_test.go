package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"cxr/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvDataRoot, "")
	t.Setenv(config.EnvImageRoot, "")
	t.Setenv(config.EnvArrayRoot, "")
	t.Setenv(config.EnvCheckpointDir, "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "cxr", "data")
	if cfg.Paths.DataRoot != wantData {
		t.Fatalf("unexpected data root: got %q want %q", cfg.Paths.DataRoot, wantData)
	}
	if cfg.Paths.ImageRoot != filepath.Join(wantData, "stage_2_train_images") {
		t.Fatalf("unexpected image root: %q", cfg.Paths.ImageRoot)
	}
	if cfg.Preprocess.ImageSize != 224 {
		t.Fatalf("unexpected image size: %d", cfg.Preprocess.ImageSize)
	}
	if cfg.Preprocess.TrainCount != 24000 {
		t.Fatalf("unexpected train count: %d", cfg.Preprocess.TrainCount)
	}
	if cfg.Training.Model != "inception" {
		t.Fatalf("unexpected model: %q", cfg.Training.Model)
	}
	if cfg.Training.Monitor != "accuracy" {
		t.Fatalf("unexpected monitor: %q", cfg.Training.Monitor)
	}
	if got := cfg.Evaluate.Thresholds; len(got) != 2 || got[0] != 0.5 || got[1] != 0.25 {
		t.Fatalf("unexpected thresholds: %v", got)
	}
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cxr.toml")
	body := "[paths]\ndata_root = \"" + filepath.Join(dir, "from-file") + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	envRoot := filepath.Join(dir, "from-env")
	t.Setenv(config.EnvDataRoot, envRoot)
	t.Setenv(config.EnvImageRoot, "")
	t.Setenv(config.EnvArrayRoot, "")
	t.Setenv(config.EnvCheckpointDir, "")

	cfg, _, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Paths.DataRoot != envRoot {
		t.Fatalf("expected env override, got %q", cfg.Paths.DataRoot)
	}
}

func TestLoadRejectsBadModel(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cxr.toml")
	body := "[training]\nmodel = \"resnet\"\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvDataRoot, "")
	t.Setenv(config.EnvImageRoot, "")
	t.Setenv(config.EnvArrayRoot, "")
	t.Setenv(config.EnvCheckpointDir, "")

	if _, _, _, err := config.Load(cfgPath); err == nil {
		t.Fatal("expected validation error for unsupported model")
	}
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cxr.toml")
	body := "[evaluate]\nthresholds = [1.5]\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvDataRoot, "")
	t.Setenv(config.EnvImageRoot, "")
	t.Setenv(config.EnvArrayRoot, "")
	t.Setenv(config.EnvCheckpointDir, "")

	if _, _, _, err := config.Load(cfgPath); err == nil {
		t.Fatal("expected validation error for out-of-range threshold")
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected sample config: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty sample config")
	}
}
