package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for every pipeline stage.
type Paths struct {
	DataRoot      string `toml:"data_root"`
	ImageRoot     string `toml:"image_root"`
	ArrayRoot     string `toml:"array_root"`
	CheckpointDir string `toml:"checkpoint_dir"`
	LogDir        string `toml:"log_dir"`
}

// Preprocess contains configuration for the DICOM-to-array stage.
type Preprocess struct {
	LabelFile string `toml:"label_file"`
	// ImageSize is the square resolution arrays are resized to.
	ImageSize int `toml:"image_size"`
	// TrainCount is the prefix row cutoff that assigns the first N
	// deduplicated subjects to the training split. The remainder become
	// validation. Kept as a row count so reruns over the same ordered
	// label table always reproduce the split.
	TrainCount int `toml:"train_count"`
	// MaxIntensity is the raw pixel value mapped to 1.0.
	MaxIntensity float64 `toml:"max_intensity"`
}

// Training contains configuration for the model and optimizer.
type Training struct {
	// Model selects the classifier backbone: "inception" or "smallcnn".
	Model        string  `toml:"model"`
	BatchSize    int     `toml:"batch_size"`
	LearningRate float64 `toml:"learning_rate"`
	Epochs       int     `toml:"epochs"`
	// PosWeight scales the loss contribution of positive samples.
	// 1.0 disables class weighting.
	PosWeight float64 `toml:"pos_weight"`
	// KeepCheckpoints is how many top-ranked snapshots are retained.
	KeepCheckpoints int `toml:"keep_checkpoints"`
	// Monitor selects the checkpoint ranking metric: "accuracy" (maximized)
	// or "loss" (minimized).
	Monitor string `toml:"monitor"`
	// LoaderWorkers bounds the parallel sample-decoding workers. Zero
	// means synchronous loading.
	LoaderWorkers  int   `toml:"loader_workers"`
	FreezeBackbone bool  `toml:"freeze_backbone"`
	Seed           int64 `toml:"seed"`
}

// Evaluate contains configuration for threshold-based reporting.
type Evaluate struct {
	Thresholds []float64 `toml:"thresholds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the pipeline.
//
// Configuration sections by subsystem:
//   - Paths: data, image, array, checkpoint, and log directories
//   - Preprocess: label table, resolution, split cutoff, intensity scale
//   - Training: backbone, optimizer, checkpoint retention
//   - Evaluate: decision thresholds for the report
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Preprocess Preprocess `toml:"preprocess"`
	Training   Training   `toml:"training"`
	Evaluate   Evaluate   `toml:"evaluate"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cxr/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded, environment overrides applied, and
// defaults filled in.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Environment variables that override the [paths] section. The original
// pipeline was driven entirely by these, so they win over the file.
const (
	EnvDataRoot      = "CXR_DATA_ROOT"
	EnvImageRoot     = "CXR_IMAGE_ROOT"
	EnvArrayRoot     = "CXR_ARRAY_ROOT"
	EnvCheckpointDir = "CXR_CHECKPOINT_DIR"
)

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv(EnvDataRoot)); v != "" {
		c.Paths.DataRoot = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvImageRoot)); v != "" {
		c.Paths.ImageRoot = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvArrayRoot)); v != "" {
		c.Paths.ArrayRoot = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCheckpointDir)); v != "" {
		c.Paths.CheckpointDir = v
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cxr.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
// The image root is input-only and deliberately not created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ArrayRoot, c.Paths.CheckpointDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LabelFilePath resolves the label table location. A relative label_file is
// anchored at the data root.
func (c *Config) LabelFilePath() string {
	if filepath.IsAbs(c.Preprocess.LabelFile) {
		return c.Preprocess.LabelFile
	}
	return filepath.Join(c.Paths.DataRoot, c.Preprocess.LabelFile)
}

// TrainArrayDir returns the root of the training split array tree.
func (c *Config) TrainArrayDir() string {
	return filepath.Join(c.Paths.ArrayRoot, "train")
}

// ValArrayDir returns the root of the validation split array tree.
func (c *Config) ValArrayDir() string {
	return filepath.Join(c.Paths.ArrayRoot, "val")
}

// StatsFilePath returns the location of the persisted dataset statistics.
func (c *Config) StatsFilePath() string {
	return filepath.Join(c.Paths.ArrayRoot, "stats.toml")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
