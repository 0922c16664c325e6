package testsupport

import (
	"path/filepath"
	"testing"

	"cxr/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It shrinks the image size and split cutoff to values suited to synthetic
// fixtures and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataRoot = filepath.Join(base, "data")
	cfg.Paths.ImageRoot = filepath.Join(base, "data", "images")
	cfg.Paths.ArrayRoot = filepath.Join(base, "arrays")
	cfg.Paths.CheckpointDir = filepath.Join(base, "checkpoints")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Preprocess.ImageSize = 32
	cfg.Preprocess.TrainCount = 2
	cfg.Training.Model = "smallcnn"
	cfg.Training.BatchSize = 2
	cfg.Training.Epochs = 1
	cfg.Training.LoaderWorkers = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithTrainCount overrides the split cutoff on the test config.
func WithTrainCount(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Preprocess.TrainCount = n
	}
}

// WithImageSize overrides the target resolution on the test config.
func WithImageSize(size int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Preprocess.ImageSize = size
	}
}
