package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePreprocess()
	c.normalizeTraining()
	c.normalizeEvaluate()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataRoot, err = expandPath(c.Paths.DataRoot); err != nil {
		return fmt.Errorf("paths.data_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.ImageRoot) == "" {
		// The original dataset layout keeps images beside the label table.
		c.Paths.ImageRoot = c.Paths.DataRoot + "/stage_2_train_images"
	}
	if c.Paths.ImageRoot, err = expandPath(c.Paths.ImageRoot); err != nil {
		return fmt.Errorf("paths.image_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.ArrayRoot) == "" {
		c.Paths.ArrayRoot = defaultArrayRoot
	}
	if c.Paths.ArrayRoot, err = expandPath(c.Paths.ArrayRoot); err != nil {
		return fmt.Errorf("paths.array_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.CheckpointDir) == "" {
		c.Paths.CheckpointDir = defaultCheckpointDir
	}
	if c.Paths.CheckpointDir, err = expandPath(c.Paths.CheckpointDir); err != nil {
		return fmt.Errorf("paths.checkpoint_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePreprocess() {
	if strings.TrimSpace(c.Preprocess.LabelFile) == "" {
		c.Preprocess.LabelFile = defaultLabelFile
	}
	if c.Preprocess.ImageSize <= 0 {
		c.Preprocess.ImageSize = defaultImageSize
	}
	if c.Preprocess.TrainCount <= 0 {
		c.Preprocess.TrainCount = defaultTrainCount
	}
	if c.Preprocess.MaxIntensity <= 0 {
		c.Preprocess.MaxIntensity = defaultMaxIntensity
	}
}

func (c *Config) normalizeTraining() {
	c.Training.Model = strings.ToLower(strings.TrimSpace(c.Training.Model))
	if c.Training.Model == "" {
		c.Training.Model = defaultModel
	}
	if c.Training.BatchSize <= 0 {
		c.Training.BatchSize = defaultBatchSize
	}
	if c.Training.LearningRate <= 0 {
		c.Training.LearningRate = defaultLearningRate
	}
	if c.Training.Epochs <= 0 {
		c.Training.Epochs = defaultEpochs
	}
	if c.Training.PosWeight <= 0 {
		c.Training.PosWeight = defaultPosWeight
	}
	if c.Training.KeepCheckpoints <= 0 {
		c.Training.KeepCheckpoints = defaultKeepCount
	}
	c.Training.Monitor = strings.ToLower(strings.TrimSpace(c.Training.Monitor))
	if c.Training.Monitor == "" {
		c.Training.Monitor = defaultMonitor
	}
	if c.Training.LoaderWorkers < 0 {
		c.Training.LoaderWorkers = 0
	}
	if c.Training.Seed == 0 {
		c.Training.Seed = defaultSeed
	}
}

func (c *Config) normalizeEvaluate() {
	if len(c.Evaluate.Thresholds) == 0 {
		c.Evaluate.Thresholds = []float64{0.5, 0.25}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
