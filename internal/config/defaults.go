package config

const (
	defaultDataRoot      = "~/.local/share/cxr/data"
	defaultArrayRoot     = "~/.local/share/cxr/arrays"
	defaultCheckpointDir = "~/.local/share/cxr/checkpoints"
	defaultLogDir        = "~/.local/share/cxr/logs"
	defaultLabelFile     = "stage_2_train_labels.csv"
	defaultImageSize     = 224
	defaultTrainCount    = 24000
	defaultMaxIntensity  = 255.0
	defaultModel         = "inception"
	defaultBatchSize     = 16
	defaultLearningRate  = 1e-4
	defaultEpochs        = 10
	defaultPosWeight     = 1.0
	defaultKeepCount     = 3
	defaultMonitor       = "accuracy"
	defaultLoaderWorkers = 4
	defaultSeed          = 42
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataRoot:      defaultDataRoot,
			ArrayRoot:     defaultArrayRoot,
			CheckpointDir: defaultCheckpointDir,
			LogDir:        defaultLogDir,
		},
		Preprocess: Preprocess{
			LabelFile:    defaultLabelFile,
			ImageSize:    defaultImageSize,
			TrainCount:   defaultTrainCount,
			MaxIntensity: defaultMaxIntensity,
		},
		Training: Training{
			Model:           defaultModel,
			BatchSize:       defaultBatchSize,
			LearningRate:    defaultLearningRate,
			Epochs:          defaultEpochs,
			PosWeight:       defaultPosWeight,
			KeepCheckpoints: defaultKeepCount,
			Monitor:         defaultMonitor,
			LoaderWorkers:   defaultLoaderWorkers,
			FreezeBackbone:  true,
			Seed:            defaultSeed,
		},
		Evaluate: Evaluate{
			Thresholds: []float64{0.5, 0.25},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
