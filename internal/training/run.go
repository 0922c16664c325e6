package training

import (
	stdcontext "context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/simplego"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/checkpoints"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/ml/train/metrics"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/google/uuid"

	"cxr/internal/arrays"
	"cxr/internal/config"
	"cxr/internal/dataset"
	"cxr/internal/labels"
	"cxr/internal/logging"
	"cxr/internal/model"
	"cxr/internal/stats"
)

// EpochMetrics is one epoch's scoreboard. Saved reports whether the epoch
// produced a new best monitored value and therefore a checkpoint.
type EpochMetrics struct {
	Epoch         int     `json:"epoch"`
	TrainLoss     float64 `json:"train_loss"`
	TrainAccuracy float64 `json:"train_accuracy"`
	ValLoss       float64 `json:"val_loss"`
	ValAccuracy   float64 `json:"val_accuracy"`
	Saved         bool    `json:"saved"`
}

// Summary describes a finished training run.
type Summary struct {
	RunID         string
	Epochs        []EpochMetrics
	BestEpoch     int
	BestValue     float64
	CheckpointDir string
	RunLogPath    string
}

// Stage owns one training run over preprocessed arrays.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Stage {
	return &Stage{cfg: cfg, logger: logging.NewComponentLogger(logger, "training")}
}

// Run trains the configured classifier. Each epoch streams the shuffled,
// augmented training split through the trainer, then measures loss and
// accuracy on the validation split without updating parameters. A
// checkpoint is written only when the monitored metric improves, so the
// retained snapshots are exactly the top-ranked ones.
func (s *Stage) Run(goCtx stdcontext.Context) (*Summary, error) {
	cfg := s.cfg
	runID := uuid.NewString()
	logger := s.logger.With(logging.String(logging.FieldRunID, runID))

	dataStats, err := stats.Load(cfg.StatsFilePath())
	if err != nil {
		return nil, fmt.Errorf("training: load normalization stats: %w", err)
	}

	modelCfg := model.Config{
		Kind:           model.Kind(cfg.Training.Model),
		FreezeBackbone: cfg.Training.FreezeBackbone,
		WeightsDir:     filepath.Join(cfg.Paths.DataRoot, "weights"),
	}
	if err := model.PrepareWeights(modelCfg); err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	store := arrays.NewStore(cfg.Paths.ArrayRoot)
	trainDS, err := dataset.New(store, labels.SplitTrain, dataStats, cfg.Preprocess.ImageSize, dataset.Options{
		BatchSize: cfg.Training.BatchSize,
		Augment:   true,
		Shuffle:   true,
		DropLast:  true,
		Workers:   cfg.Training.LoaderWorkers,
		Seed:      cfg.Training.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}
	valDS, err := dataset.New(store, labels.SplitVal, dataStats, cfg.Preprocess.ImageSize, dataset.Options{
		BatchSize: cfg.Training.BatchSize,
		Workers:   cfg.Training.LoaderWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	backend, err := backends.New()
	if err != nil {
		return nil, fmt.Errorf("training: initialize backend: %w", err)
	}
	defer backend.Finalize()

	runLog, err := newRunLog(cfg.Paths.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}
	defer runLog.Close()

	summary := &Summary{
		RunID:         runID,
		BestEpoch:     -1,
		CheckpointDir: cfg.Paths.CheckpointDir,
		RunLogPath:    runLog.Path(),
	}

	err = exceptions.TryCatch[error](func() {
		summary.Epochs, summary.BestEpoch, summary.BestValue =
			s.trainLoop(goCtx, backend, modelCfg, trainDS, valDS, runLog, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}
	if err := goCtx.Err(); err != nil {
		return nil, err
	}

	logger.Info("training run finished",
		logging.Int("epochs", len(summary.Epochs)),
		logging.Int("best_epoch", summary.BestEpoch),
		logging.Float64("best_value", summary.BestValue))
	return summary, nil
}

// trainLoop runs inside an exception trap: the framework reports graph and
// execution failures by panicking.
func (s *Stage) trainLoop(
	goCtx stdcontext.Context,
	backend backends.Backend,
	modelCfg model.Config,
	trainDS, valDS *dataset.Dataset,
	epochLog *runLog,
	logger *slog.Logger,
) (epochs []EpochMetrics, bestEpoch int, bestValue float64) {
	cfg := s.cfg
	mlCtx := context.New()
	mlCtx.RngStateFromSeed(cfg.Training.Seed)

	checkpoint := must(checkpoints.Build(mlCtx).
		Dir(cfg.Paths.CheckpointDir).
		Keep(cfg.Training.KeepCheckpoints).
		Done())

	lossFn := binaryCrossentropyLoss(cfg.Training.PosWeight)
	trainer := train.NewTrainer(backend, mlCtx,
		model.Graph(modelCfg),
		lossFn,
		optimizers.Adam().LearningRate(cfg.Training.LearningRate).Done(),
		[]metrics.Interface{metrics.NewMovingAverageBinaryLogitsAccuracy("Moving Average Accuracy", "~acc", 0.01)},
		[]metrics.Interface{metrics.NewMeanBinaryLogitsAccuracy("Mean Accuracy", "acc")})
	loop := train.NewLoop(trainer)

	evalExec := context.NewExec(backend, mlCtx.Reuse(),
		func(ctx *context.Context, images *graph.Node) *graph.Node {
			return graph.Sigmoid(model.Logit(ctx, modelCfg, images))
		})

	maximize := cfg.Training.Monitor != "loss"
	bestEpoch = -1
	if maximize {
		bestValue = math.Inf(-1)
	} else {
		bestValue = math.Inf(1)
	}

	for epoch := 1; epoch <= cfg.Training.Epochs; epoch++ {
		if goCtx.Err() != nil {
			return epochs, bestEpoch, bestValue
		}
		start := time.Now()

		epochMetrics := must(loop.RunEpochs(trainDS, 1))
		trainLoss := metricValue(epochMetrics, 0)
		trainAcc := metricValue(epochMetrics, 1)

		valLoss, valAcc := s.validate(evalExec, valDS)

		monitored := valAcc
		if !maximize {
			monitored = valLoss
		}
		improved := (maximize && monitored > bestValue) || (!maximize && monitored < bestValue)
		if improved {
			bestValue = monitored
			bestEpoch = epoch
			if err := checkpoint.Save(); err != nil {
				exceptions.Panicf("save checkpoint: %v", err)
			}
		}

		entry := EpochMetrics{
			Epoch:         epoch,
			TrainLoss:     trainLoss,
			TrainAccuracy: trainAcc,
			ValLoss:       valLoss,
			ValAccuracy:   valAcc,
			Saved:         improved,
		}
		epochs = append(epochs, entry)
		if err := epochLog.Append(entry); err != nil {
			exceptions.Panicf("append run log: %v", err)
		}

		logger.Info("epoch finished",
			logging.Int(logging.FieldEpoch, epoch),
			logging.Float64("train_loss", trainLoss),
			logging.Float64("train_accuracy", trainAcc),
			logging.Float64("val_loss", valLoss),
			logging.Float64("val_accuracy", valAcc),
			logging.Bool("checkpoint", improved),
			logging.String("elapsed", time.Since(start).Round(time.Millisecond).String()))
	}
	return epochs, bestEpoch, bestValue
}

// validate measures sigmoid cross-entropy and accuracy on the validation
// split at the fixed 0.5 decision threshold. No parameters are updated.
func (s *Stage) validate(evalExec *context.Exec, valDS *dataset.Dataset) (loss, accuracy float64) {
	probs, truth := collectPredictions(evalExec, valDS)
	if len(probs) == 0 {
		return 0, 0
	}

	var lossSum float64
	correct := 0
	for i, p := range probs {
		p = math.Min(math.Max(p, 1e-7), 1-1e-7)
		z := float64(truth[i])
		lossSum += -(z*math.Log(p) + (1-z)*math.Log(1-p))
		if (p >= 0.5) == (truth[i] == 1) {
			correct++
		}
	}
	return lossSum / float64(len(probs)), float64(correct) / float64(len(probs))
}

// collectPredictions streams one pass of the dataset through the inference
// executable and returns per-sample sigmoid probabilities with their labels.
func collectPredictions(evalExec *context.Exec, ds *dataset.Dataset) (probs []float64, truth []int) {
	ds.Reset()
	for {
		_, inputs, lbls, err := ds.Yield()
		if err != nil {
			break
		}
		out := evalExec.Call(inputs[0])[0]
		batchProbs := tensors.CopyFlatData[float32](out)
		batchLabels := tensors.CopyFlatData[float32](lbls[0])
		for i, p := range batchProbs {
			probs = append(probs, float64(p))
			truth = append(truth, int(batchLabels[i]+0.5))
		}
		out.FinalizeAll()
		for _, t := range inputs {
			t.FinalizeAll()
		}
		for _, t := range lbls {
			t.FinalizeAll()
		}
	}
	return probs, truth
}

func metricValue(values []*tensors.Tensor, idx int) float64 {
	if idx >= len(values) || values[idx] == nil {
		return math.NaN()
	}
	switch v := values[idx].Value().(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	default:
		return math.NaN()
	}
}

func must[T any](value T, err error) T {
	if err != nil {
		exceptions.Panicf("%+v", err)
	}
	return value
}
