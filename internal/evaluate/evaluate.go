package evaluate

import (
	stdcontext "context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/simplego"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/checkpoints"

	"cxr/internal/arrays"
	"cxr/internal/config"
	"cxr/internal/dataset"
	"cxr/internal/labels"
	"cxr/internal/logging"
	"cxr/internal/model"
	"cxr/internal/stats"
)

// Result carries the per-threshold scoreboards from one evaluation pass.
type Result struct {
	CheckpointDir string
	Samples       int
	Reports       []Report
}

// Stage restores the best checkpoint and scores the validation split.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Stage {
	return &Stage{cfg: cfg, logger: logging.NewComponentLogger(logger, "evaluate")}
}

// Run loads the latest retained checkpoint, computes one sigmoid
// probability per validation sample, and scores the set at every
// configured threshold.
func (s *Stage) Run(goCtx stdcontext.Context) (*Result, error) {
	cfg := s.cfg

	if err := ensureCheckpoints(cfg.Paths.CheckpointDir); err != nil {
		return nil, err
	}
	dataStats, err := stats.Load(cfg.StatsFilePath())
	if err != nil {
		return nil, fmt.Errorf("evaluate: load normalization stats: %w", err)
	}

	store := arrays.NewStore(cfg.Paths.ArrayRoot)
	valDS, err := dataset.New(store, labels.SplitVal, dataStats, cfg.Preprocess.ImageSize, dataset.Options{
		BatchSize: cfg.Training.BatchSize,
		Workers:   cfg.Training.LoaderWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	backend, err := backends.New()
	if err != nil {
		return nil, fmt.Errorf("evaluate: initialize backend: %w", err)
	}
	defer backend.Finalize()

	modelCfg := model.Config{
		Kind:           model.Kind(cfg.Training.Model),
		FreezeBackbone: cfg.Training.FreezeBackbone,
		WeightsDir:     filepath.Join(cfg.Paths.DataRoot, "weights"),
	}
	if err := model.PrepareWeights(modelCfg); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	var probs []float64
	var truth []int
	err = exceptions.TryCatch[error](func() {
		mlCtx := context.New()
		if _, err := checkpoints.Build(mlCtx).Dir(cfg.Paths.CheckpointDir).Done(); err != nil {
			exceptions.Panicf("load checkpoint: %v", err)
		}
		infer := context.NewExec(backend, mlCtx.Reuse(),
			func(ctx *context.Context, images *graph.Node) *graph.Node {
				return graph.Sigmoid(model.Logit(ctx, modelCfg, images))
			})
		probs, truth = predictSplit(infer, valDS)
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if err := goCtx.Err(); err != nil {
		return nil, err
	}
	if len(probs) == 0 {
		return nil, fmt.Errorf("evaluate: validation split produced no predictions")
	}

	result := &Result{CheckpointDir: cfg.Paths.CheckpointDir, Samples: len(probs)}
	for _, threshold := range cfg.Evaluate.Thresholds {
		report := Score(probs, truth, threshold)
		result.Reports = append(result.Reports, report)
		s.logger.Info("threshold scored",
			logging.Float64("threshold", report.Threshold),
			logging.Float64("accuracy", report.Accuracy),
			logging.Float64("precision", report.Precision),
			logging.Float64("recall", report.Recall))
	}
	return result, nil
}

// predictSplit streams one pass of the dataset through the inference
// executable and collects per-sample probabilities with their labels.
func predictSplit(infer *context.Exec, ds *dataset.Dataset) (probs []float64, truth []int) {
	ds.Reset()
	for {
		_, inputs, lbls, err := ds.Yield()
		if err != nil {
			break
		}
		out := infer.Call(inputs[0])[0]
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

// ensureCheckpoints rejects an empty or missing checkpoint directory up
// front, before any graph work starts.
func ensureCheckpoints(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("evaluate: read checkpoint directory: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("evaluate: no checkpoints in %s; run training first", dir)
	}
	return nil
}
