package preprocess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"cxr/internal/arrays"
	"cxr/internal/config"
	"cxr/internal/dicomio"
	"cxr/internal/labels"
	"cxr/internal/logging"
	"cxr/internal/manifest"
	"cxr/internal/stats"
)

// ErrLocked indicates another preprocessing run holds the array-root lock.
var ErrLocked = errors.New("preprocess: array root is locked by another run")

// imageExtensions are tried in order when resolving a subject's source file.
var imageExtensions = []string{".dcm", ".dicom", ".png", ".jpg", ".jpeg"}

// Stage converts the raw dataset into the split/label array tree and
// computes training-split statistics. It runs single-pass in label-table
// order; subjects the manifest already records as written are not decoded
// again, but their stored arrays still feed the statistics so the divisor
// stays the full training-split size.
type Stage struct {
	cfg     *config.Config
	store   *arrays.Store
	journal *manifest.Store
	logger  *slog.Logger
}

// New constructs the preprocessing stage.
func New(cfg *config.Config, journal *manifest.Store, logger *slog.Logger) (*Stage, error) {
	if cfg == nil || journal == nil {
		return nil, errors.New("preprocess requires config and manifest store")
	}
	return &Stage{
		cfg:     cfg,
		store:   arrays.NewStore(cfg.Paths.ArrayRoot),
		journal: journal,
		logger:  logging.NewComponentLogger(logger, "preprocess"),
	}, nil
}

// Result summarizes one preprocessing run.
type Result struct {
	TrainCount int
	ValCount   int
	Written    int
	Skipped    int
	Stats      stats.Stats
}

// Run executes the stage. The first decode or write failure is terminal;
// the offending subject is journaled as failed before the error surfaces.
func (s *Stage) Run(ctx context.Context) (*Result, error) {
	lock := flock.New(filepath.Join(s.cfg.Paths.ArrayRoot, "preprocess.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire preprocess lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	defer func() { _ = lock.Unlock() }()

	records, err := labels.Load(s.cfg.LabelFilePath())
	if err != nil {
		return nil, err
	}
	train, val := labels.Assign(records, s.cfg.Preprocess.TrainCount)
	s.logger.Info("label table loaded",
		logging.Int("subjects", len(records)),
		logging.Int("train", len(train)),
		logging.Int("val", len(val)))

	for i, rec := range records {
		if err := s.journal.Enqueue(ctx, rec, labels.SplitFor(i, s.cfg.Preprocess.TrainCount)); err != nil {
			return nil, err
		}
	}

	result := &Result{TrainCount: len(train), ValCount: len(val)}
	var acc stats.Accumulator

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		split := labels.SplitFor(i, s.cfg.Preprocess.TrainCount)
		if err := s.processSubject(ctx, rec, split, &acc, result); err != nil {
			return nil, err
		}
	}

	dataStats, err := acc.Finalize()
	if err != nil {
		return nil, fmt.Errorf("training-split statistics: %w", err)
	}
	if err := dataStats.Save(s.cfg.StatsFilePath()); err != nil {
		return nil, err
	}
	result.Stats = dataStats

	s.logger.Info("preprocessing complete",
		logging.Int("written", result.Written),
		logging.Int("skipped", result.Skipped),
		logging.Float64("mean", dataStats.Mean),
		logging.Float64("std", dataStats.Std))
	return result, nil
}

func (s *Stage) processSubject(ctx context.Context, rec labels.Record, split labels.Split, acc *stats.Accumulator, result *Result) error {
	subjectCtx := logging.WithSubject(ctx, rec.SubjectID)
	logger := logging.WithContext(subjectCtx, s.logger)

	if s.store.Exists(split, rec.Target, rec.SubjectID) {
		result.Skipped++
		if split == labels.SplitTrain {
			img, err := arrays.Read(s.store.Path(split, rec.Target, rec.SubjectID))
			if err != nil {
				return fmt.Errorf("reread stored array for statistics: %w", err)
			}
			if err := acc.Add(img.Pixels); err != nil {
				return err
			}
		}
		logger.Debug("subject already written, skipping decode", logging.String(logging.FieldSplit, string(split)))
		return nil
	}

	if err := s.journal.SetStatus(ctx, rec.SubjectID, manifest.StatusDecoding, "", ""); err != nil {
		return err
	}

	sourcePath, err := s.resolveSource(rec.SubjectID)
	if err != nil {
		s.journalFailure(ctx, rec.SubjectID, err)
		return err
	}

	img, err := dicomio.DecodeFile(sourcePath, s.cfg.Preprocess.MaxIntensity)
	if err != nil {
		s.journalFailure(ctx, rec.SubjectID, err)
		return err
	}
	img = dicomio.ResizeSquare(img, s.cfg.Preprocess.ImageSize)

	arrayPath, err := s.store.Write(split, rec.Target, rec.SubjectID, img)
	if err != nil {
		s.journalFailure(ctx, rec.SubjectID, err)
		return err
	}

	if split == labels.SplitTrain {
		if err := acc.Add(img.Pixels); err != nil {
			return err
		}
	}

	if err := s.journal.SetStatus(ctx, rec.SubjectID, manifest.StatusWritten, arrayPath, ""); err != nil {
		return err
	}
	result.Written++
	logger.Debug("subject written",
		logging.String(logging.FieldSplit, string(split)),
		logging.Int("label", rec.Target))
	return nil
}

func (s *Stage) resolveSource(subjectID string) (string, error) {
	for _, ext := range imageExtensions {
		candidate := filepath.Join(s.cfg.Paths.ImageRoot, subjectID+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no source image for subject %s under %s", subjectID, s.cfg.Paths.ImageRoot)
}

func (s *Stage) journalFailure(ctx context.Context, subjectID string, cause error) {
	if err := s.journal.SetStatus(ctx, subjectID, manifest.StatusFailed, "", cause.Error()); err != nil {
		s.logger.Error("failed to journal subject failure",
			logging.String(logging.FieldSubject, subjectID),
			logging.Error(err))
	}
}
