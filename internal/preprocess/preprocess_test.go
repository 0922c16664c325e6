package preprocess_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"cxr/internal/arrays"
	"cxr/internal/config"
	"cxr/internal/labels"
	"cxr/internal/logging"
	"cxr/internal/manifest"
	"cxr/internal/preprocess"
	"cxr/internal/stats"
	"cxr/internal/testsupport"
)

func seedDataset(t *testing.T, cfg *config.Config) {
	t.Helper()
	testsupport.WriteLabelTable(t, cfg.LabelFilePath(), [][2]string{
		{"p1", "0"},
		{"p1", "0"}, // duplicate row, extra bounding box
		{"p2", "1"},
		{"p3", "0"},
	})
	testsupport.WriteGrayPNG(t, cfg.Paths.ImageRoot, "p1", 40, 40, 51)  // 0.2
	testsupport.WriteGrayPNG(t, cfg.Paths.ImageRoot, "p2", 64, 48, 102) // 0.4
	testsupport.WriteGrayPNG(t, cfg.Paths.ImageRoot, "p3", 32, 32, 153) // 0.6
}

func runStage(t *testing.T, cfg *config.Config) *preprocess.Result {
	t.Helper()
	journal, err := manifest.Open(cfg.Paths.ArrayRoot)
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	defer journal.Close()

	stage, err := preprocess.New(cfg, journal, logging.NewNop())
	if err != nil {
		t.Fatalf("new stage: %v", err)
	}
	result, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return result
}

func TestRunWritesSplitTreeAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedDataset(t, cfg)

	result := runStage(t, cfg)

	if result.TrainCount != 2 || result.ValCount != 1 {
		t.Fatalf("unexpected split sizes: %d/%d", result.TrainCount, result.ValCount)
	}
	if result.Written != 3 || result.Skipped != 0 {
		t.Fatalf("unexpected write counts: %+v", result)
	}

	store := arrays.NewStore(cfg.Paths.ArrayRoot)
	if !store.Exists(labels.SplitTrain, 0, "p1") {
		t.Fatal("expected train/0/p1 array")
	}
	if !store.Exists(labels.SplitTrain, 1, "p2") {
		t.Fatal("expected train/1/p2 array")
	}
	if !store.Exists(labels.SplitVal, 0, "p3") {
		t.Fatal("expected val/0/p3 array")
	}

	// Stats cover the two training subjects only: (0.2 + 0.4) / 2.
	saved, err := stats.Load(cfg.StatsFilePath())
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if saved.Count != 2 {
		t.Fatalf("expected train-split divisor 2, got %d", saved.Count)
	}
	if math.Abs(saved.Mean-0.3) > 0.01 {
		t.Fatalf("unexpected mean: %v", saved.Mean)
	}

	img, err := arrays.Read(store.Path(labels.SplitTrain, 0, "p1"))
	if err != nil {
		t.Fatalf("read array: %v", err)
	}
	if img.Width != cfg.Preprocess.ImageSize || img.Height != cfg.Preprocess.ImageSize {
		t.Fatalf("expected resized array, got %dx%d", img.Width, img.Height)
	}
}

func TestRunIsIdempotentAndKeepsStatsDivisor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedDataset(t, cfg)

	first := runStage(t, cfg)
	second := runStage(t, cfg)

	if second.Written != 0 || second.Skipped != 3 {
		t.Fatalf("expected rerun to skip all subjects, got %+v", second)
	}
	if second.Stats.Count != first.Stats.Count {
		t.Fatalf("stats divisor changed across reruns: %d vs %d", first.Stats.Count, second.Stats.Count)
	}
	if math.Abs(second.Stats.Mean-first.Stats.Mean) > 1e-9 {
		t.Fatalf("stats drifted across reruns: %v vs %v", first.Stats.Mean, second.Stats.Mean)
	}
}

func TestRunFailsOnMissingImageAndJournalsIt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteLabelTable(t, cfg.LabelFilePath(), [][2]string{
		{"p1", "0"},
		{"ghost", "1"},
	})
	testsupport.WriteGrayPNG(t, cfg.Paths.ImageRoot, "p1", 32, 32, 100)

	journal, err := manifest.Open(cfg.Paths.ArrayRoot)
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()

	stage, err := preprocess.New(cfg, journal, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stage.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing source image")
	}

	item, err := journal.Get(context.Background(), "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != manifest.StatusFailed || item.ErrorMessage == "" {
		t.Fatalf("expected journaled failure, got %+v", item)
	}
}

func TestRunRefusesConcurrentLockHolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedDataset(t, cfg)

	// Simulate a competing run by pre-creating the lock through a first
	// stage whose lock we hold open via its own Run; simpler: take the
	// flock directly.
	journal, err := manifest.Open(cfg.Paths.ArrayRoot)
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()

	lockPath := filepath.Join(cfg.Paths.ArrayRoot, "preprocess.lock")
	held := newHeldLock(t, lockPath)
	defer held.release()

	stage, err := preprocess.New(cfg, journal, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stage.Run(context.Background()); err == nil {
		t.Fatal("expected lock contention error")
	}
}

type heldLock struct {
	lock *flock.Flock
}

func newHeldLock(t *testing.T, path string) *heldLock {
	t.Helper()
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		t.Fatalf("take test lock: %v", err)
	}
	if !locked {
		t.Fatal("test lock already held")
	}
	return &heldLock{lock: lock}
}

func (h *heldLock) release() {
	_ = h.lock.Unlock()
}
