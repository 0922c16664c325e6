package training

import (
	stdcontext "context"
	"encoding/json"
	"math"
	"os"
	"strings"
	"testing"

	"cxr/internal/arrays"
	"cxr/internal/config"
	"cxr/internal/dicomio"
	"cxr/internal/labels"
	"cxr/internal/logging"
	"cxr/internal/stats"
	"cxr/internal/testsupport"
)

// seedArrays writes a small balanced split tree directly into the array
// store so training tests do not depend on the preprocessing stage.
func seedArrays(t *testing.T, cfg *config.Config) {
	t.Helper()

	store := arrays.NewStore(cfg.Paths.ArrayRoot)
	size := cfg.Preprocess.ImageSize
	write := func(split labels.Split, label int, subject string, level float32) {
		pixels := make([]float32, size*size)
		for i := range pixels {
			pixels[i] = level
		}
		img := &dicomio.Image{Pixels: pixels, Width: size, Height: size}
		if _, err := store.Write(split, label, subject, img); err != nil {
			t.Fatalf("Write(%s/%d/%s) error: %v", split, label, subject, err)
		}
	}

	write(labels.SplitTrain, 0, "t0", 0.2)
	write(labels.SplitTrain, 0, "t1", 0.25)
	write(labels.SplitTrain, 1, "t2", 0.8)
	write(labels.SplitTrain, 1, "t3", 0.75)
	write(labels.SplitVal, 0, "v0", 0.22)
	write(labels.SplitVal, 1, "v1", 0.78)

	st := stats.Stats{Mean: 0.5, Std: 0.3, Count: 4}
	if err := st.Save(cfg.StatsFilePath()); err != nil {
		t.Fatalf("Save stats error: %v", err)
	}
}

func TestRunTrainsAndCheckpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Training.Epochs = 2
	cfg.Training.PosWeight = 2
	seedArrays(t, cfg)

	stage := New(cfg, logging.NewNop())
	summary, err := stage.Run(stdcontext.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if summary.RunID == "" {
		t.Fatal("expected a run ID")
	}
	if len(summary.Epochs) != 2 {
		t.Fatalf("expected 2 epoch entries, got %d", len(summary.Epochs))
	}
	for _, epoch := range summary.Epochs {
		if math.IsNaN(epoch.ValLoss) || epoch.ValLoss < 0 {
			t.Fatalf("epoch %d: bad validation loss %v", epoch.Epoch, epoch.ValLoss)
		}
		if epoch.ValAccuracy < 0 || epoch.ValAccuracy > 1 {
			t.Fatalf("epoch %d: accuracy %v out of range", epoch.Epoch, epoch.ValAccuracy)
		}
	}
	if !summary.Epochs[0].Saved {
		t.Fatal("first epoch always improves on the initial best and must checkpoint")
	}
	if summary.BestEpoch < 1 {
		t.Fatalf("expected a best epoch, got %d", summary.BestEpoch)
	}

	entries, err := os.ReadDir(cfg.Paths.CheckpointDir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error: %v", cfg.Paths.CheckpointDir, err)
	}
	if len(entries) == 0 {
		t.Fatal("expected checkpoint files after training")
	}
}

func TestRunWritesRunLog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedArrays(t, cfg)

	stage := New(cfg, logging.NewNop())
	summary, err := stage.Run(stdcontext.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	body, err := os.ReadFile(summary.RunLogPath)
	if err != nil {
		t.Fatalf("ReadFile(%s) error: %v", summary.RunLogPath, err)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != len(summary.Epochs) {
		t.Fatalf("expected %d run log lines, got %d", len(summary.Epochs), len(lines))
	}
	var entry EpochMetrics
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Unmarshal run log line error: %v", err)
	}
	if entry.Epoch != 1 {
		t.Fatalf("expected first line to be epoch 1, got %d", entry.Epoch)
	}
}

func TestRunFailsWithoutStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	stage := New(cfg, logging.NewNop())
	if _, err := stage.Run(stdcontext.Background()); err == nil {
		t.Fatal("expected error when normalization stats are missing")
	}
}
