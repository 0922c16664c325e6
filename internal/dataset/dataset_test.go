package dataset_test

import (
	"errors"
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/gomlx/gomlx/types/tensors"

	"cxr/internal/arrays"
	"cxr/internal/dataset"
	"cxr/internal/dicomio"
	"cxr/internal/labels"
	"cxr/internal/stats"
)

const testImageSize = 8

func seedStore(t *testing.T, split labels.Split, n int) (*arrays.Store, stats.Stats) {
	t.Helper()
	store := arrays.NewStore(t.TempDir())
	rng := rand.New(rand.NewSource(11))

	var acc stats.Accumulator
	for i := 0; i < n; i++ {
		pixels := make([]float32, testImageSize*testImageSize)
		for j := range pixels {
			pixels[j] = rng.Float32()
		}
		img := &dicomio.Image{Pixels: pixels, Width: testImageSize, Height: testImageSize}
		if _, err := store.Write(split, i%2, subjectID(i), img); err != nil {
			t.Fatal(err)
		}
		if err := acc.Add(pixels); err != nil {
			t.Fatal(err)
		}
	}
	dataStats, err := acc.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	return store, dataStats
}

func subjectID(i int) string {
	return string(rune('a'+i/26)) + string(rune('a'+i%26))
}

func drainEpoch(t *testing.T, ds *dataset.Dataset) (images []float32, targets []float32, batches int) {
	t.Helper()
	for {
		_, inputs, lbls, err := ds.Yield()
		if errors.Is(err, io.EOF) {
			return images, targets, batches
		}
		if err != nil {
			t.Fatalf("Yield returned error: %v", err)
		}
		if len(inputs) != 1 || len(lbls) != 1 {
			t.Fatalf("unexpected tensor counts: %d/%d", len(inputs), len(lbls))
		}
		images = append(images, tensors.CopyFlatData[float32](inputs[0])...)
		targets = append(targets, tensors.CopyFlatData[float32](lbls[0])...)
		batches++
	}
}

func TestYieldShapesAndLabels(t *testing.T) {
	store, dataStats := seedStore(t, labels.SplitVal, 5)

	ds, err := dataset.New(store, labels.SplitVal, dataStats, testImageSize, dataset.Options{BatchSize: 2})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if ds.NumSamples() != 5 {
		t.Fatalf("unexpected sample count: %d", ds.NumSamples())
	}

	_, inputs, lbls, err := ds.Yield()
	if err != nil {
		t.Fatalf("Yield returned error: %v", err)
	}
	wantDims := []int{2, testImageSize, testImageSize, 1}
	gotDims := inputs[0].Shape().Dimensions
	if len(gotDims) != len(wantDims) {
		t.Fatalf("unexpected input rank: %v", gotDims)
	}
	for i := range wantDims {
		if gotDims[i] != wantDims[i] {
			t.Fatalf("unexpected input dims: %v", gotDims)
		}
	}
	labelDims := lbls[0].Shape().Dimensions
	if len(labelDims) != 2 || labelDims[0] != 2 || labelDims[1] != 1 {
		t.Fatalf("unexpected label dims: %v", labelDims)
	}
	for _, v := range tensors.CopyFlatData[float32](lbls[0]) {
		if v != 0 && v != 1 {
			t.Fatalf("unexpected label value: %v", v)
		}
	}
}

func TestEpochCoversEverySampleAndTerminates(t *testing.T) {
	store, dataStats := seedStore(t, labels.SplitVal, 7)

	ds, err := dataset.New(store, labels.SplitVal, dataStats, testImageSize, dataset.Options{BatchSize: 3})
	if err != nil {
		t.Fatal(err)
	}

	images, targets, batches := drainEpoch(t, ds)
	if batches != 3 {
		t.Fatalf("unexpected batch count: %d", batches)
	}
	if len(targets) != 7 {
		t.Fatalf("unexpected sample count: %d", len(targets))
	}
	if len(images) != 7*testImageSize*testImageSize {
		t.Fatalf("unexpected pixel count: %d", len(images))
	}

	// Second epoch after Reset.
	ds.Reset()
	_, targets2, _ := drainEpoch(t, ds)
	if len(targets2) != 7 {
		t.Fatalf("unexpected sample count after reset: %d", len(targets2))
	}
}

func TestDropLastDiscardsPartialBatch(t *testing.T) {
	store, dataStats := seedStore(t, labels.SplitTrain, 5)

	ds, err := dataset.New(store, labels.SplitTrain, dataStats, testImageSize, dataset.Options{
		BatchSize: 2,
		DropLast:  true,
		Seed:      1,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, targets, batches := drainEpoch(t, ds)
	if batches != 2 || len(targets) != 4 {
		t.Fatalf("expected 2 full batches, got %d batches / %d samples", batches, len(targets))
	}
}

func TestNormalizationCentersTrainingDistribution(t *testing.T) {
	store, dataStats := seedStore(t, labels.SplitVal, 40)

	ds, err := dataset.New(store, labels.SplitVal, dataStats, testImageSize, dataset.Options{BatchSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	images, _, _ := drainEpoch(t, ds)

	var sum float64
	for _, v := range images {
		sum += float64(v)
	}
	mean := sum / float64(len(images))
	if math.Abs(mean) > 0.05 {
		t.Fatalf("expected normalized mean near zero, got %v", mean)
	}
}

func TestAugmentationOnlyPerturbsTrainingData(t *testing.T) {
	store, dataStats := seedStore(t, labels.SplitVal, 16)

	plain, err := dataset.New(store, labels.SplitVal, dataStats, testImageSize, dataset.Options{BatchSize: 4, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	augmented, err := dataset.New(store, labels.SplitVal, dataStats, testImageSize, dataset.Options{
		BatchSize: 4,
		Augment:   true,
		Seed:      3,
	})
	if err != nil {
		t.Fatal(err)
	}

	a, _, _ := drainEpoch(t, plain)
	b, _, _ := drainEpoch(t, augmented)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected augmentation to perturb at least one pixel")
	}

	// Two augmented datasets with the same seed are reproducible.
	augmented2, err := dataset.New(store, labels.SplitVal, dataStats, testImageSize, dataset.Options{
		BatchSize: 4,
		Augment:   true,
		Seed:      3,
	})
	if err != nil {
		t.Fatal(err)
	}
	c, _, _ := drainEpoch(t, augmented2)
	for i := range b {
		if b[i] != c[i] {
			t.Fatal("expected seeded augmentation to be reproducible")
		}
	}
}

func TestParallelLoadingMatchesSynchronous(t *testing.T) {
	store, dataStats := seedStore(t, labels.SplitVal, 10)

	sync, err := dataset.New(store, labels.SplitVal, dataStats, testImageSize, dataset.Options{BatchSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := dataset.New(store, labels.SplitVal, dataStats, testImageSize, dataset.Options{BatchSize: 4, Workers: 4})
	if err != nil {
		t.Fatal(err)
	}

	a, at, _ := drainEpoch(t, sync)
	b, bt, _ := drainEpoch(t, parallel)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pixel %d differs between sync and parallel loading", i)
		}
	}
	for i := range at {
		if at[i] != bt[i] {
			t.Fatalf("label %d differs between sync and parallel loading", i)
		}
	}
}

func TestEmptySplitFails(t *testing.T) {
	store := arrays.NewStore(t.TempDir())
	if _, err := dataset.New(store, labels.SplitTrain, stats.Stats{Std: 1, Count: 1}, testImageSize, dataset.Options{}); err == nil {
		t.Fatal("expected error for empty split")
	}
}
