package dataset

import (
	"fmt"
	"io"
	"math/rand"
	"sync"

	"github.com/gomlx/gomlx/types/tensors"

	"cxr/internal/arrays"
	"cxr/internal/labels"
	"cxr/internal/stats"
)

// Dataset feeds batches of normalized image tensors to the GoMLX training
// loop. It satisfies GoMLX's train.Dataset contract: Yield returns one batch
// per call and io.EOF at the end of an epoch.
//
// The label of each sample is inferred from its containing directory, the
// way generic folder-structured image datasets work. Training datasets
// shuffle per epoch and augment; validation datasets do neither.
type Dataset struct {
	name      string
	entries   []arrays.Entry
	order     []int
	stats     stats.Stats
	imageSize int

	batchSize int
	dropLast  bool
	shuffle   bool
	augmented bool
	workers   int

	rng *rand.Rand
	pos int
}

// Options customizes dataset construction.
type Options struct {
	BatchSize int
	// Augment enables the randomized geometric transforms. Only the
	// training split should set this.
	Augment bool
	// Shuffle reorders samples each epoch. Only the training split should set this.
	Shuffle bool
	// DropLast discards a trailing partial batch.
	DropLast bool
	// Workers bounds the parallel array-loading goroutines per batch.
	// Zero loads synchronously.
	Workers int
	Seed    int64
}

// New builds a dataset over one split of the array store.
func New(store *arrays.Store, split labels.Split, dataStats stats.Stats, imageSize int, opts Options) (*Dataset, error) {
	entries, err := store.List(split)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("dataset: split %s is empty", split)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}

	ds := &Dataset{
		name:      string(split),
		entries:   entries,
		order:     order,
		stats:     dataStats,
		imageSize: imageSize,
		batchSize: opts.BatchSize,
		dropLast:  opts.DropLast,
		shuffle:   opts.Shuffle,
		augmented: opts.Augment,
		workers:   opts.Workers,
		rng:       rand.New(rand.NewSource(opts.Seed)),
	}
	ds.Reset()
	return ds, nil
}

// Name identifies the dataset in training-loop output.
func (ds *Dataset) Name() string { return ds.name }

// NumSamples reports the number of stored samples in the split.
func (ds *Dataset) NumSamples() int { return len(ds.entries) }

// Reset rewinds to the start of an epoch, reshuffling when configured.
func (ds *Dataset) Reset() {
	ds.pos = 0
	if ds.shuffle {
		ds.rng.Shuffle(len(ds.order), func(i, j int) {
			ds.order[i], ds.order[j] = ds.order[j], ds.order[i]
		})
	}
}

// Yield assembles the next batch. Inputs hold one tensor shaped
// (batch, size, size, 1); labels hold one tensor shaped (batch, 1) with
// float32 targets for the sigmoid cross-entropy loss.
func (ds *Dataset) Yield() (spec any, inputs []*tensors.Tensor, labelsOut []*tensors.Tensor, err error) {
	remaining := len(ds.order) - ds.pos
	if remaining <= 0 {
		return nil, nil, nil, io.EOF
	}
	batch := ds.batchSize
	if remaining < batch {
		if ds.dropLast {
			return nil, nil, nil, io.EOF
		}
		batch = remaining
	}

	indices := ds.order[ds.pos : ds.pos+batch]
	ds.pos += batch

	pixelCount := ds.imageSize * ds.imageSize
	images := make([]float32, batch*pixelCount)
	targets := make([]float32, batch)

	if err := ds.loadBatch(indices, images, targets); err != nil {
		return nil, nil, nil, err
	}

	imageTensor := tensors.FromFlatDataAndDimensions(images, batch, ds.imageSize, ds.imageSize, 1)
	labelTensor := tensors.FromFlatDataAndDimensions(targets, batch, 1)
	return nil, []*tensors.Tensor{imageTensor}, []*tensors.Tensor{labelTensor}, nil
}

func (ds *Dataset) loadBatch(indices []int, images []float32, targets []float32) error {
	pixelCount := ds.imageSize * ds.imageSize

	// Augmentation draws are taken up front on the dataset's own RNG so the
	// sample stream stays reproducible even when loading is parallel.
	seeds := make([]int64, len(indices))
	for i := range seeds {
		seeds[i] = ds.rng.Int63()
	}

	load := func(slot, index int) error {
		entry := ds.entries[index]
		img, err := arrays.Read(entry.Path)
		if err != nil {
			return err
		}
		if img.Width != ds.imageSize || img.Height != ds.imageSize {
			return fmt.Errorf("dataset: %s has geometry %dx%d, expected %d",
				entry.Path, img.Width, img.Height, ds.imageSize)
		}
		pixels := img.Pixels
		if ds.augmented {
			pixels = augment(rand.New(rand.NewSource(seeds[slot])), pixels, img.Width, img.Height)
		}
		dst := images[slot*pixelCount : (slot+1)*pixelCount]
		for i, p := range pixels {
			dst[i] = ds.stats.Normalize(p)
		}
		targets[slot] = float32(entry.Label)
		return nil
	}

	if ds.workers <= 1 {
		for slot, index := range indices {
			if err := load(slot, index); err != nil {
				return err
			}
		}
		return nil
	}

	sem := make(chan struct{}, ds.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for slot, index := range indices {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot, index int) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := load(slot, index); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(slot, index)
	}
	wg.Wait()
	return firstErr
}
