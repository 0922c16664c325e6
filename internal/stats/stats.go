// Package stats computes dataset-wide normalization statistics with
// streaming accumulation, so the full training set never has to be held in
// memory at once.
package stats

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Accumulator collects per-image moments one image at a time. Each Add
// contributes the image's mean pixel value and mean squared pixel value;
// Finalize folds them into dataset mean and standard deviation. The divisor
// is the number of images actually added, which for a correctly wired
// pipeline equals the deduplicated training-split size. Feeding validation
// images in would silently skew normalization, so callers gate on split.
type Accumulator struct {
	sumMean   float64
	sumSquare float64
	count     int
}

// Add folds one image into the running sums.
func (a *Accumulator) Add(pixels []float32) error {
	if len(pixels) == 0 {
		return fmt.Errorf("stats: empty image")
	}
	var sum, sumSq float64
	for _, p := range pixels {
		v := float64(p)
		sum += v
		sumSq += v * v
	}
	n := float64(len(pixels))
	a.sumMean += sum / n
	a.sumSquare += sumSq / n
	a.count++
	return nil
}

// Count reports how many images have been accumulated.
func (a *Accumulator) Count() int { return a.count }

// Finalize returns the dataset statistics over the accumulated images.
func (a *Accumulator) Finalize() (Stats, error) {
	if a.count == 0 {
		return Stats{}, fmt.Errorf("stats: no images accumulated")
	}
	n := float64(a.count)
	mean := a.sumMean / n
	variance := a.sumSquare/n - mean*mean
	if variance < 0 {
		// Floating-point cancellation on near-constant data.
		variance = 0
	}
	return Stats{Mean: mean, Std: math.Sqrt(variance), Count: a.count}, nil
}

// Stats is the persisted normalization pair consumed by train and evaluate.
type Stats struct {
	Mean  float64 `toml:"mean"`
	Std   float64 `toml:"std"`
	Count int     `toml:"count"`
}

// Normalize maps a raw intensity into normalized space.
func (s Stats) Normalize(v float32) float32 {
	std := s.Std
	if std == 0 {
		std = 1
	}
	return float32((float64(v) - s.Mean) / std)
}

// Save writes the statistics file, creating parent directories on demand.
func (s Stats) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create stats directory: %w", err)
		}
	}
	body, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}

// Load reads a statistics file written by Save.
func Load(path string) (Stats, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, fmt.Errorf("read stats: %w", err)
	}
	var s Stats
	if err := toml.Unmarshal(body, &s); err != nil {
		return Stats{}, fmt.Errorf("parse stats: %w", err)
	}
	if s.Count <= 0 {
		return Stats{}, fmt.Errorf("stats: invalid image count %d in %s", s.Count, path)
	}
	return s, nil
}
