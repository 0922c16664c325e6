package dataset

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestFlipHorizontalMirrorsRows(t *testing.T) {
	pixels := []float32{
		1, 2, 3,
		4, 5, 6,
	}
	flipHorizontal(pixels, 3, 2)
	want := []float32{
		3, 2, 1,
		6, 5, 4,
	}
	if !reflect.DeepEqual(pixels, want) {
		t.Fatalf("unexpected flip result: %v", pixels)
	}
}

func TestFlipHorizontalIsInvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	pixels := make([]float32, 4*4)
	for i := range pixels {
		pixels[i] = rng.Float32()
	}
	orig := append([]float32(nil), pixels...)

	flipHorizontal(pixels, 4, 4)
	flipHorizontal(pixels, 4, 4)
	if !reflect.DeepEqual(pixels, orig) {
		t.Fatal("double flip should restore the original")
	}
}

func TestShiftPadsWithZero(t *testing.T) {
	pixels := []float32{
		1, 2,
		3, 4,
	}
	out := shift(pixels, 2, 2, 1, 0)
	want := []float32{
		0, 1,
		0, 3,
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("unexpected shift result: %v", out)
	}

	out = shift(pixels, 2, 2, 0, -1)
	want = []float32{
		3, 4,
		0, 0,
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("unexpected shift result: %v", out)
	}
}

func TestShiftZeroIsIdentity(t *testing.T) {
	pixels := []float32{1, 2, 3, 4}
	if out := shift(pixels, 2, 2, 0, 0); &out[0] != &pixels[0] {
		t.Fatal("expected zero shift to return the input slice")
	}
}

func TestAugmentIsSeedDeterministic(t *testing.T) {
	base := make([]float32, 32*32)
	for i := range base {
		base[i] = float32(i) / float32(len(base))
	}

	a := augment(rand.New(rand.NewSource(9)), append([]float32(nil), base...), 32, 32)
	b := augment(rand.New(rand.NewSource(9)), append([]float32(nil), base...), 32, 32)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("expected identical augmentation for identical seeds")
	}
}
