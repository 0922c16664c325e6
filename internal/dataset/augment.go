package dataset

import (
	"math/rand"
)

// maxShiftDivisor bounds the random translation to size/maxShiftDivisor
// pixels in each direction.
const maxShiftDivisor = 16

// flipHorizontal mirrors the grid around its vertical axis in place.
func flipHorizontal(pixels []float32, width, height int) {
	for y := 0; y < height; y++ {
		row := pixels[y*width : (y+1)*width]
		for x := 0; x < width/2; x++ {
			row[x], row[width-1-x] = row[width-1-x], row[x]
		}
	}
}

// shift translates the grid by (dx, dy), padding vacated pixels with zero.
func shift(pixels []float32, width, height, dx, dy int) []float32 {
	if dx == 0 && dy == 0 {
		return pixels
	}
	out := make([]float32, len(pixels))
	for y := 0; y < height; y++ {
		srcY := y - dy
		if srcY < 0 || srcY >= height {
			continue
		}
		for x := 0; x < width; x++ {
			srcX := x - dx
			if srcX < 0 || srcX >= width {
				continue
			}
			out[y*width+x] = pixels[srcY*width+srcX]
		}
	}
	return out
}

// augment applies the randomized geometric transforms used on training
// samples: a coin-flip horizontal mirror and a small random translation.
func augment(rng *rand.Rand, pixels []float32, width, height int) []float32 {
	if rng.Intn(2) == 1 {
		flipHorizontal(pixels, width, height)
	}
	maxShift := width / maxShiftDivisor
	if maxShift > 0 {
		dx := rng.Intn(2*maxShift+1) - maxShift
		dy := rng.Intn(2*maxShift+1) - maxShift
		pixels = shift(pixels, width, height, dx, dy)
	}
	return pixels
}
