package dicomio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Image is a single-channel intensity grid scaled to [0, 1], row-major.
type Image struct {
	Pixels []float32
	Width  int
	Height int
}

// At returns the intensity at (x, y).
func (im *Image) At(x, y int) float32 {
	return im.Pixels[y*im.Width+x]
}

// DecodeFile reads one medical image and rescales it by maxIntensity into
// [0, 1]. DICOM files are decoded through their native pixel data; PNG and
// JPEG exports of the same data are accepted as a fallback. Decode failures
// are terminal for the batch run, so errors carry the file path.
func DecodeFile(path string, maxIntensity float64) (*Image, error) {
	if maxIntensity <= 0 {
		return nil, fmt.Errorf("decode %s: max intensity must be positive", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dcm", ".dicom":
		return decodeDICOM(path, maxIntensity)
	default:
		return decodeRaster(path, maxIntensity)
	}
}

func decodeDICOM(path string, maxIntensity float64) (*Image, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("parse dicom %s: %w", path, err)
	}

	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("dicom %s: pixel data: %w", path, err)
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("dicom %s: no frames", path)
	}

	// Chest X-rays are single-frame; take the first frame regardless.
	native, err := info.Frames[0].GetNativeFrame()
	if err != nil {
		return nil, fmt.Errorf("dicom %s: native frame: %w", path, err)
	}

	width, height := native.Cols, native.Rows
	if width <= 0 || height <= 0 || len(native.Data) != width*height {
		return nil, fmt.Errorf("dicom %s: inconsistent frame geometry %dx%d with %d samples",
			path, width, height, len(native.Data))
	}

	pixels := make([]float32, width*height)
	for i, sample := range native.Data {
		pixels[i] = clampUnit(float64(sample[0]) / maxIntensity)
	}
	return &Image{Pixels: pixels, Width: width, Height: height}, nil
}

func decodeRaster(path string, maxIntensity float64) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pixels := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			pixels[y*width+x] = clampUnit(float64(gray.Y) / maxIntensity)
		}
	}
	return &Image{Pixels: pixels, Width: width, Height: height}, nil
}

func clampUnit(v float64) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float32(v)
}
