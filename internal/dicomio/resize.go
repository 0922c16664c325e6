package dicomio

import (
	"image"

	"golang.org/x/image/draw"
)

// ResizeSquare scales the image to a size x size grid with Catmull-Rom
// interpolation. Aspect ratio is not preserved; the classifier expects a
// fixed square input and the source X-rays are near-square already.
func ResizeSquare(src *Image, size int) *Image {
	if src.Width == size && src.Height == size {
		return src
	}

	srcGray := image.NewGray16(image.Rect(0, 0, src.Width, src.Height))
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			v := uint16(src.At(x, y)*65535 + 0.5)
			i := y*srcGray.Stride + x*2
			srcGray.Pix[i] = uint8(v >> 8)
			srcGray.Pix[i+1] = uint8(v)
		}
	}

	dstGray := image.NewGray16(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dstGray, dstGray.Bounds(), srcGray, srcGray.Bounds(), draw.Src, nil)

	pixels := make([]float32, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := y*dstGray.Stride + x*2
			v := uint16(dstGray.Pix[i])<<8 | uint16(dstGray.Pix[i+1])
			pixels[y*size+x] = float32(v) / 65535
		}
	}
	return &Image{Pixels: pixels, Width: size, Height: size}
}
