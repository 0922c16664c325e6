package testsupport

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// WriteGrayPNG writes a synthetic grayscale image for one subject under the
// image root, with every pixel set to the given intensity.
func WriteGrayPNG(t testing.TB, imageRoot, subjectID string, width, height int, intensity uint8) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: intensity})
		}
	}

	if err := os.MkdirAll(imageRoot, 0o755); err != nil {
		t.Fatalf("mkdir image root: %v", err)
	}
	path := filepath.Join(imageRoot, subjectID+".png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

// WriteLabelTable writes a CSV label table with the source schema.
func WriteLabelTable(t testing.TB, path string, rows [][2]string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	body := "patientId,x,y,width,height,Target\n"
	for _, row := range rows {
		body += row[0] + ",,,,," + row[1] + "\n"
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
