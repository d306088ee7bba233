package visualization

import (
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"cticalib/pkg/array"
	"cticalib/pkg/dataset"
	"cticalib/pkg/fit"
	"cticalib/pkg/layout"
	"cticalib/pkg/region"
)

func gradient(rows, columns int) *array.Array2D {
	a := array.New2D(rows, columns)
	for y := 0; y < rows; y++ {
		for x := 0; x < columns; x++ {
			a.Set(y, x, float64(y*columns+x))
		}
	}
	return a
}

func grayAt(img image.Image, x, y int) uint16 {
	r, _, _, _ := img.At(x, y).RGBA()
	return uint16(r)
}

// TestViewerStretch verifies the display range and pixel levels
func TestViewerStretch(t *testing.T) {
	a := gradient(4, 5)
	a.SetMasked(3, 4, true)

	viewer := NewViewer(a)
	low, high := viewer.Range()
	if low != 0 || high != 18 {
		t.Errorf("Expected range [0, 18] ignoring the masked pixel, got [%f, %f]", low, high)
	}

	img := viewer.Image()
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 4 {
		t.Errorf("Expected 5x4 image, got %v", img.Bounds())
	}
	if got := grayAt(img, 0, 0); got != 0 {
		t.Errorf("Expected black minimum, got %d", got)
	}
	if got := grayAt(img, 3, 3); got != 65535 {
		t.Errorf("Expected white maximum, got %d", got)
	}
	if got := grayAt(img, 4, 3); got != 0 {
		t.Errorf("Expected masked pixel black, got %d", got)
	}
}

// TestViewerSetRange verifies values outside the range are clipped
func TestViewerSetRange(t *testing.T) {
	viewer := NewViewer(gradient(2, 2))
	if err := viewer.SetRange(1, 1); err == nil {
		t.Errorf("Expected an error for an empty range")
	}
	if err := viewer.SetRange(1, 2); err != nil {
		t.Fatalf("Failed to set range: %v", err)
	}
	img := viewer.Image()
	if got := grayAt(img, 1, 1); got != 65535 {
		t.Errorf("Expected value 3 clipped to white, got %d", got)
	}
}

// TestSaveArray2D verifies the JPEG can be decoded
func TestSaveArray2D(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "frame.jpg")
	if err := SaveArray2D(gradient(8, 8), filename); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	defer file.Close()
	img, err := jpeg.Decode(file)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("Expected width 8, got %d", img.Bounds().Dx())
	}
}

// TestSaveFitDiagnostics verifies every diagnostic map is written
func TestSaveFitDiagnostics(t *testing.T) {
	l, err := layout.NewUniform(region.Shape2D{Rows: 6, Columns: 6}, []region.Region2D{region.MustNew(1, 3, 1, 5)}, 10, layout.Scans{})
	if err != nil {
		t.Fatalf("Failed to create layout: %v", err)
	}
	pre, err := l.PreCTIImageFrom(layout.RandomSeed)
	if err != nil {
		t.Fatalf("Failed to create pre-CTI image: %v", err)
	}
	d, err := dataset.NewImagingCI(gradient(6, 6), array.Full2D(6, 6, 1), pre, l, dataset.ImagingCIOptions{})
	if err != nil {
		t.Fatalf("Failed to create dataset: %v", err)
	}
	f, err := fit.NewFitImagingCI(d, pre, nil)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "diagnostics")
	if err := SaveFitDiagnostics(f, dir); err != nil {
		t.Fatalf("Failed to save diagnostics: %v", err)
	}
	for _, name := range []string{"data", "post_cti_image", "residual_map", "chi_squared_map"} {
		if _, err := os.Stat(filepath.Join(dir, name+".jpg")); err != nil {
			t.Errorf("Expected %s.jpg to exist: %v", name, err)
		}
	}
}
