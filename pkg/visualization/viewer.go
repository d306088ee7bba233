// Package visualization writes quick-look images of charge injection frames
// and fits.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"cticalib/pkg/array"
	"cticalib/pkg/fit"
)

// Viewer renders a 2D array as a grayscale image stretched between the
// minimum and maximum unmasked values. Masked pixels are drawn black.
type Viewer struct {
	data *array.Array2D

	// display range
	low  float64
	high float64
}

// NewViewer creates a viewer stretched over the unmasked range of data.
func NewViewer(data *array.Array2D) *Viewer {
	v := &Viewer{data: data}
	if values := data.UnmaskedValues(); len(values) > 0 {
		v.low = floats.Min(values)
		v.high = floats.Max(values)
	}
	return v
}

// SetRange overrides the display range.
func (v *Viewer) SetRange(low, high float64) error {
	if !(high > low) {
		return fmt.Errorf("display range [%f, %f] is empty", low, high)
	}
	v.low, v.high = low, high
	return nil
}

// Range returns the display range.
func (v *Viewer) Range() (low, high float64) {
	return v.low, v.high
}

// Image renders the array. Row 0 is the top of the image.
func (v *Viewer) Image() image.Image {
	shape := v.data.Shape()
	img := image.NewGray16(image.Rect(0, 0, shape.Columns, shape.Rows))
	span := v.high - v.low
	for y := 0; y < shape.Rows; y++ {
		for x := 0; x < shape.Columns; x++ {
			if v.data.IsMasked(y, x) {
				continue
			}
			level := 0.0
			if span > 0 {
				level = (v.data.At(y, x) - v.low) / span
			}
			level = max(0, min(1, level))
			img.SetGray16(x, y, color.Gray16{Y: uint16(level * 65535)})
		}
	}
	return img
}

// Save writes the rendered array as a JPEG image
func (v *Viewer) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, v.Image(), &jpeg.Options{Quality: 90})
}

// SaveArray2D writes a as a min-max stretched JPEG image.
func SaveArray2D(a *array.Array2D, filename string) error {
	return NewViewer(a).Save(filename)
}

// SaveFitDiagnostics writes the data, model, residual and chi-squared maps of
// a fit to outputDir, one JPEG per map. The data and both model images share
// the stretch of the data so they can be compared by eye.
func SaveFitDiagnostics(f *fit.FitImagingCI, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	dataViewer := NewViewer(f.Data())
	low, high := dataViewer.Range()
	shared := func(a *array.Array2D) *Viewer {
		v := NewViewer(a)
		// a flat frame has no usable range, keep the viewer's own
		if err := v.SetRange(low, high); err != nil {
			return NewViewer(a)
		}
		return v
	}

	maps := []struct {
		name   string
		viewer *Viewer
	}{
		{"data", dataViewer},
		{"pre_cti_image", shared(f.PreCTIImage())},
		{"post_cti_image", shared(f.PostCTIImage())},
		{"noise_map", NewViewer(f.NoiseMap())},
		{"residual_map", NewViewer(f.ResidualMap())},
		{"normalized_residual_map", NewViewer(f.NormalizedResidualMap())},
		{"chi_squared_map", NewViewer(f.ChiSquaredMap())},
	}
	for _, m := range maps {
		filename := filepath.Join(outputDir, m.name+".jpg")
		if err := m.viewer.Save(filename); err != nil {
			return fmt.Errorf("failed to save %s: %w", m.name, err)
		}
	}

	return nil
}
