package ciio

import (
	"errors"
	"path/filepath"
	"testing"

	"cticalib/pkg/array"
	"cticalib/pkg/dataset"
	"cticalib/pkg/layout"
	"cticalib/pkg/region"
)

func TestWriteReadArray2D(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.fits")
	a := array.MustFromRows([][]float64{
		{1, 2, 3},
		{4, 5, 6},
	})
	a.SetMasked(1, 2, true)

	if err := WriteArray2D(path, a); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	got, err := ReadArray2D(path, 0)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if got.Shape() != (region.Shape2D{Rows: 2, Columns: 3}) {
		t.Fatalf("Expected shape 2x3, got %v", got.Shape())
	}
	if got.At(1, 0) != 4 || got.At(0, 2) != 3 {
		t.Errorf("Expected row-major values, got %v", got.RowMajor())
	}
	if got.At(1, 2) != 0 {
		t.Errorf("Expected masked pixel written as 0, got %f", got.At(1, 2))
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := ReadArray2D(filepath.Join(t.TempDir(), "missing.fits"), 0); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
}

func TestInjectionHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.fits")
	want := InjectionHeader{CCDID: "3-4", QuadrantID: "E", InjectionOn: 200, InjectionOff: 300, InjectionTotal: 4, Normalization: 1500.5}
	if err := WriteArray2D(path, array.New2D(2, 2), want.Cards()...); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	got, err := ReadInjectionHeader(path, 0, InjectionHeader{})
	if err != nil {
		t.Fatalf("Failed to read header: %v", err)
	}
	if got != want {
		t.Errorf("Expected header %+v, got %+v", want, got)
	}
}

func TestHeaderDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.fits")
	if err := WriteArray2D(path, array.New2D(2, 2)); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	defaults := InjectionHeader{InjectionOn: 10, InjectionOff: 5, InjectionTotal: 2, Normalization: 100}
	got, err := ReadInjectionHeader(path, 0, defaults)
	if err != nil {
		t.Fatalf("Failed to read header: %v", err)
	}
	if got != defaults {
		t.Errorf("Expected defaults %+v, got %+v", defaults, got)
	}
}

func testGeometry() Geometry {
	return Geometry{
		ParallelSize:     10,
		SerialSize:       8,
		SerialPrescan:    1,
		SerialOverscan:   2,
		ParallelOverscan: 1,
		ROECorner:        region.ROETopLeft,
	}
}

func TestGeometryLayout(t *testing.T) {
	h := InjectionHeader{InjectionOn: 2, InjectionOff: 2, InjectionTotal: 2, Normalization: 100}
	l, err := testGeometry().LayoutFrom(h, nil)
	if err != nil {
		t.Fatalf("Failed to build layout: %v", err)
	}
	want := []region.Region2D{region.MustNew(0, 2, 1, 6), region.MustNew(4, 6, 1, 6)}
	got := l.RegionList()
	if len(got) != len(want) {
		t.Fatalf("Expected %d regions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected region %d to be %v, got %v", i, want[i], got[i])
		}
	}
	scans := l.Scans()
	if scans.SerialOverscan == nil || *scans.SerialOverscan != region.MustNew(0, 10, 6, 8) {
		t.Errorf("Expected serial overscan (0, 10, 6, 8), got %v", scans.SerialOverscan)
	}
	if scans.ParallelOverscan == nil || *scans.ParallelOverscan != region.MustNew(9, 10, 1, 6) {
		t.Errorf("Expected parallel overscan (9, 10, 1, 6), got %v", scans.ParallelOverscan)
	}

	h.InjectionTotal = 10
	if _, err := testGeometry().LayoutFrom(h, nil); !errors.Is(err, layout.ErrLayout) {
		t.Errorf("Expected ErrLayout for too many injections, got %v", err)
	}
}

func TestLoadImagingCI(t *testing.T) {
	dir := t.TempDir()
	g := testGeometry()
	h := InjectionHeader{CCDID: "1", QuadrantID: "F", InjectionOn: 2, InjectionOff: 2, InjectionTotal: 2, Normalization: 100}

	l, err := g.LayoutFrom(h, nil)
	if err != nil {
		t.Fatalf("Failed to build layout: %v", err)
	}
	pre, err := l.PreCTIImageFrom(layout.RandomSeed)
	if err != nil {
		t.Fatalf("Failed to build pre-CTI image: %v", err)
	}
	native, err := pre.Add(array.Full2D(10, 8, 1))
	if err != nil {
		t.Fatalf("Failed to build image: %v", err)
	}

	imagePath := filepath.Join(dir, "image.fits")
	if err := WriteArray2D(imagePath, native.Rotated(g.ROECorner), h.Cards()...); err != nil {
		t.Fatalf("Failed to write image: %v", err)
	}

	d, header, err := LoadImagingCI(ImagingCIPaths{Image: imagePath}, g, LoadOptions{ReadNoise: 2})
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if header.QuadrantID != "F" {
		t.Errorf("Expected quadrant F, got %q", header.QuadrantID)
	}
	if got := d.Image().At(0, 1); got != 101 {
		t.Errorf("Expected native injected pixel 101, got %f", got)
	}
	if got := d.Image().At(9, 1); got != 1 {
		t.Errorf("Expected native background pixel 1, got %f", got)
	}
	if got := d.NoiseMap().At(3, 3); got != 2 {
		t.Errorf("Expected read noise 2, got %f", got)
	}
	if got := d.PreCTIImage().At(4, 2); got != 100 {
		t.Errorf("Expected synthesised pre-CTI 100, got %f", got)
	}

	if _, _, err := LoadImagingCI(ImagingCIPaths{Image: imagePath}, g, LoadOptions{}); !errors.Is(err, dataset.ErrNoiseMap) {
		t.Errorf("Expected ErrNoiseMap without noise, got %v", err)
	}

	small := g
	small.ParallelSize = 6
	if _, _, err := LoadImagingCI(ImagingCIPaths{Image: imagePath}, small, LoadOptions{ReadNoise: 1}); err == nil {
		t.Errorf("Expected an error when the image does not match the geometry")
	}
}
