package fit

import (
	"errors"
	"math"
	"testing"

	"cticalib/pkg/array"
	"cticalib/pkg/dataset"
	"cticalib/pkg/layout"
	"cticalib/pkg/region"
)

const tolerance = 1e-9

func smallDataset(t *testing.T, image *array.Array2D, noise float64, maps []*array.Array2D) *dataset.ImagingCI {
	t.Helper()
	l, err := layout.NewUniform(region.Shape2D{Rows: 2, Columns: 2}, []region.Region2D{region.MustNew(0, 1, 0, 2)}, 1, layout.Scans{})
	if err != nil {
		t.Fatalf("Failed to create layout: %v", err)
	}
	d, err := dataset.NewImagingCI(image, array.Full2D(2, 2, noise), array.Full2D(2, 2, 1), l, dataset.ImagingCIOptions{
		NoiseScalingMaps: maps,
	})
	if err != nil {
		t.Fatalf("Failed to create dataset: %v", err)
	}
	return d
}

func TestLogLikelihoodPerfectModel(t *testing.T) {
	image := array.MustFromRows([][]float64{{1, 2}, {3, 4}})
	d := smallDataset(t, image, 2, nil)

	f, err := NewFitImagingCI(d, image.Clone(), nil)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	if f.ChiSquared() != 0 {
		t.Errorf("Expected chi-squared 0, got %f", f.ChiSquared())
	}
	expected := -0.5 * (4 * math.Log(2*math.Pi*4))
	if math.Abs(f.LogLikelihood()-expected) > tolerance {
		t.Errorf("Expected log likelihood %f, got %f", expected, f.LogLikelihood())
	}
	if f.FigureOfMerit() != f.LogLikelihood() {
		t.Errorf("Expected figure of merit to equal log likelihood")
	}
}

func TestResidualAndChiSquaredMaps(t *testing.T) {
	image := array.MustFromRows([][]float64{{1, 2}, {3, 4}})
	model := array.MustFromRows([][]float64{{1, 0}, {3, 8}})
	d := smallDataset(t, image, 2, nil)

	f, err := NewFitImagingCI(d, model, nil)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	if got := f.ResidualMap().At(1, 1); got != -4 {
		t.Errorf("Expected residual -4, got %f", got)
	}
	if got := f.NormalizedResidualMap().At(0, 1); got != 1 {
		t.Errorf("Expected normalized residual 1, got %f", got)
	}
	if got := f.ChiSquaredMap().At(1, 1); got != 4 {
		t.Errorf("Expected chi-squared 4, got %f", got)
	}
	if f.ChiSquared() != 5 {
		t.Errorf("Expected chi-squared sum 5, got %f", f.ChiSquared())
	}
	if f.ReducedChiSquared() != 1.25 {
		t.Errorf("Expected reduced chi-squared 1.25, got %f", f.ReducedChiSquared())
	}
	if got := f.SignalToNoiseMap().At(1, 0); got != 1.5 {
		t.Errorf("Expected signal to noise 1.5, got %f", got)
	}
}

func TestMaskedPixelsAreExcluded(t *testing.T) {
	image := array.MustFromRows([][]float64{{1, 2}, {3, 4}})
	image.SetMasked(1, 1, true)
	model := array.MustFromRows([][]float64{{1, 2}, {3, 100}})
	d := smallDataset(t, image, 2, nil)

	f, err := NewFitImagingCI(d, model, nil)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	if f.TotalUnmasked() != 3 {
		t.Errorf("Expected 3 unmasked pixels, got %d", f.TotalUnmasked())
	}
	if f.ChiSquared() != 0 {
		t.Errorf("Expected masked pixel to be ignored, got chi-squared %f", f.ChiSquared())
	}
	if got := f.ResidualMap().At(1, 1); got != 0 {
		t.Errorf("Expected masked residual 0, got %f", got)
	}
	expected := -0.5 * (3 * math.Log(2*math.Pi*4))
	if math.Abs(f.LogLikelihood()-expected) > tolerance {
		t.Errorf("Expected log likelihood %f, got %f", expected, f.LogLikelihood())
	}
}

func TestHyperNoiseMap(t *testing.T) {
	maps := []*array.Array2D{
		array.MustFromRows([][]float64{{1, 2}, {3, 4}}),
		array.MustFromRows([][]float64{{5, 6}, {7, 8}}),
	}
	image := array.MustFromRows([][]float64{{1, 2}, {3, 4}})
	d := smallDataset(t, image, 2, maps)

	f, err := NewFitImagingCI(d, image.Clone(), []*HyperNoiseScalar{{ScaleFactor: 1}, {ScaleFactor: 2}})
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	expected := [][]float64{{13, 16}, {19, 22}}
	for y := range expected {
		for x := range expected[y] {
			if got := f.NoiseMap().At(y, x); got != expected[y][x] {
				t.Errorf("Expected noise %f at (%d, %d), got %f", expected[y][x], y, x, got)
			}
		}
	}
	// the dataset's own noise map is untouched
	if got := d.NoiseMap().At(0, 0); got != 2 {
		t.Errorf("Expected dataset noise 2, got %f", got)
	}
}

func TestHyperNoiseNilScalarSkipsMap(t *testing.T) {
	maps := []*array.Array2D{array.Full2D(2, 2, 1), array.Full2D(2, 2, 3)}
	out, err := HyperNoiseMapFrom(array.Full2D(2, 2, 2), []*HyperNoiseScalar{nil, {ScaleFactor: 1}}, maps)
	if err != nil {
		t.Fatalf("Failed to scale noise: %v", err)
	}
	if got := out.At(0, 0); got != 5 {
		t.Errorf("Expected noise 5, got %f", got)
	}
}

func TestHyperNoiseErrors(t *testing.T) {
	maps := []*array.Array2D{array.Full2D(2, 2, 1)}
	noise := array.Full2D(2, 2, 2)

	tooMany := []*HyperNoiseScalar{{ScaleFactor: 1}, {ScaleFactor: 1}}
	if _, err := HyperNoiseMapFrom(noise, tooMany, maps); !errors.Is(err, ErrHyperNoise) {
		t.Errorf("Expected ErrHyperNoise for extra scalars, got %v", err)
	}
	if _, err := HyperNoiseMapFrom(noise, []*HyperNoiseScalar{{ScaleFactor: -1}}, maps); !errors.Is(err, ErrHyperNoise) {
		t.Errorf("Expected ErrHyperNoise for negative scalar, got %v", err)
	}
}

func TestModelShapeMismatch(t *testing.T) {
	image := array.MustFromRows([][]float64{{1, 2}, {3, 4}})
	d := smallDataset(t, image, 2, nil)
	if _, err := NewFitImagingCI(d, array.New2D(3, 3), nil); !errors.Is(err, array.ErrShape) {
		t.Errorf("Expected ErrShape, got %v", err)
	}
}

func TestNoiseScalingMapListFrom(t *testing.T) {
	overscan := region.MustNew(0, 12, 7, 10)
	prescan := region.MustNew(0, 12, 0, 2)
	l, err := layout.NewUniform(
		region.Shape2D{Rows: 12, Columns: 10},
		[]region.Region2D{region.MustNew(1, 4, 2, 7), region.MustNew(6, 9, 2, 7)},
		10,
		layout.Scans{SerialPrescan: &prescan, SerialOverscan: &overscan},
	)
	if err != nil {
		t.Fatalf("Failed to create layout: %v", err)
	}
	d, err := dataset.NewImagingCI(array.Full2D(12, 10, 3), array.Full2D(12, 10, 1), array.Full2D(12, 10, 0), l, dataset.ImagingCIOptions{})
	if err != nil {
		t.Fatalf("Failed to create dataset: %v", err)
	}
	// every pixel has chi-squared 1
	f, err := NewFitImagingCI(d, array.Full2D(12, 10, 2), nil)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	maps, err := NoiseScalingMapListFrom(f)
	if err != nil {
		t.Fatalf("Failed to build noise scaling maps: %v", err)
	}
	if len(maps) != 4 {
		t.Fatalf("Expected 4 maps, got %d", len(maps))
	}
	regions, parallelTrails, serialTrails := maps[0], maps[1], maps[2]
	if regions.At(2, 3) != 1 || regions.At(4, 3) != 0 {
		t.Errorf("Expected regions map to hold only injected pixels")
	}
	if parallelTrails.At(4, 3) != 1 || parallelTrails.At(2, 3) != 0 || parallelTrails.At(4, 8) != 0 {
		t.Errorf("Expected parallel trails map to hold only the trails")
	}
	if serialTrails.At(2, 8) != 1 || serialTrails.At(2, 3) != 0 {
		t.Errorf("Expected serial trails map to hold only the serial overscan beside regions")
	}

	// feeding the maps back into a hyper noise fit inflates the noise
	hyper, err := d.WithNoiseScalingMaps(maps)
	if err != nil {
		t.Fatalf("Failed to attach maps: %v", err)
	}
	collection := HyperNoiseCollection{RegionsCI: &HyperNoiseScalar{ScaleFactor: 1}}
	refit, err := NewFitImagingCI(hyper, array.Full2D(12, 10, 2), collection.List())
	if err != nil {
		t.Fatalf("Failed to refit: %v", err)
	}
	if refit.NoiseMap().At(2, 3) != 2 || refit.NoiseMap().At(4, 3) != 1 {
		t.Errorf("Expected noise 2 in regions and 1 elsewhere, got %f and %f", refit.NoiseMap().At(2, 3), refit.NoiseMap().At(4, 3))
	}
	if refit.LogLikelihood() == f.LogLikelihood() {
		t.Errorf("Expected hyper noise to change the log likelihood")
	}
}

func TestNoiseScalingMapListWithoutOverscan(t *testing.T) {
	image := array.MustFromRows([][]float64{{1, 2}, {3, 4}})
	d := smallDataset(t, image, 1, nil)
	f, err := NewFitImagingCI(d, array.New2D(2, 2), nil)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	maps, err := NoiseScalingMapListFrom(f)
	if err != nil {
		t.Fatalf("Failed to build noise scaling maps: %v", err)
	}
	if maps[2].Sum() != 0 || maps[3].Sum() != 0 {
		t.Errorf("Expected zero serial maps without a serial overscan")
	}
}

func TestFitDatasetLine(t *testing.T) {
	l, err := layout.NewLayout1DLine(6, []region.Region1D{{X0: 1, X1: 3}}, 10)
	if err != nil {
		t.Fatalf("Failed to create line layout: %v", err)
	}
	data := array.From1D([]float64{0, 10, 10, 2, 1, 0})
	noise := array.From1D([]float64{1, 1, 1, 1, 1, 1})
	d, err := dataset.NewDatasetLine(data, noise, l.PreCTILineFrom(), l, dataset.DatasetLineOptions{
		NoiseScalingLines: []*array.Array1D{array.From1D([]float64{1, 1, 1, 1, 1, 1})},
	})
	if err != nil {
		t.Fatalf("Failed to create dataset: %v", err)
	}

	f, err := NewFitDatasetLine(d, l.PreCTILineFrom(), nil)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	if f.ChiSquared() != 5 {
		t.Errorf("Expected chi-squared 5, got %f", f.ChiSquared())
	}
	expected := -0.5 * (5 + 6*math.Log(2*math.Pi))
	if math.Abs(f.LogLikelihood()-expected) > tolerance {
		t.Errorf("Expected log likelihood %f, got %f", expected, f.LogLikelihood())
	}

	nonRegions, err := f.ChiSquaredMapOfNonRegions()
	if err != nil {
		t.Fatalf("Failed to extract non-regions: %v", err)
	}
	if nonRegions.Sum() != 5 {
		t.Errorf("Expected all chi-squared outside regions, got %f", nonRegions.Sum())
	}

	// the scaling line comes from the dataset
	hyper, err := NewFitDatasetLine(d, l.PreCTILineFrom(), []*HyperNoiseScalar{{ScaleFactor: 1}})
	if err != nil {
		t.Fatalf("Failed to fit with hyper noise: %v", err)
	}
	if hyper.NoiseMap().At(0) != 2 {
		t.Errorf("Expected hyper noise 2, got %f", hyper.NoiseMap().At(0))
	}
	if hyper.ChiSquared() != 1.25 {
		t.Errorf("Expected chi-squared 1.25, got %f", hyper.ChiSquared())
	}

	// masking keeps the scaling line
	masked, err := d.ApplyMask([]bool{false, false, false, true, false, false})
	if err != nil {
		t.Fatalf("Failed to mask: %v", err)
	}
	hyperMasked, err := NewFitDatasetLine(masked, l.PreCTILineFrom(), []*HyperNoiseScalar{{ScaleFactor: 1}})
	if err != nil {
		t.Fatalf("Failed to fit masked dataset with hyper noise: %v", err)
	}
	if hyperMasked.ChiSquared() != 0.25 {
		t.Errorf("Expected chi-squared 0.25, got %f", hyperMasked.ChiSquared())
	}

	extra := []*HyperNoiseScalar{{ScaleFactor: 1}, {ScaleFactor: 1}}
	if _, err := NewFitDatasetLine(d, l.PreCTILineFrom(), extra); !errors.Is(err, ErrHyperNoise) {
		t.Errorf("Expected ErrHyperNoise for a scalar without a line, got %v", err)
	}
}

func TestNegativeNoiseScalingMapRejected(t *testing.T) {
	l, err := layout.NewUniform(region.Shape2D{Rows: 2, Columns: 2}, []region.Region2D{region.MustNew(0, 1, 0, 2)}, 1, layout.Scans{})
	if err != nil {
		t.Fatalf("Failed to create layout: %v", err)
	}
	image := array.MustFromRows([][]float64{{1, 2}, {3, 4}})
	_, err = dataset.NewImagingCI(image, array.Full2D(2, 2, 2), array.Full2D(2, 2, 1), l, dataset.ImagingCIOptions{
		NoiseScalingMaps: []*array.Array2D{array.Full2D(2, 2, -2)},
	})
	if !errors.Is(err, dataset.ErrNoiseScalingMap) {
		t.Errorf("Expected ErrNoiseScalingMap, got %v", err)
	}
}

func TestNonPositiveHyperNoiseRejected(t *testing.T) {
	// a hyper noise map built outside a dataset can still reach zero
	noise, err := HyperNoiseMapFrom(array.Full2D(2, 2, 2), []*HyperNoiseScalar{{ScaleFactor: 1}}, []*array.Array2D{array.Full2D(2, 2, -2)})
	if err != nil {
		t.Fatalf("Failed to scale noise: %v", err)
	}
	if _, err := newPixels(noise.RowMajor(), noise.RowMajor(), noise.RowMajor(), make([]bool, 4)); !errors.Is(err, dataset.ErrNoiseMap) {
		t.Errorf("Expected ErrNoiseMap for zero noise, got %v", err)
	}
}

func TestHyperNoiseCollectionWithFewerMaps(t *testing.T) {
	collection := HyperNoiseCollection{RegionsCI: &HyperNoiseScalar{ScaleFactor: 2}}
	out, err := HyperNoiseMapFrom(array.Full2D(2, 2, 1), collection.List(), []*array.Array2D{array.Full2D(2, 2, 1)})
	if err != nil {
		t.Fatalf("Expected unset scalars to need no map, got %v", err)
	}
	if got := out.At(1, 1); got != 3 {
		t.Errorf("Expected noise 3, got %f", got)
	}

	collection.SerialTrails = &HyperNoiseScalar{ScaleFactor: 1}
	if _, err := HyperNoiseMapFrom(array.Full2D(2, 2, 1), collection.List(), []*array.Array2D{array.Full2D(2, 2, 1)}); !errors.Is(err, ErrHyperNoise) {
		t.Errorf("Expected ErrHyperNoise for a scalar without a map, got %v", err)
	}
}
