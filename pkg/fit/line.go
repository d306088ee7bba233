package fit

import (
	"fmt"

	"cticalib/pkg/array"
	"cticalib/pkg/dataset"
)

// FitDatasetLine is the fit of a post-CTI model line to a 1D dataset.
type FitDatasetLine struct {
	dataset     *dataset.DatasetLine
	postCTILine *array.Array1D
	noiseMap    *array.Array1D
	pixels      *pixels
}

// NewFitDatasetLine fits postCTILine to d. hyperNoiseScalars are paired in
// order with the dataset's noise scaling lines.
func NewFitDatasetLine(d *dataset.DatasetLine, postCTILine *array.Array1D, hyperNoiseScalars []*HyperNoiseScalar) (*FitDatasetLine, error) {
	if postCTILine.Len() != d.Data().Len() {
		return nil, fmt.Errorf("%w: model line has %d pixels, dataset has %d", array.ErrShape, postCTILine.Len(), d.Data().Len())
	}

	noiseMap := d.NoiseMap()
	if len(hyperNoiseScalars) > 0 {
		var err error
		if noiseMap, err = HyperNoiseLineFrom(d.NoiseMap(), hyperNoiseScalars, d.NoiseScalingLines()); err != nil {
			return nil, err
		}
	}

	p, err := newPixels(d.Data().Values(), noiseMap.Values(), postCTILine.Values(), d.Data().Mask())
	if err != nil {
		return nil, err
	}
	return &FitDatasetLine{dataset: d, postCTILine: postCTILine, noiseMap: noiseMap, pixels: p}, nil
}

func (f *FitDatasetLine) wrap(values []float64) *array.Array1D {
	out, _ := array.From1DMasked(values, f.pixels.mask)
	return out
}

// Dataset returns the fitted dataset.
func (f *FitDatasetLine) Dataset() *dataset.DatasetLine { return f.dataset }

// PostCTILine returns the model line.
func (f *FitDatasetLine) PostCTILine() *array.Array1D { return f.postCTILine }

// NoiseMap returns the noise used by the fit, including any hyper noise.
func (f *FitDatasetLine) NoiseMap() *array.Array1D { return f.noiseMap }

// ResidualMap returns data - model, zero where masked.
func (f *FitDatasetLine) ResidualMap() *array.Array1D { return f.wrap(f.pixels.residual) }

// NormalizedResidualMap returns residual / noise, zero where masked.
func (f *FitDatasetLine) NormalizedResidualMap() *array.Array1D {
	return f.wrap(f.pixels.normalizedResidual)
}

// ChiSquaredMap returns (residual / noise)^2, zero where masked.
func (f *FitDatasetLine) ChiSquaredMap() *array.Array1D { return f.wrap(f.pixels.chiSquared) }

// SignalToNoiseMap returns data / noise, zero where masked.
func (f *FitDatasetLine) SignalToNoiseMap() *array.Array1D { return f.wrap(f.pixels.signalToNoise()) }

func (f *FitDatasetLine) TotalUnmasked() int { return f.pixels.totalUnmasked() }
func (f *FitDatasetLine) ChiSquared() float64 { return f.pixels.chiSquaredSum() }
func (f *FitDatasetLine) NoiseNormalization() float64 { return f.pixels.noiseNormalization() }
func (f *FitDatasetLine) LogLikelihood() float64 { return f.pixels.logLikelihood() }
func (f *FitDatasetLine) FigureOfMerit() float64 { return f.LogLikelihood() }

// ReducedChiSquared returns the chi-squared per unmasked pixel.
func (f *FitDatasetLine) ReducedChiSquared() float64 {
	return f.ChiSquared() / float64(f.TotalUnmasked())
}

// ChiSquaredMapOfRegions returns the chi-squared line inside injection
// regions only.
func (f *FitDatasetLine) ChiSquaredMapOfRegions() (*array.Array1D, error) {
	return f.dataset.Layout().Array1DOfRegionsFrom(f.ChiSquaredMap())
}

// ChiSquaredMapOfNonRegions returns the chi-squared line outside injection
// regions, where the trails are.
func (f *FitDatasetLine) ChiSquaredMapOfNonRegions() (*array.Array1D, error) {
	return f.dataset.Layout().Array1DOfNonRegionsFrom(f.ChiSquaredMap())
}
