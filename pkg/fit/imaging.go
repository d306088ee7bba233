package fit

import (
	"fmt"

	"cticalib/pkg/array"
	"cticalib/pkg/dataset"
)

// FitImagingCI is the fit of a post-CTI model image to a charge injection
// dataset. It is computed once at construction and never changes.
type FitImagingCI struct {
	dataset      *dataset.ImagingCI
	postCTIImage *array.Array2D
	noiseMap     *array.Array2D
	pixels       *pixels
}

// NewFitImagingCI fits postCTIImage to d. When hyperNoiseScalars is
// non-empty each scalar is paired, in order, with the dataset's noise scaling
// maps and the scaled maps are added to the noise map before fitting.
func NewFitImagingCI(d *dataset.ImagingCI, postCTIImage *array.Array2D, hyperNoiseScalars []*HyperNoiseScalar) (*FitImagingCI, error) {
	if postCTIImage.Shape() != d.Shape() {
		return nil, fmt.Errorf("%w: model image %v does not match dataset %v", array.ErrShape, postCTIImage.Shape(), d.Shape())
	}

	noiseMap := d.NoiseMap()
	if len(hyperNoiseScalars) > 0 {
		var err error
		if noiseMap, err = HyperNoiseMapFrom(d.NoiseMap(), hyperNoiseScalars, d.NoiseScalingMaps()); err != nil {
			return nil, err
		}
	}

	p, err := newPixels(d.Image().RowMajor(), noiseMap.RowMajor(), postCTIImage.RowMajor(), d.Image().Mask())
	if err != nil {
		return nil, err
	}
	return &FitImagingCI{
		dataset:      d,
		postCTIImage: postCTIImage,
		noiseMap:     noiseMap,
		pixels:       p,
	}, nil
}

func (f *FitImagingCI) wrap(values []float64) *array.Array2D {
	out, err := array.FromRowMajor(f.dataset.Shape(), values, f.pixels.mask)
	if err != nil {
		// values always come from pixels, which match the dataset shape
		panic(err)
	}
	return out
}

// Dataset returns the fitted dataset.
func (f *FitImagingCI) Dataset() *dataset.ImagingCI { return f.dataset }

// Data returns the observed image.
func (f *FitImagingCI) Data() *array.Array2D { return f.dataset.Image() }

// PreCTIImage returns the dataset's pre-CTI image.
func (f *FitImagingCI) PreCTIImage() *array.Array2D { return f.dataset.PreCTIImage() }

// PostCTIImage returns the model image the data were fitted with.
func (f *FitImagingCI) PostCTIImage() *array.Array2D { return f.postCTIImage }

// NoiseMap returns the noise map used by the fit, including any hyper noise.
func (f *FitImagingCI) NoiseMap() *array.Array2D { return f.noiseMap }

// ResidualMap returns data - model, zero where masked.
func (f *FitImagingCI) ResidualMap() *array.Array2D { return f.wrap(f.pixels.residual) }

// NormalizedResidualMap returns residual / noise, zero where masked.
func (f *FitImagingCI) NormalizedResidualMap() *array.Array2D {
	return f.wrap(f.pixels.normalizedResidual)
}

// ChiSquaredMap returns (residual / noise)^2, zero where masked.
func (f *FitImagingCI) ChiSquaredMap() *array.Array2D { return f.wrap(f.pixels.chiSquared) }

// SignalToNoiseMap returns data / noise, zero where masked.
func (f *FitImagingCI) SignalToNoiseMap() *array.Array2D { return f.wrap(f.pixels.signalToNoise()) }

// TotalUnmasked returns the number of pixels contributing to the fit.
func (f *FitImagingCI) TotalUnmasked() int { return f.pixels.totalUnmasked() }

// ChiSquared returns the sum of the chi-squared map.
func (f *FitImagingCI) ChiSquared() float64 { return f.pixels.chiSquaredSum() }

// ReducedChiSquared returns the chi-squared per unmasked pixel.
func (f *FitImagingCI) ReducedChiSquared() float64 {
	return f.ChiSquared() / float64(f.TotalUnmasked())
}

// NoiseNormalization returns the sum of log(2 pi sigma^2) over unmasked
// pixels.
func (f *FitImagingCI) NoiseNormalization() float64 { return f.pixels.noiseNormalization() }

// LogLikelihood returns -0.5 * (chi-squared + noise normalization).
func (f *FitImagingCI) LogLikelihood() float64 { return f.pixels.logLikelihood() }

// FigureOfMerit is the quantity a search maximises, the log likelihood.
func (f *FitImagingCI) FigureOfMerit() float64 { return f.LogLikelihood() }

// ChiSquaredMapOfRegionsCI returns the chi-squared map inside the charge
// injection regions only.
func (f *FitImagingCI) ChiSquaredMapOfRegionsCI() (*array.Array2D, error) {
	return f.dataset.Layout().Array2DOfRegionsFrom(f.ChiSquaredMap())
}

// ChiSquaredMapOfParallelTrails returns the chi-squared map over the parallel
// EPER trails only.
func (f *FitImagingCI) ChiSquaredMapOfParallelTrails() (*array.Array2D, error) {
	return f.dataset.Layout().Array2DOfParallelTrailsFrom(f.ChiSquaredMap())
}

// ChiSquaredMapOfSerialTrails returns the chi-squared map over the serial
// EPER trails only.
func (f *FitImagingCI) ChiSquaredMapOfSerialTrails() (*array.Array2D, error) {
	return f.dataset.Layout().Array2DOfSerialTrailsFrom(f.ChiSquaredMap())
}

// ChiSquaredMapOfSerialOverscanNoTrails returns the chi-squared map over the
// serial overscan rows that hold no serial trail.
func (f *FitImagingCI) ChiSquaredMapOfSerialOverscanNoTrails() (*array.Array2D, error) {
	return f.dataset.Layout().Array2DOfSerialOverscanAboveTrailsFrom(f.ChiSquaredMap())
}

// NoiseScalingMapListFrom harvests per-region chi-squared maps from a fit for
// use as the noise scaling maps of a hyper noise refit. The order is regions,
// parallel trails, serial trails, serial overscan without trails, matching
// HyperNoiseCollection.List. Frames without a serial overscan get zero maps
// for the two serial entries.
func NoiseScalingMapListFrom(f *FitImagingCI) ([]*array.Array2D, error) {
	regions, err := f.ChiSquaredMapOfRegionsCI()
	if err != nil {
		return nil, err
	}
	parallelTrails, err := f.ChiSquaredMapOfParallelTrails()
	if err != nil {
		return nil, err
	}

	serialTrails := f.ChiSquaredMap().ZerosLike()
	serialOverscan := f.ChiSquaredMap().ZerosLike()
	if f.dataset.Layout().Scans().SerialOverscan != nil {
		if serialTrails, err = f.ChiSquaredMapOfSerialTrails(); err != nil {
			return nil, err
		}
		if serialOverscan, err = f.ChiSquaredMapOfSerialOverscanNoTrails(); err != nil {
			return nil, err
		}
	}
	return []*array.Array2D{regions, parallelTrails, serialTrails, serialOverscan}, nil
}
