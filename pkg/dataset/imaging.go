// Package dataset bundles the observed charge injection data, its noise and
// its pre-CTI reference with the layout describing where charge was injected.
//
// Datasets are immutable after construction: masking and calibration
// sub-extraction return new datasets.
package dataset

import (
	"errors"
	"fmt"

	"cticalib/pkg/array"
	"cticalib/pkg/layout"
	"cticalib/pkg/region"
)

// ErrNoiseMap is returned when an unmasked noise map pixel is not strictly
// positive, which would make the log likelihood undefined.
var ErrNoiseMap = errors.New("noise map must be strictly positive")

// ErrNoiseScalingMap is returned when an unmasked noise scaling map pixel is
// negative, which could drive the hyper noise map to zero or below.
var ErrNoiseScalingMap = errors.New("noise scaling map must be non-negative")

// ImagingCI is a 2D charge injection image and everything needed to fit it.
type ImagingCI struct {
	image            *array.Array2D
	noiseMap         *array.Array2D
	preCTIImage      *array.Array2D
	cosmicRayMap     *array.Array2D
	noiseScalingMaps []*array.Array2D
	layout           *layout.Layout2DCI
}

// ImagingCIOptions holds the optional parts of an ImagingCI.
type ImagingCIOptions struct {
	// CosmicRayMap flags cosmic ray hits with non-zero values.
	CosmicRayMap *array.Array2D
	// NoiseScalingMaps are the per-region maps hyper noise scalars multiply,
	// in the order the scalars are given to a fit.
	NoiseScalingMaps []*array.Array2D
}

// NewImagingCI validates and bundles a charge injection dataset. Every array
// must match the layout's shape. Wherever the image is unmasked the noise map
// must be strictly positive and the noise scaling maps non-negative.
func NewImagingCI(image, noiseMap, preCTIImage *array.Array2D, l *layout.Layout2DCI, opts ImagingCIOptions) (*ImagingCI, error) {
	if image == nil || noiseMap == nil || preCTIImage == nil || l == nil {
		return nil, fmt.Errorf("image, noise map, pre-CTI image and layout are all required")
	}
	shape := l.Shape()
	named := map[string]*array.Array2D{
		"image":         image,
		"noise map":     noiseMap,
		"pre-CTI image": preCTIImage,
	}
	if opts.CosmicRayMap != nil {
		named["cosmic ray map"] = opts.CosmicRayMap
	}
	for i, m := range opts.NoiseScalingMaps {
		named[fmt.Sprintf("noise scaling map %d", i)] = m
	}
	for name, a := range named {
		if a == nil {
			return nil, fmt.Errorf("%s is nil", name)
		}
		if a.Shape() != shape {
			return nil, fmt.Errorf("%w: %s has shape %v, layout has %v", array.ErrShape, name, a.Shape(), shape)
		}
	}
	if err := checkNoise2D(image, noiseMap); err != nil {
		return nil, err
	}
	for i, m := range opts.NoiseScalingMaps {
		if err := checkNoiseScaling2D(image, m); err != nil {
			return nil, fmt.Errorf("noise scaling map %d: %w", i, err)
		}
	}

	return &ImagingCI{
		image:            image,
		noiseMap:         noiseMap,
		preCTIImage:      preCTIImage,
		cosmicRayMap:     opts.CosmicRayMap,
		noiseScalingMaps: append([]*array.Array2D(nil), opts.NoiseScalingMaps...),
		layout:           l,
	}, nil
}

func checkNoise2D(image, noiseMap *array.Array2D) error {
	shape := noiseMap.Shape()
	for y := 0; y < shape.Rows; y++ {
		for x := 0; x < shape.Columns; x++ {
			if image.IsMasked(y, x) {
				continue
			}
			if v := noiseMap.At(y, x); !(v > 0) {
				return fmt.Errorf("%w: pixel (%d, %d) is %f", ErrNoiseMap, y, x, v)
			}
		}
	}
	return nil
}

func checkNoiseScaling2D(image, scaling *array.Array2D) error {
	shape := scaling.Shape()
	for y := 0; y < shape.Rows; y++ {
		for x := 0; x < shape.Columns; x++ {
			if image.IsMasked(y, x) {
				continue
			}
			if v := scaling.At(y, x); !(v >= 0) {
				return fmt.Errorf("%w: pixel (%d, %d) is %f", ErrNoiseScalingMap, y, x, v)
			}
		}
	}
	return nil
}

// Image returns the observed image. Its mask is the dataset mask.
func (d *ImagingCI) Image() *array.Array2D { return d.image }

// NoiseMap returns the per-pixel noise standard deviation.
func (d *ImagingCI) NoiseMap() *array.Array2D { return d.noiseMap }

// PreCTIImage returns the injected charge before CTI.
func (d *ImagingCI) PreCTIImage() *array.Array2D { return d.preCTIImage }

// CosmicRayMap returns the cosmic ray map, or nil.
func (d *ImagingCI) CosmicRayMap() *array.Array2D { return d.cosmicRayMap }

// NoiseScalingMaps returns the noise scaling maps in hyper noise order.
func (d *ImagingCI) NoiseScalingMaps() []*array.Array2D {
	return append([]*array.Array2D(nil), d.noiseScalingMaps...)
}

// Layout returns the frame's charge injection layout.
func (d *ImagingCI) Layout() *layout.Layout2DCI { return d.layout }

// Shape returns the frame shape.
func (d *ImagingCI) Shape() region.Shape2D { return d.layout.Shape() }

// Mask returns the dataset mask.
func (d *ImagingCI) Mask() *Mask2D {
	return &Mask2D{shape: d.Shape(), masked: d.image.Mask()}
}

// WithNoiseScalingMaps returns a copy of the dataset using maps as its noise
// scaling maps.
func (d *ImagingCI) WithNoiseScalingMaps(maps []*array.Array2D) (*ImagingCI, error) {
	return NewImagingCI(d.image, d.noiseMap, d.preCTIImage, d.layout, ImagingCIOptions{
		CosmicRayMap:     d.cosmicRayMap,
		NoiseScalingMaps: maps,
	})
}

// ApplyMask returns a copy of the dataset with mask applied to every array.
func (d *ImagingCI) ApplyMask(mask *Mask2D) (*ImagingCI, error) {
	if mask.Shape() != d.Shape() {
		return nil, fmt.Errorf("%w: mask %v does not match dataset %v", array.ErrShape, mask.Shape(), d.Shape())
	}
	masked := mask.Bools()
	apply := func(a *array.Array2D) (*array.Array2D, error) {
		if a == nil {
			return nil, nil
		}
		return a.WithMask(masked)
	}

	image, err := apply(d.image)
	if err != nil {
		return nil, err
	}
	noiseMap, err := apply(d.noiseMap)
	if err != nil {
		return nil, err
	}
	preCTI, err := apply(d.preCTIImage)
	if err != nil {
		return nil, err
	}
	cosmicRays, err := apply(d.cosmicRayMap)
	if err != nil {
		return nil, err
	}
	scaling := make([]*array.Array2D, len(d.noiseScalingMaps))
	for i, m := range d.noiseScalingMaps {
		if scaling[i], err = apply(m); err != nil {
			return nil, err
		}
	}

	return NewImagingCI(image, noiseMap, preCTI, d.layout, ImagingCIOptions{
		CosmicRayMap:     cosmicRays,
		NoiseScalingMaps: scaling,
	})
}

// SettingsImagingCI selects calibration sub-extractions applied by
// ApplySettings. ParallelColumns keeps the column window nearest the serial
// readout for parallel-only fits; SerialRows stacks the row window of every
// region for serial-only fits. Nil fields are skipped.
type SettingsImagingCI struct {
	ParallelColumns *region.Pixels
	SerialRows      *region.Pixels
}

// ApplySettings returns the dataset cropped to the calibration windows in
// settings. The parallel extraction is applied before the serial one.
func (d *ImagingCI) ApplySettings(settings SettingsImagingCI) (*ImagingCI, error) {
	out := d
	var err error
	if settings.ParallelColumns != nil {
		if out, err = out.parallelCalibration(*settings.ParallelColumns); err != nil {
			return nil, fmt.Errorf("parallel calibration: %w", err)
		}
	}
	if settings.SerialRows != nil {
		if out, err = out.serialCalibration(*settings.SerialRows); err != nil {
			return nil, fmt.Errorf("serial calibration: %w", err)
		}
	}
	return out, nil
}

func (d *ImagingCI) parallelCalibration(columns region.Pixels) (*ImagingCI, error) {
	l, err := d.layout.ExtractedLayoutForParallelCalibrationFrom(columns)
	if err != nil {
		return nil, err
	}
	return d.mapArrays(l, func(a *array.Array2D) (*array.Array2D, error) {
		return d.layout.Array2DForParallelCalibrationFrom(a, columns)
	})
}

func (d *ImagingCI) serialCalibration(rows region.Pixels) (*ImagingCI, error) {
	image, err := d.layout.Array2DForSerialCalibrationFrom(d.image, rows)
	if err != nil {
		return nil, err
	}
	l, err := d.layout.ExtractedLayoutForSerialCalibrationFrom(image.Shape(), rows)
	if err != nil {
		return nil, err
	}
	return d.mapArrays(l, func(a *array.Array2D) (*array.Array2D, error) {
		return d.layout.Array2DForSerialCalibrationFrom(a, rows)
	})
}

// mapArrays applies extract to every array of the dataset and pairs the
// results with l.
func (d *ImagingCI) mapArrays(l *layout.Layout2DCI, extract func(*array.Array2D) (*array.Array2D, error)) (*ImagingCI, error) {
	image, err := extract(d.image)
	if err != nil {
		return nil, err
	}
	noiseMap, err := extract(d.noiseMap)
	if err != nil {
		return nil, err
	}
	preCTI, err := extract(d.preCTIImage)
	if err != nil {
		return nil, err
	}
	var cosmicRays *array.Array2D
	if d.cosmicRayMap != nil {
		if cosmicRays, err = extract(d.cosmicRayMap); err != nil {
			return nil, err
		}
	}
	scaling := make([]*array.Array2D, len(d.noiseScalingMaps))
	for i, m := range d.noiseScalingMaps {
		if scaling[i], err = extract(m); err != nil {
			return nil, err
		}
	}
	return NewImagingCI(image, noiseMap, preCTI, l, ImagingCIOptions{
		CosmicRayMap:     cosmicRays,
		NoiseScalingMaps: scaling,
	})
}
