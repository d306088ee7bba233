package dataset

import (
	"fmt"

	"cticalib/pkg/array"
	"cticalib/pkg/layout"
)

// DatasetLine is a 1D charge injection line and everything needed to fit it.
type DatasetLine struct {
	data              *array.Array1D
	noiseMap          *array.Array1D
	preCTILine        *array.Array1D
	cosmicRayLine     *array.Array1D
	noiseScalingLines []*array.Array1D
	layout            *layout.Layout1DLine
}

// DatasetLineOptions holds the optional parts of a DatasetLine.
type DatasetLineOptions struct {
	// CosmicRayLine flags cosmic ray hits with non-zero values.
	CosmicRayLine *array.Array1D
	// NoiseScalingLines are the lines hyper noise scalars multiply, in the
	// order the scalars are given to a fit.
	NoiseScalingLines []*array.Array1D
}

// NewDatasetLine validates and bundles a 1D dataset.
func NewDatasetLine(data, noiseMap, preCTILine *array.Array1D, l *layout.Layout1DLine, opts DatasetLineOptions) (*DatasetLine, error) {
	if data == nil || noiseMap == nil || preCTILine == nil || l == nil {
		return nil, fmt.Errorf("data, noise map, pre-CTI line and layout are all required")
	}
	named := map[string]*array.Array1D{"data": data, "noise map": noiseMap, "pre-CTI line": preCTILine}
	if opts.CosmicRayLine != nil {
		named["cosmic ray line"] = opts.CosmicRayLine
	}
	for i, s := range opts.NoiseScalingLines {
		named[fmt.Sprintf("noise scaling line %d", i)] = s
	}
	for name, a := range named {
		if a == nil {
			return nil, fmt.Errorf("%s is nil", name)
		}
		if a.Len() != l.Pixels() {
			return nil, fmt.Errorf("%w: %s has %d pixels, layout has %d", array.ErrShape, name, a.Len(), l.Pixels())
		}
	}

	for i := 0; i < data.Len(); i++ {
		if data.IsMasked(i) {
			continue
		}
		if v := noiseMap.At(i); !(v > 0) {
			return nil, fmt.Errorf("%w: pixel %d is %f", ErrNoiseMap, i, v)
		}
		for n, s := range opts.NoiseScalingLines {
			if v := s.At(i); !(v >= 0) {
				return nil, fmt.Errorf("%w: line %d pixel %d is %f", ErrNoiseScalingMap, n, i, v)
			}
		}
	}

	return &DatasetLine{
		data:              data,
		noiseMap:          noiseMap,
		preCTILine:        preCTILine,
		cosmicRayLine:     opts.CosmicRayLine,
		noiseScalingLines: append([]*array.Array1D(nil), opts.NoiseScalingLines...),
		layout:            l,
	}, nil
}

// Data returns the observed line. Its mask is the dataset mask.
func (d *DatasetLine) Data() *array.Array1D { return d.data }

// NoiseMap returns the per-pixel noise standard deviation.
func (d *DatasetLine) NoiseMap() *array.Array1D { return d.noiseMap }

// PreCTILine returns the injected charge before CTI.
func (d *DatasetLine) PreCTILine() *array.Array1D { return d.preCTILine }

// CosmicRayLine returns the cosmic ray line, or nil.
func (d *DatasetLine) CosmicRayLine() *array.Array1D { return d.cosmicRayLine }

// NoiseScalingLines returns the noise scaling lines in hyper noise order.
func (d *DatasetLine) NoiseScalingLines() []*array.Array1D {
	return append([]*array.Array1D(nil), d.noiseScalingLines...)
}

// Layout returns the line layout.
func (d *DatasetLine) Layout() *layout.Layout1DLine { return d.layout }

// ApplyMask returns a copy of the dataset with mask applied to every line.
func (d *DatasetLine) ApplyMask(mask []bool) (*DatasetLine, error) {
	apply := func(a *array.Array1D) (*array.Array1D, error) {
		if a == nil {
			return nil, nil
		}
		return a.WithMask(mask)
	}

	data, err := apply(d.data)
	if err != nil {
		return nil, err
	}
	noiseMap, err := apply(d.noiseMap)
	if err != nil {
		return nil, err
	}
	preCTI, err := apply(d.preCTILine)
	if err != nil {
		return nil, err
	}
	cosmicRays, err := apply(d.cosmicRayLine)
	if err != nil {
		return nil, err
	}
	scaling := make([]*array.Array1D, len(d.noiseScalingLines))
	for i, s := range d.noiseScalingLines {
		if scaling[i], err = apply(s); err != nil {
			return nil, err
		}
	}

	return NewDatasetLine(data, noiseMap, preCTI, d.layout, DatasetLineOptions{
		CosmicRayLine:     cosmicRays,
		NoiseScalingLines: scaling,
	})
}
