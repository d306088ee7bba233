package fit

import (
	"fmt"

	"cticalib/pkg/array"
)

// HyperNoiseScalar inflates the noise map by ScaleFactor times a noise
// scaling map. The scaled map is added to the noise standard deviation, not
// to the variance.
type HyperNoiseScalar struct {
	ScaleFactor float64
}

// ScaledNoiseMapFrom returns ScaleFactor * noiseScalingMap.
func (h HyperNoiseScalar) ScaledNoiseMapFrom(noiseScalingMap *array.Array2D) *array.Array2D {
	return noiseScalingMap.Scale(h.ScaleFactor)
}

// ScaledNoiseLineFrom returns ScaleFactor * noiseScalingLine.
func (h HyperNoiseScalar) ScaledNoiseLineFrom(noiseScalingLine *array.Array1D) *array.Array1D {
	return noiseScalingLine.Scale(h.ScaleFactor)
}

// HyperNoiseCollection names one optional scalar per region category. Its
// List order matches NoiseScalingMapListFrom.
type HyperNoiseCollection struct {
	RegionsCI              *HyperNoiseScalar
	ParallelTrails         *HyperNoiseScalar
	SerialTrails           *HyperNoiseScalar
	SerialOverscanNoTrails *HyperNoiseScalar
}

// List returns the scalars in noise scaling map order. Unset scalars are nil
// and skip their map.
func (c HyperNoiseCollection) List() []*HyperNoiseScalar {
	return []*HyperNoiseScalar{c.RegionsCI, c.ParallelTrails, c.SerialTrails, c.SerialOverscanNoTrails}
}

func checkScalars(scalars []*HyperNoiseScalar, maps int) error {
	for i, s := range scalars {
		if s == nil {
			continue
		}
		if i >= maps {
			return fmt.Errorf("%w: scalar %d has no noise scaling map, only %d given", ErrHyperNoise, i, maps)
		}
		if s.ScaleFactor < 0 {
			return fmt.Errorf("%w: scalar %d has negative scale factor %f", ErrHyperNoise, i, s.ScaleFactor)
		}
	}
	return nil
}

// HyperNoiseMapFrom returns noiseMap plus the sum of every scalar applied to
// its matching noise scaling map. Nil scalars are skipped.
func HyperNoiseMapFrom(noiseMap *array.Array2D, scalars []*HyperNoiseScalar, noiseScalingMaps []*array.Array2D) (*array.Array2D, error) {
	if err := checkScalars(scalars, len(noiseScalingMaps)); err != nil {
		return nil, err
	}
	out := noiseMap
	for i, s := range scalars {
		if s == nil {
			continue
		}
		var err error
		if out, err = out.Add(s.ScaledNoiseMapFrom(noiseScalingMaps[i])); err != nil {
			return nil, err
		}
	}
	// Scaling maps may carry their own masks; the noise map keeps the dataset's.
	return out.WithMask(noiseMap.Mask())
}

// HyperNoiseLineFrom is the 1D form of HyperNoiseMapFrom.
func HyperNoiseLineFrom(noiseLine *array.Array1D, scalars []*HyperNoiseScalar, noiseScalingLines []*array.Array1D) (*array.Array1D, error) {
	if err := checkScalars(scalars, len(noiseScalingLines)); err != nil {
		return nil, err
	}
	out := noiseLine
	for i, s := range scalars {
		if s == nil {
			continue
		}
		var err error
		if out, err = out.Add(s.ScaledNoiseLineFrom(noiseScalingLines[i])); err != nil {
			return nil, err
		}
	}
	return out.WithMask(noiseLine.Mask())
}
