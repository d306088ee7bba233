package analysis

import (
	"errors"

	"cticalib/pkg/array"
	"cticalib/pkg/fit"
)

// ErrNoSamples is returned when a result holds no samples to pick from.
var ErrNoSamples = errors.New("no samples")

// Samples is the output of a search.
type Samples interface {
	MaxLogLikelihoodInstance() (Instance, error)
}

// Sample is one scored instance.
type Sample struct {
	Instance      Instance
	LogLikelihood float64
}

// SampleList is a Samples backed by a slice, as produced by a grid or a
// simple sampler.
type SampleList []Sample

// MaxLogLikelihoodInstance returns the first instance with the highest log
// likelihood.
func (s SampleList) MaxLogLikelihoodInstance() (Instance, error) {
	if len(s) == 0 {
		return Instance{}, ErrNoSamples
	}
	best := 0
	for i := range s {
		if s[i].LogLikelihood > s[best].LogLikelihood {
			best = i
		}
	}
	return s[best].Instance, nil
}

// Result ties a search's samples to the analysis that produced them, so the
// best fit can be rebuilt.
type Result struct {
	Samples
	analysis *AnalysisImagingCI
}

// MaxLogLikelihoodFit refits the dataset with the best instance.
func (r *Result) MaxLogLikelihoodFit() (*fit.FitImagingCI, error) {
	instance, err := r.MaxLogLikelihoodInstance()
	if err != nil {
		return nil, err
	}
	return r.analysis.FitFrom(instance)
}

// NoiseScalingMapList returns the noise scaling maps of the best fit, ready
// to attach to the dataset for a hyper noise search.
func (r *Result) NoiseScalingMapList() ([]*array.Array2D, error) {
	f, err := r.MaxLogLikelihoodFit()
	if err != nil {
		return nil, err
	}
	return fit.NoiseScalingMapListFrom(f)
}
