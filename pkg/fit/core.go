// Package fit compares charge injection data with a model of the data after
// CTI, producing residual and chi-squared maps and a Gaussian log likelihood.
//
// Masked pixels contribute nothing: their residual and chi-squared entries
// are zero and they are left out of every sum.
package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"cticalib/pkg/array"
	"cticalib/pkg/dataset"
)

// ErrHyperNoise is returned when hyper noise scalars cannot be applied.
var ErrHyperNoise = errors.New("invalid hyper noise")

// pixels holds the flattened quantities shared by 1D and 2D fits.
type pixels struct {
	data  []float64
	noise []float64
	model []float64
	mask  []bool

	residual           []float64
	normalizedResidual []float64
	chiSquared         []float64
}

func newPixels(data, noise, model []float64, mask []bool) (*pixels, error) {
	n := len(data)
	if len(noise) != n || len(model) != n || len(mask) != n {
		return nil, fmt.Errorf("%w: data %d, noise %d, model %d, mask %d", array.ErrShape, n, len(noise), len(model), len(mask))
	}

	p := &pixels{
		data:               data,
		noise:              noise,
		model:              model,
		mask:               mask,
		residual:           make([]float64, n),
		normalizedResidual: make([]float64, n),
		chiSquared:         make([]float64, n),
	}
	for i := 0; i < n; i++ {
		if mask[i] {
			continue
		}
		if !(noise[i] > 0) {
			return nil, fmt.Errorf("%w: fit pixel %d has noise %f", dataset.ErrNoiseMap, i, noise[i])
		}
		p.residual[i] = data[i] - model[i]
		p.normalizedResidual[i] = p.residual[i] / noise[i]
		p.chiSquared[i] = p.normalizedResidual[i] * p.normalizedResidual[i]
	}
	return p, nil
}

func (p *pixels) totalUnmasked() int {
	n := 0
	for _, m := range p.mask {
		if !m {
			n++
		}
	}
	return n
}

func (p *pixels) chiSquaredSum() float64 {
	return floats.Sum(p.chiSquared)
}

func (p *pixels) noiseNormalization() float64 {
	terms := make([]float64, 0, len(p.noise))
	for i, sigma := range p.noise {
		if p.mask[i] {
			continue
		}
		terms = append(terms, math.Log(2*math.Pi*sigma*sigma))
	}
	return floats.Sum(terms)
}

func (p *pixels) logLikelihood() float64 {
	return -0.5 * (p.chiSquaredSum() + p.noiseNormalization())
}

func (p *pixels) signalToNoise() []float64 {
	out := make([]float64, len(p.data))
	for i := range p.data {
		if !p.mask[i] {
			out[i] = p.data[i] / p.noise[i]
		}
	}
	return out
}
