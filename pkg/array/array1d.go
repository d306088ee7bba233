package array

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Array1D is a line of pixel values with a pixel mask.
type Array1D struct {
	values []float64
	mask   []bool
}

// New1D creates an unmasked line of zeros.
func New1D(pixels int) *Array1D {
	return &Array1D{
		values: make([]float64, pixels),
		mask:   make([]bool, pixels),
	}
}

// From1D creates an unmasked line holding a copy of values.
func From1D(values []float64) *Array1D {
	return &Array1D{
		values: append([]float64(nil), values...),
		mask:   make([]bool, len(values)),
	}
}

// From1DMasked creates a line from values and a mask of the same length.
func From1DMasked(values []float64, mask []bool) (*Array1D, error) {
	if len(values) != len(mask) {
		return nil, fmt.Errorf("%w: %d values and %d mask entries", ErrShape, len(values), len(mask))
	}
	return &Array1D{
		values: append([]float64(nil), values...),
		mask:   append([]bool(nil), mask...),
	}, nil
}

// Len returns the number of pixels.
func (a *Array1D) Len() int { return len(a.values) }

// At returns the raw value at pixel i.
func (a *Array1D) At(i int) float64 { return a.values[i] }

// Set sets the raw value at pixel i.
func (a *Array1D) Set(i int, v float64) { a.values[i] = v }

// IsMasked reports whether pixel i is masked.
func (a *Array1D) IsMasked(i int) bool { return a.mask[i] }

// SetMasked sets the mask flag of pixel i.
func (a *Array1D) SetMasked(i int, masked bool) { a.mask[i] = masked }

// Values returns a copy of the raw values.
func (a *Array1D) Values() []float64 { return append([]float64(nil), a.values...) }

// Mask returns a copy of the mask.
func (a *Array1D) Mask() []bool { return append([]bool(nil), a.mask...) }

// Native returns a copy of the values with masked pixels set to zero.
func (a *Array1D) Native() []float64 {
	out := a.Values()
	for i, m := range a.mask {
		if m {
			out[i] = 0
		}
	}
	return out
}

// WithMask returns a copy of the line using mask instead of its own.
func (a *Array1D) WithMask(mask []bool) (*Array1D, error) {
	return From1DMasked(a.values, mask)
}

// Clone returns a deep copy.
func (a *Array1D) Clone() *Array1D {
	out, _ := From1DMasked(a.values, a.mask)
	return out
}

// TotalUnmasked returns the number of unmasked pixels.
func (a *Array1D) TotalUnmasked() int {
	n := 0
	for _, m := range a.mask {
		if !m {
			n++
		}
	}
	return n
}

// UnmaskedValues returns the unmasked values in order.
func (a *Array1D) UnmaskedValues() []float64 {
	out := make([]float64, 0, len(a.values))
	for i, v := range a.values {
		if !a.mask[i] {
			out = append(out, v)
		}
	}
	return out
}

// Sum returns the sum of the unmasked values.
func (a *Array1D) Sum() float64 {
	return floats.Sum(a.UnmaskedValues())
}

// Mean returns the mean of the unmasked values and false if every pixel is
// masked.
func (a *Array1D) Mean() (float64, bool) {
	vals := a.UnmaskedValues()
	if len(vals) == 0 {
		return 0, false
	}
	return stat.Mean(vals, nil), true
}

// Add returns a+b, masked wherever either input is.
func (a *Array1D) Add(b *Array1D) (*Array1D, error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("%w: lengths %d and %d", ErrShape, a.Len(), b.Len())
	}
	out := a.Clone()
	floats.Add(out.values, b.values)
	for i, m := range b.mask {
		out.mask[i] = out.mask[i] || m
	}
	return out, nil
}

// Sub returns a-b, masked wherever either input is.
func (a *Array1D) Sub(b *Array1D) (*Array1D, error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("%w: lengths %d and %d", ErrShape, a.Len(), b.Len())
	}
	out := a.Clone()
	floats.Sub(out.values, b.values)
	for i, m := range b.mask {
		out.mask[i] = out.mask[i] || m
	}
	return out, nil
}

// Scale returns s*a with a's mask.
func (a *Array1D) Scale(s float64) *Array1D {
	out := a.Clone()
	floats.Scale(s, out.values)
	return out
}
