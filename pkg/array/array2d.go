// Package array provides the masked 2D and 1D pixel arrays that charge
// injection images, noise maps and extracted calibration windows are stored
// in.
//
// Every array carries a mask alongside its values; a true mask entry means the
// pixel is excluded from reductions and fits. Reductions skip masked entries
// explicitly and a reduced value is itself masked when no unmasked pixel
// contributes to it, so masking propagates instead of silently becoming zero.
package array

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"cticalib/pkg/region"
)

// ErrShape is returned when arrays that must share a shape do not.
var ErrShape = errors.New("array shape mismatch")

// Array2D is a dense 2D array of pixel values with a pixel mask.
type Array2D struct {
	values *mat.Dense
	// mask is row-major, true marks a masked pixel
	mask []bool
}

// New2D creates an unmasked array of zeros. rows and columns must be positive.
func New2D(rows, columns int) *Array2D {
	return &Array2D{
		values: mat.NewDense(rows, columns, nil),
		mask:   make([]bool, rows*columns),
	}
}

// Full2D creates an unmasked array with every pixel set to value.
func Full2D(rows, columns int, value float64) *Array2D {
	a := New2D(rows, columns)
	for y := 0; y < rows; y++ {
		for x := 0; x < columns; x++ {
			a.values.Set(y, x, value)
		}
	}
	return a
}

// FromRows creates an unmasked array from row slices, which must all have the
// same length.
func FromRows(rows [][]float64) (*Array2D, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrShape)
	}
	columns := len(rows[0])
	data := make([]float64, 0, len(rows)*columns)
	for i, row := range rows {
		if len(row) != columns {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrShape, i, len(row), columns)
		}
		data = append(data, row...)
	}
	return &Array2D{
		values: mat.NewDense(len(rows), columns, data),
		mask:   make([]bool, len(data)),
	}, nil
}

// MustFromRows is like FromRows but panics on ragged input.
func MustFromRows(rows [][]float64) *Array2D {
	a, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return a
}

// FromDense wraps a copy of values with the given row-major mask. A nil mask
// leaves every pixel unmasked.
func FromDense(values mat.Matrix, mask []bool) (*Array2D, error) {
	rows, columns := values.Dims()
	if mask == nil {
		mask = make([]bool, rows*columns)
	} else if len(mask) != rows*columns {
		return nil, fmt.Errorf("%w: mask has %d entries for a %dx%d array", ErrShape, len(mask), rows, columns)
	}
	return &Array2D{
		values: mat.DenseCopyOf(values),
		mask:   append([]bool(nil), mask...),
	}, nil
}

// FromRowMajor creates an array from row-major values and mask. A nil mask
// leaves every pixel unmasked.
func FromRowMajor(shape region.Shape2D, values []float64, mask []bool) (*Array2D, error) {
	if len(values) != shape.Rows*shape.Columns {
		return nil, fmt.Errorf("%w: %d values for a %dx%d array", ErrShape, len(values), shape.Rows, shape.Columns)
	}
	return FromDense(mat.NewDense(shape.Rows, shape.Columns, append([]float64(nil), values...)), mask)
}

// Shape returns the array's (rows, columns).
func (a *Array2D) Shape() region.Shape2D {
	rows, columns := a.values.Dims()
	return region.Shape2D{Rows: rows, Columns: columns}
}

// Size returns the total number of pixels.
func (a *Array2D) Size() int {
	return len(a.mask)
}

// At returns the raw value at (y, x), regardless of the mask.
func (a *Array2D) At(y, x int) float64 {
	return a.values.At(y, x)
}

// Set sets the raw value at (y, x).
func (a *Array2D) Set(y, x int, v float64) {
	a.values.Set(y, x, v)
}

// IsMasked reports whether pixel (y, x) is masked.
func (a *Array2D) IsMasked(y, x int) bool {
	_, columns := a.values.Dims()
	return a.mask[y*columns+x]
}

// SetMasked sets the mask flag of pixel (y, x).
func (a *Array2D) SetMasked(y, x int, masked bool) {
	_, columns := a.values.Dims()
	a.mask[y*columns+x] = masked
}

// Mask returns a row-major copy of the mask.
func (a *Array2D) Mask() []bool {
	return append([]bool(nil), a.mask...)
}

// TotalUnmasked returns the number of unmasked pixels.
func (a *Array2D) TotalUnmasked() int {
	n := 0
	for _, m := range a.mask {
		if !m {
			n++
		}
	}
	return n
}

// WithMask returns a copy of the array using mask instead of its own.
func (a *Array2D) WithMask(mask []bool) (*Array2D, error) {
	return FromDense(a.values, mask)
}

// Clone returns a deep copy.
func (a *Array2D) Clone() *Array2D {
	return &Array2D{
		values: mat.DenseCopyOf(a.values),
		mask:   append([]bool(nil), a.mask...),
	}
}

// ZerosLike returns a zero array with the same shape and mask.
func (a *Array2D) ZerosLike() *Array2D {
	shape := a.Shape()
	out := New2D(shape.Rows, shape.Columns)
	copy(out.mask, a.mask)
	return out
}

// Native returns a copy of the values with masked pixels set to zero.
func (a *Array2D) Native() *mat.Dense {
	out := mat.DenseCopyOf(a.values)
	shape := a.Shape()
	for y := 0; y < shape.Rows; y++ {
		for x := 0; x < shape.Columns; x++ {
			if a.mask[y*shape.Columns+x] {
				out.Set(y, x, 0)
			}
		}
	}
	return out
}

// RowMajor returns a row-major copy of the raw values.
func (a *Array2D) RowMajor() []float64 {
	shape := a.Shape()
	out := make([]float64, 0, a.Size())
	for y := 0; y < shape.Rows; y++ {
		out = append(out, a.values.RawRowView(y)...)
	}
	return out
}

// Slice returns a copy of the pixels and mask inside r.
func (a *Array2D) Slice(r region.Region2D) (*Array2D, error) {
	if err := r.CheckWithin(a.Shape()); err != nil {
		return nil, err
	}
	view := a.values.Slice(r.Y0, r.Y1, r.X0, r.X1)
	columns := a.Shape().Columns
	mask := make([]bool, 0, r.TotalRows()*r.TotalColumns())
	for y := r.Y0; y < r.Y1; y++ {
		mask = append(mask, a.mask[y*columns+r.X0:y*columns+r.X1]...)
	}
	return &Array2D{values: mat.DenseCopyOf(view), mask: mask}, nil
}

// Paste returns a copy of the array with sub written into r. The pasted
// pixels take their mask from sub.
func (a *Array2D) Paste(sub *Array2D, r region.Region2D) (*Array2D, error) {
	if err := r.CheckWithin(a.Shape()); err != nil {
		return nil, err
	}
	if sub.Shape() != r.Shape() {
		return nil, fmt.Errorf("%w: cannot paste %v into region %s", ErrShape, sub.Shape(), r)
	}
	out := a.Clone()
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			out.values.Set(y, x, sub.At(y-r.Y0, x-r.X0))
			out.SetMasked(y, x, sub.IsMasked(y-r.Y0, x-r.X0))
		}
	}
	return out, nil
}

// Rotated returns the array flipped between the raw frame of corner and the
// native orientation.
func (a *Array2D) Rotated(corner region.ROECorner) *Array2D {
	shape := a.Shape()
	out := New2D(shape.Rows, shape.Columns)
	for y := 0; y < shape.Rows; y++ {
		for x := 0; x < shape.Columns; x++ {
			ny, nx := y, x
			if corner.FlipsRows() {
				ny = shape.Rows - 1 - y
			}
			if corner.FlipsColumns() {
				nx = shape.Columns - 1 - x
			}
			out.values.Set(ny, nx, a.values.At(y, x))
			out.SetMasked(ny, nx, a.IsMasked(y, x))
		}
	}
	return out
}

// Add returns a+b. The result is masked wherever either input is.
func (a *Array2D) Add(b *Array2D) (*Array2D, error) {
	if a.Shape() != b.Shape() {
		return nil, fmt.Errorf("%w: %v and %v", ErrShape, a.Shape(), b.Shape())
	}
	out := a.Clone()
	out.values.Add(a.values, b.values)
	for i, m := range b.mask {
		out.mask[i] = out.mask[i] || m
	}
	return out, nil
}

// Sub returns a-b. The result is masked wherever either input is.
func (a *Array2D) Sub(b *Array2D) (*Array2D, error) {
	if a.Shape() != b.Shape() {
		return nil, fmt.Errorf("%w: %v and %v", ErrShape, a.Shape(), b.Shape())
	}
	out := a.Clone()
	out.values.Sub(a.values, b.values)
	for i, m := range b.mask {
		out.mask[i] = out.mask[i] || m
	}
	return out, nil
}

// Scale returns s*a with a's mask.
func (a *Array2D) Scale(s float64) *Array2D {
	out := a.Clone()
	out.values.Scale(s, a.values)
	return out
}

// Sum returns the sum of all unmasked pixels.
func (a *Array2D) Sum() float64 {
	return floats.Sum(a.UnmaskedValues())
}

// UnmaskedValues returns the unmasked pixel values in row-major order.
func (a *Array2D) UnmaskedValues() []float64 {
	raw := a.RowMajor()
	out := make([]float64, 0, len(raw))
	for i, v := range raw {
		if !a.mask[i] {
			out = append(out, v)
		}
	}
	return out
}
