package array

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Axis selects the direction a 2D array is collapsed along when binning.
type Axis int

const (
	// CollapseRows averages down each column, giving one value per column.
	CollapseRows Axis = iota
	// CollapseColumns averages along each row, giving one value per row.
	CollapseColumns
)

// StackMean averages a list of same-shape arrays pixel by pixel. Each output
// pixel is the mean over only those inputs where it is unmasked; if it is
// masked in every input the output pixel is masked.
func StackMean(arrays []*Array2D) (*Array2D, error) {
	if len(arrays) == 0 {
		return nil, fmt.Errorf("%w: nothing to stack", ErrShape)
	}
	shape := arrays[0].Shape()
	for i, a := range arrays[1:] {
		if a.Shape() != shape {
			return nil, fmt.Errorf("%w: array %d has shape %v, expected %v", ErrShape, i+1, a.Shape(), shape)
		}
	}

	out := New2D(shape.Rows, shape.Columns)
	vals := make([]float64, 0, len(arrays))
	for y := 0; y < shape.Rows; y++ {
		for x := 0; x < shape.Columns; x++ {
			vals = vals[:0]
			for _, a := range arrays {
				if !a.IsMasked(y, x) {
					vals = append(vals, a.At(y, x))
				}
			}
			if len(vals) == 0 {
				out.SetMasked(y, x, true)
				continue
			}
			out.Set(y, x, stat.Mean(vals, nil))
		}
	}
	return out, nil
}

// BinMean collapses the array to a line by averaging the unmasked pixels along
// axis. A line entry with no unmasked contributors is masked.
func (a *Array2D) BinMean(axis Axis) *Array1D {
	shape := a.Shape()

	outer, inner := shape.Rows, shape.Columns
	at := func(o, i int) (float64, bool) { return a.At(o, i), a.IsMasked(o, i) }
	if axis == CollapseRows {
		outer, inner = shape.Columns, shape.Rows
		at = func(o, i int) (float64, bool) { return a.At(i, o), a.IsMasked(i, o) }
	}

	out := New1D(outer)
	vals := make([]float64, 0, inner)
	for o := 0; o < outer; o++ {
		vals = vals[:0]
		for i := 0; i < inner; i++ {
			if v, masked := at(o, i); !masked {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			out.SetMasked(o, true)
			continue
		}
		out.Set(o, stat.Mean(vals, nil))
	}
	return out
}
