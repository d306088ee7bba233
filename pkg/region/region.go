// Package region provides the rectangular pixel regions used to describe where
// charge was injected on a CCD, and the pure derivations used to find front
// edges, trails and calibration windows relative to those regions.
//
// All coordinates are half-open pixel bounds (y0, y1, x0, x1). A Region2D is a
// value type: every derivation returns a new region and never modifies the
// receiver.
package region

import (
	"errors"
	"fmt"
)

// ErrRegion is returned when a region has invalid coordinates or does not fit
// inside the frame it is used with.
var ErrRegion = errors.New("invalid region")

// Region2D is a rectangular pixel region with half-open bounds.
type Region2D struct {
	Y0, Y1 int
	X0, X1 int
}

// Shape2D is the (rows, columns) shape of a 2D frame.
type Shape2D struct {
	Rows    int
	Columns int
}

// Pixels is a (start, end) pixel offset pair used by the region derivations.
// A negative start reaches before the edge of the base region.
type Pixels [2]int

// New creates a validated region.
func New(y0, y1, x0, x1 int) (Region2D, error) {
	if y0 < 0 || y1 < 0 || x0 < 0 || x1 < 0 {
		return Region2D{}, fmt.Errorf("%w: coordinate of (%d, %d, %d, %d) is negative", ErrRegion, y0, y1, x0, x1)
	}
	if y0 >= y1 {
		return Region2D{}, fmt.Errorf("%w: first row %d is not below second row %d", ErrRegion, y0, y1)
	}
	if x0 >= x1 {
		return Region2D{}, fmt.Errorf("%w: first column %d is not below second column %d", ErrRegion, x0, x1)
	}
	return Region2D{Y0: y0, Y1: y1, X0: x0, X1: x1}, nil
}

// MustNew is like New but panics on invalid input. Intended for fixed
// geometry in tests and examples.
func MustNew(y0, y1, x0, x1 int) Region2D {
	r, err := New(y0, y1, x0, x1)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Region2D) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", r.Y0, r.Y1, r.X0, r.X1)
}

// TotalRows returns the number of rows spanned by the region.
func (r Region2D) TotalRows() int { return r.Y1 - r.Y0 }

// TotalColumns returns the number of columns spanned by the region.
func (r Region2D) TotalColumns() int { return r.X1 - r.X0 }

// Shape returns the region's (rows, columns).
func (r Region2D) Shape() Shape2D {
	return Shape2D{Rows: r.TotalRows(), Columns: r.TotalColumns()}
}

// FitsWithin reports whether the region lies entirely inside a frame of the
// given shape.
func (r Region2D) FitsWithin(shape Shape2D) bool {
	return r.Y1 <= shape.Rows && r.X1 <= shape.Columns
}

// CheckWithin returns an error wrapping ErrRegion if the region exceeds shape.
func (r Region2D) CheckWithin(shape Shape2D) error {
	if !r.FitsWithin(shape) {
		return fmt.Errorf("%w: region %s exceeds frame shape (%d, %d)", ErrRegion, r, shape.Rows, shape.Columns)
	}
	return nil
}

// ParallelFrontRegionFrom returns the rows [y0+start, y0+end) of the region.
func (r Region2D) ParallelFrontRegionFrom(pixels Pixels) (Region2D, error) {
	return New(r.Y0+pixels[0], r.Y0+pixels[1], r.X0, r.X1)
}

// ParallelTrailingRegionFrom returns the rows [y1+start, y1+end) following the
// region, where parallel EPER trails are found.
func (r Region2D) ParallelTrailingRegionFrom(pixels Pixels) (Region2D, error) {
	return New(r.Y1+pixels[0], r.Y1+pixels[1], r.X0, r.X1)
}

// SerialFrontRegionFrom returns the columns [x0+start, x0+end) of the region.
func (r Region2D) SerialFrontRegionFrom(pixels Pixels) (Region2D, error) {
	return New(r.Y0, r.Y1, r.X0+pixels[0], r.X0+pixels[1])
}

// SerialTrailingRegionFrom returns the columns [x1+start, x1+end) following the
// region, where serial EPER trails are found.
func (r Region2D) SerialTrailingRegionFrom(pixels Pixels) (Region2D, error) {
	return New(r.Y0, r.Y1, r.X1+pixels[0], r.X1+pixels[1])
}

// ParallelSideNearestReadOutRegionFrom returns every row of the frame over the
// columns [x0+start, x0+end) of the region.
func (r Region2D) ParallelSideNearestReadOutRegionFrom(shape Shape2D, columns Pixels) (Region2D, error) {
	return New(0, shape.Rows, r.X0+columns[0], r.X0+columns[1])
}

// SerialEntireRowsOfRegionFrom returns the region's rows across the full width
// of the frame.
func (r Region2D) SerialEntireRowsOfRegionFrom(shape Shape2D) (Region2D, error) {
	return New(r.Y0, r.Y1, 0, shape.Columns)
}

// Extracted maps the region into the local coordinates of extraction. The
// second return value is false when the two regions do not overlap.
func (r Region2D) Extracted(extraction Region2D) (Region2D, bool) {
	y0, y1, ok := extractedBounds(r.Y0, r.Y1, extraction.Y0, extraction.Y1)
	if !ok {
		return Region2D{}, false
	}
	x0, x1, ok := extractedBounds(r.X0, r.X1, extraction.X0, extraction.X1)
	if !ok {
		return Region2D{}, false
	}
	return Region2D{Y0: y0, Y1: y1, X0: x0, X1: x1}, true
}

func extractedBounds(lo, hi, extractLo, extractHi int) (int, int, bool) {
	start := max(lo, extractLo)
	end := min(hi, extractHi)
	if start >= end {
		return 0, 0, false
	}
	return start - extractLo, end - extractLo, true
}

// Region1D is a half-open interval of pixels in a 1D line.
type Region1D struct {
	X0, X1 int
}

// New1D creates a validated 1D region.
func New1D(x0, x1 int) (Region1D, error) {
	if x0 < 0 || x1 < 0 {
		return Region1D{}, fmt.Errorf("%w: coordinate of (%d, %d) is negative", ErrRegion, x0, x1)
	}
	if x0 >= x1 {
		return Region1D{}, fmt.Errorf("%w: first pixel %d is not below second pixel %d", ErrRegion, x0, x1)
	}
	return Region1D{X0: x0, X1: x1}, nil
}

// TotalPixels returns the length of the region.
func (r Region1D) TotalPixels() int { return r.X1 - r.X0 }

// FrontRegionFrom returns the pixels [x0+start, x0+end) of the region.
func (r Region1D) FrontRegionFrom(pixels Pixels) (Region1D, error) {
	return New1D(r.X0+pixels[0], r.X0+pixels[1])
}

// TrailingRegionFrom returns the pixels [x1+start, x1+end) after the region.
func (r Region1D) TrailingRegionFrom(pixels Pixels) (Region1D, error) {
	return New1D(r.X1+pixels[0], r.X1+pixels[1])
}
