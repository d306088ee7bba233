package region

import (
	"fmt"
	"sort"
)

// ROECorner identifies which corner of a quadrant the readout electronics sit
// in. Row 1 means the parallel register is adjacent to row 0 of the frame and
// Column 0 means the serial register is read out through column 0.
//
// The native orientation used by every extraction routine is (1, 0): parallel
// trails extend to higher rows and serial trails to higher columns.
type ROECorner struct {
	Row    int
	Column int
}

var (
	ROETopLeft     = ROECorner{Row: 0, Column: 0}
	ROEBottomLeft  = ROECorner{Row: 1, Column: 0}
	ROETopRight    = ROECorner{Row: 0, Column: 1}
	ROEBottomRight = ROECorner{Row: 1, Column: 1}
)

// Valid reports whether the corner is one of the four supported values.
func (c ROECorner) Valid() bool {
	return (c.Row == 0 || c.Row == 1) && (c.Column == 0 || c.Column == 1)
}

// FlipsRows reports whether frames read from this corner must be flipped
// up-down to reach the native orientation.
func (c ROECorner) FlipsRows() bool { return c.Row == 0 }

// FlipsColumns reports whether frames read from this corner must be flipped
// left-right to reach the native orientation.
func (c ROECorner) FlipsColumns() bool { return c.Column == 1 }

// RotatedFromROECorner maps a region between the raw frame of the given corner
// and the native orientation. The mapping is its own inverse.
func (r Region2D) RotatedFromROECorner(shape Shape2D, corner ROECorner) Region2D {
	out := r
	if corner.FlipsRows() {
		out.Y0, out.Y1 = shape.Rows-r.Y1, shape.Rows-r.Y0
	}
	if corner.FlipsColumns() {
		out.X0, out.X1 = shape.Columns-r.X1, shape.Columns-r.X0
	}
	return out
}

// RegionListCIFrom generates the charge injection regions of a quadrant.
//
// injectionTotal blocks of injectionOn rows are placed with a pitch of
// injectionOn+injectionOff rows, starting at the row nearest the parallel
// readout. Columns span the image area between the serial prescan and the
// serial overscan. The returned regions are in the raw frame of roeCorner and
// sorted by their first row.
func RegionListCIFrom(
	injectionOn, injectionOff, injectionTotal int,
	parallelSize, serialSize, serialPrescanSize, serialOverscanSize int,
	roeCorner ROECorner,
) ([]Region2D, error) {
	if !roeCorner.Valid() {
		return nil, fmt.Errorf("%w: unsupported readout corner (%d, %d)", ErrRegion, roeCorner.Row, roeCorner.Column)
	}
	if injectionOn <= 0 || injectionTotal <= 0 || injectionOff < 0 {
		return nil, fmt.Errorf("%w: injection on=%d off=%d total=%d", ErrRegion, injectionOn, injectionOff, injectionTotal)
	}

	shape := Shape2D{Rows: parallelSize, Columns: serialSize}
	x0 := serialPrescanSize
	x1 := serialSize - serialOverscanSize

	regions := make([]Region2D, 0, injectionTotal)
	for i := 0; i < injectionTotal; i++ {
		y0 := i * (injectionOn + injectionOff)
		native, err := New(y0, y0+injectionOn, x0, x1)
		if err != nil {
			return nil, err
		}
		if err := native.CheckWithin(shape); err != nil {
			return nil, err
		}
		regions = append(regions, native.RotatedFromROECorner(shape, roeCorner))
	}

	sort.Slice(regions, func(i, j int) bool { return regions[i].Y0 < regions[j].Y0 })
	return regions, nil
}
