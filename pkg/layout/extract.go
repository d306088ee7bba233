package layout

import (
	"fmt"

	"cticalib/pkg/array"
	"cticalib/pkg/region"
)

// ExtractorKind selects which calibration window an Extractor derives from
// each charge injection region.
type ExtractorKind int

const (
	// ParallelFrontEdge covers the first rows of each region.
	ParallelFrontEdge ExtractorKind = iota
	// ParallelTrails covers the rows following each region.
	ParallelTrails
	// SerialFrontEdge covers the first columns of each region.
	SerialFrontEdge
	// SerialTrails covers the columns following each region.
	SerialTrails
)

func (k ExtractorKind) String() string {
	switch k {
	case ParallelFrontEdge:
		return "parallel front edge"
	case ParallelTrails:
		return "parallel trails"
	case SerialFrontEdge:
		return "serial front edge"
	case SerialTrails:
		return "serial trails"
	default:
		return fmt.Sprintf("ExtractorKind(%d)", int(k))
	}
}

// parallel reports whether the extractor works along rows.
func (k ExtractorKind) parallel() bool {
	return k == ParallelFrontEdge || k == ParallelTrails
}

// Extractor derives front edge or trail windows from a list of charge
// injection regions and reduces the pixels inside them.
type Extractor struct {
	kind       ExtractorKind
	shape      region.Shape2D
	regionList []region.Region2D
}

// Extractor returns the extractor of the given kind for this layout.
func (l *Layout2DCI) Extractor(kind ExtractorKind) *Extractor {
	return &Extractor{kind: kind, shape: l.shape, regionList: l.RegionList()}
}

// Kind returns the extractor's kind.
func (e *Extractor) Kind() ExtractorKind { return e.kind }

// TotalRowsMin returns the height of the shortest region.
func (e *Extractor) TotalRowsMin() int {
	if len(e.regionList) == 0 {
		return 0
	}
	n := e.regionList[0].TotalRows()
	for _, r := range e.regionList[1:] {
		n = min(n, r.TotalRows())
	}
	return n
}

// TotalColumnsMin returns the width of the narrowest region.
func (e *Extractor) TotalColumnsMin() int {
	if len(e.regionList) == 0 {
		return 0
	}
	n := e.regionList[0].TotalColumns()
	for _, r := range e.regionList[1:] {
		n = min(n, r.TotalColumns())
	}
	return n
}

// RegionListFrom returns, per injection region, the window pixels away from
// the edge appropriate to the extractor kind. Windows that leave the frame
// return an error wrapping ErrLayout.
func (e *Extractor) RegionListFrom(pixels region.Pixels) ([]region.Region2D, error) {
	out := make([]region.Region2D, 0, len(e.regionList))
	for _, r := range e.regionList {
		var (
			derived region.Region2D
			err     error
		)
		switch e.kind {
		case ParallelFrontEdge:
			derived, err = r.ParallelFrontRegionFrom(pixels)
		case ParallelTrails:
			derived, err = r.ParallelTrailingRegionFrom(pixels)
		case SerialFrontEdge:
			derived, err = r.SerialFrontRegionFrom(pixels)
		case SerialTrails:
			derived, err = r.SerialTrailingRegionFrom(pixels)
		default:
			return nil, fmt.Errorf("%w: unknown extractor %v", ErrLayout, e.kind)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v window %v of region %s: %w", ErrLayout, e.kind, pixels, r, err)
		}
		if err := derived.CheckWithin(e.shape); err != nil {
			return nil, fmt.Errorf("%w: %v window %v of region %s: %w", ErrLayout, e.kind, pixels, r, err)
		}
		out = append(out, derived)
	}
	return out, nil
}

// Array2DListFrom slices the window of every region out of a, keeping the
// array's mask.
func (e *Extractor) Array2DListFrom(a *array.Array2D, pixels region.Pixels) ([]*array.Array2D, error) {
	if a.Shape() != e.shape {
		return nil, fmt.Errorf("%w: array shape %v does not match layout shape %v", array.ErrShape, a.Shape(), e.shape)
	}
	regions, err := e.RegionListFrom(pixels)
	if err != nil {
		return nil, err
	}
	out := make([]*array.Array2D, 0, len(regions))
	for _, r := range regions {
		sub, err := a.Slice(r)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

// StackedArray2DFrom averages the windows of every region pixel by pixel,
// skipping masked pixels.
func (e *Extractor) StackedArray2DFrom(a *array.Array2D, pixels region.Pixels) (*array.Array2D, error) {
	subs, err := e.Array2DListFrom(a, pixels)
	if err != nil {
		return nil, err
	}
	return array.StackMean(subs)
}

// BinnedArray1DFrom collapses the stacked windows to a line along the
// extraction direction: parallel extractors average over columns and serial
// extractors over rows.
func (e *Extractor) BinnedArray1DFrom(a *array.Array2D, pixels region.Pixels) (*array.Array1D, error) {
	stacked, err := e.StackedArray2DFrom(a, pixels)
	if err != nil {
		return nil, err
	}
	if e.kind.parallel() {
		return stacked.BinMean(array.CollapseColumns), nil
	}
	return stacked.BinMean(array.CollapseRows), nil
}

// AddToArray returns newArray with the pixels of a inside every window added
// on at their original coordinates.
func (e *Extractor) AddToArray(newArray, a *array.Array2D, pixels region.Pixels) (*array.Array2D, error) {
	if newArray.Shape() != a.Shape() {
		return nil, fmt.Errorf("%w: %v and %v", array.ErrShape, newArray.Shape(), a.Shape())
	}
	regions, err := e.RegionListFrom(pixels)
	if err != nil {
		return nil, err
	}
	native := a.Native()
	out := newArray.Clone()
	for _, r := range regions {
		for y := r.Y0; y < r.Y1; y++ {
			for x := r.X0; x < r.X1; x++ {
				out.Set(y, x, out.At(y, x)+native.At(y, x))
			}
		}
	}
	return out, nil
}
