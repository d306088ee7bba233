package layout

import (
	"fmt"

	"cticalib/pkg/array"
	"cticalib/pkg/region"
)

// LineRegion names a 1D diagnostic line that can be extracted from a frame.
type LineRegion string

const (
	LineParallelFrontEdge LineRegion = "parallel_front_edge"
	LineParallelTrails    LineRegion = "parallel_trails"
	LineSerialFrontEdge   LineRegion = "serial_front_edge"
	LineSerialTrails      LineRegion = "serial_trails"
)

// LineRegions lists every supported line in a stable order.
var LineRegions = []LineRegion{
	LineParallelFrontEdge,
	LineParallelTrails,
	LineSerialFrontEdge,
	LineSerialTrails,
}

// ParseLineRegion validates a line region name.
func ParseLineRegion(name string) (LineRegion, error) {
	for _, lr := range LineRegions {
		if string(lr) == name {
			return lr, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrPlotting, name)
}

// ExtractLineFrom bins the named calibration window of a into a line. The
// window sizes are the largest ones the layout allows for every region.
func (l *Layout2DCI) ExtractLineFrom(a *array.Array2D, lineRegion LineRegion) (*array.Array1D, error) {
	var (
		kind   ExtractorKind
		pixels region.Pixels
	)
	switch lineRegion {
	case LineParallelFrontEdge:
		kind, pixels = ParallelFrontEdge, region.Pixels{0, l.SmallestParallelRowsWithinCIRegions()}
	case LineParallelTrails:
		kind, pixels = ParallelTrails, region.Pixels{0, l.SmallestParallelTrailsRowsToArrayEdge()}
	case LineSerialFrontEdge:
		kind = SerialFrontEdge
		pixels = region.Pixels{0, l.Extractor(SerialFrontEdge).TotalColumnsMin()}
	case LineSerialTrails:
		kind, pixels = SerialTrails, region.Pixels{0, l.SerialTrailsColumns()}
	default:
		return nil, fmt.Errorf("%w: %q", ErrPlotting, lineRegion)
	}
	return l.Extractor(kind).BinnedArray1DFrom(a, pixels)
}

// Layout1DLine is the geometry of a 1D charge injection line, such as a
// single column of a frame.
type Layout1DLine struct {
	pixels        int
	regionList    []region.Region1D
	normalization float64
}

// NewLayout1DLine creates a validated line layout.
func NewLayout1DLine(pixels int, regionList []region.Region1D, normalization float64) (*Layout1DLine, error) {
	if pixels <= 0 {
		return nil, fmt.Errorf("%w: line length %d must be positive", ErrLayout, pixels)
	}
	for _, r := range regionList {
		if _, err := region.New1D(r.X0, r.X1); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLayout, err)
		}
		if r.X1 > pixels {
			return nil, fmt.Errorf("%w: region (%d, %d) exceeds line length %d", ErrLayout, r.X0, r.X1, pixels)
		}
	}
	return &Layout1DLine{
		pixels:        pixels,
		regionList:    append([]region.Region1D(nil), regionList...),
		normalization: normalization,
	}, nil
}

// Pixels returns the line length.
func (l *Layout1DLine) Pixels() int { return l.pixels }

// RegionList returns a copy of the injection regions.
func (l *Layout1DLine) RegionList() []region.Region1D {
	return append([]region.Region1D(nil), l.regionList...)
}

// Normalization returns the injected charge level.
func (l *Layout1DLine) Normalization() float64 { return l.normalization }

// PreCTILineFrom returns the line as injected, before any CTI: normalization
// inside regions and zero elsewhere.
func (l *Layout1DLine) PreCTILineFrom() *array.Array1D {
	out := array.New1D(l.pixels)
	for _, r := range l.regionList {
		for x := r.X0; x < r.X1; x++ {
			out.Set(x, l.normalization)
		}
	}
	return out
}

func (l *Layout1DLine) checkLength(a *array.Array1D) error {
	if a.Len() != l.pixels {
		return fmt.Errorf("%w: line length %d does not match layout length %d", array.ErrShape, a.Len(), l.pixels)
	}
	return nil
}

// Array1DOfRegionsFrom keeps only the pixels inside injection regions.
func (l *Layout1DLine) Array1DOfRegionsFrom(a *array.Array1D) (*array.Array1D, error) {
	if err := l.checkLength(a); err != nil {
		return nil, err
	}
	out, _ := array.From1DMasked(make([]float64, a.Len()), a.Mask())
	for _, r := range l.regionList {
		for x := r.X0; x < r.X1; x++ {
			out.Set(x, a.At(x))
		}
	}
	return out, nil
}

// Array1DOfNonRegionsFrom zeroes the pixels inside injection regions.
func (l *Layout1DLine) Array1DOfNonRegionsFrom(a *array.Array1D) (*array.Array1D, error) {
	if err := l.checkLength(a); err != nil {
		return nil, err
	}
	out := a.Clone()
	for _, r := range l.regionList {
		for x := r.X0; x < r.X1; x++ {
			out.Set(x, 0)
		}
	}
	return out, nil
}

// Array1DOfFrontEdgesFrom keeps only the front edge window of every region.
func (l *Layout1DLine) Array1DOfFrontEdgesFrom(a *array.Array1D, pixels region.Pixels) (*array.Array1D, error) {
	return l.windowsFrom(a, pixels, region.Region1D.FrontRegionFrom)
}

// Array1DOfTrailsFrom keeps only the trail window after every region.
func (l *Layout1DLine) Array1DOfTrailsFrom(a *array.Array1D, pixels region.Pixels) (*array.Array1D, error) {
	return l.windowsFrom(a, pixels, region.Region1D.TrailingRegionFrom)
}

func (l *Layout1DLine) windowsFrom(a *array.Array1D, pixels region.Pixels, derive func(region.Region1D, region.Pixels) (region.Region1D, error)) (*array.Array1D, error) {
	if err := l.checkLength(a); err != nil {
		return nil, err
	}
	out, _ := array.From1DMasked(make([]float64, a.Len()), a.Mask())
	for _, r := range l.regionList {
		w, err := derive(r, pixels)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLayout, err)
		}
		if w.X1 > l.pixels {
			return nil, fmt.Errorf("%w: window (%d, %d) exceeds line length %d", ErrLayout, w.X0, w.X1, l.pixels)
		}
		for x := w.X0; x < w.X1; x++ {
			out.Set(x, a.At(x))
		}
	}
	return out, nil
}
