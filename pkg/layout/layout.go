// Package layout describes where charge injection regions sit on a CCD frame
// and extracts the calibration sub-regions (front edges, EPER trails and
// overscans) that CTI models are fitted to.
//
// A Layout2DCI is immutable. Extraction and remapping operations return new
// layouts; they never modify the receiver.
package layout

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"cticalib/pkg/array"
	"cticalib/pkg/region"
)

var (
	// ErrLayout is returned when regions do not fit the frame or a layout is
	// asked for something its geometry cannot provide.
	ErrLayout = errors.New("layout error")

	// ErrPlotting is returned for an unrecognised line region name.
	ErrPlotting = errors.New("unrecognised line region")
)

// Kind distinguishes the two ways charge can be injected.
type Kind int

const (
	// Uniform layouts inject the same normalization everywhere.
	Uniform Kind = iota
	// NonUniform layouts vary the normalization per column and per row.
	NonUniform
)

func (k Kind) String() string {
	switch k {
	case Uniform:
		return "uniform"
	case NonUniform:
		return "non-uniform"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// NonUniformParams controls the injection pattern of a non-uniform layout.
type NonUniformParams struct {
	// ColumnSigma is the standard deviation of the per-column normalization.
	ColumnSigma float64
	// RowSlope is the power-law exponent applied along each column.
	RowSlope float64
	// MaximumNormalization bounds sampled column normalizations. Zero or
	// negative means unbounded.
	MaximumNormalization float64
}

// Scans holds the optional prescan and overscan regions of a frame.
type Scans struct {
	ParallelOverscan *region.Region2D
	SerialPrescan    *region.Region2D
	SerialOverscan   *region.Region2D
}

// Layout2DCI is the geometry of a charge injection frame.
type Layout2DCI struct {
	shape         region.Shape2D
	regionList    []region.Region2D
	normalization float64
	scans         Scans

	kind       Kind
	nonUniform NonUniformParams
}

// NewUniform creates a layout whose regions are injected at a flat
// normalization.
func NewUniform(shape region.Shape2D, regionList []region.Region2D, normalization float64, scans Scans) (*Layout2DCI, error) {
	l := &Layout2DCI{
		shape:         shape,
		regionList:    slices.Clone(regionList),
		normalization: normalization,
		scans:         copyScans(scans),
		kind:          Uniform,
	}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewNonUniform creates a layout whose injected charge varies per column and
// per row as described by params.
func NewNonUniform(shape region.Shape2D, regionList []region.Region2D, normalization float64, params NonUniformParams, scans Scans) (*Layout2DCI, error) {
	if params.ColumnSigma < 0 {
		return nil, fmt.Errorf("%w: column sigma %f is negative", ErrLayout, params.ColumnSigma)
	}
	if params.MaximumNormalization <= 0 {
		params.MaximumNormalization = math.Inf(1)
	}
	if normalization >= params.MaximumNormalization {
		return nil, fmt.Errorf("%w: normalization %f is not below maximum normalization %f", ErrLayout, normalization, params.MaximumNormalization)
	}
	l := &Layout2DCI{
		shape:         shape,
		regionList:    slices.Clone(regionList),
		normalization: normalization,
		scans:         copyScans(scans),
		kind:          NonUniform,
		nonUniform:    params,
	}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Layout2DCI) validate() error {
	if l.shape.Rows <= 0 || l.shape.Columns <= 0 {
		return fmt.Errorf("%w: frame shape (%d, %d) must be positive", ErrLayout, l.shape.Rows, l.shape.Columns)
	}
	for _, r := range l.regionList {
		if _, err := region.New(r.Y0, r.Y1, r.X0, r.X1); err != nil {
			return fmt.Errorf("%w: %w", ErrLayout, err)
		}
		if err := r.CheckWithin(l.shape); err != nil {
			return fmt.Errorf("%w: charge injection %w", ErrLayout, err)
		}
	}
	for name, scan := range map[string]*region.Region2D{
		"parallel overscan": l.scans.ParallelOverscan,
		"serial prescan":    l.scans.SerialPrescan,
		"serial overscan":   l.scans.SerialOverscan,
	} {
		if scan == nil {
			continue
		}
		if err := scan.CheckWithin(l.shape); err != nil {
			return fmt.Errorf("%w: %s %w", ErrLayout, name, err)
		}
	}
	return nil
}

func copyScans(s Scans) Scans {
	cp := func(r *region.Region2D) *region.Region2D {
		if r == nil {
			return nil
		}
		v := *r
		return &v
	}
	return Scans{
		ParallelOverscan: cp(s.ParallelOverscan),
		SerialPrescan:    cp(s.SerialPrescan),
		SerialOverscan:   cp(s.SerialOverscan),
	}
}

// evolve returns a copy of the layout with edit applied and re-validated.
func (l *Layout2DCI) evolve(edit func(*Layout2DCI)) (*Layout2DCI, error) {
	next := &Layout2DCI{
		shape:         l.shape,
		regionList:    slices.Clone(l.regionList),
		normalization: l.normalization,
		scans:         copyScans(l.scans),
		kind:          l.kind,
		nonUniform:    l.nonUniform,
	}
	edit(next)
	if err := next.validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// Shape returns the frame shape.
func (l *Layout2DCI) Shape() region.Shape2D { return l.shape }

// RegionList returns a copy of the charge injection regions.
func (l *Layout2DCI) RegionList() []region.Region2D { return slices.Clone(l.regionList) }

// Normalization returns the expected injected charge level.
func (l *Layout2DCI) Normalization() float64 { return l.normalization }

// Scans returns a copy of the prescan and overscan regions.
func (l *Layout2DCI) Scans() Scans { return copyScans(l.scans) }

// Kind returns the injection variant.
func (l *Layout2DCI) Kind() Kind { return l.kind }

// NonUniformParams returns the non-uniform injection parameters. They are only
// meaningful when Kind is NonUniform.
func (l *Layout2DCI) NonUniformParams() NonUniformParams { return l.nonUniform }

// RowsBetweenRegions returns the number of rows separating each consecutive
// pair of injection regions.
func (l *Layout2DCI) RowsBetweenRegions() []int {
	if len(l.regionList) < 2 {
		return nil
	}
	gaps := make([]int, 0, len(l.regionList)-1)
	for i := 0; i < len(l.regionList)-1; i++ {
		gaps = append(gaps, l.regionList[i+1].Y0-l.regionList[i].Y1)
	}
	return gaps
}

// ParallelTrailSizeToArrayEdge returns the rows between the last injection
// region and the edge of the frame.
func (l *Layout2DCI) ParallelTrailSizeToArrayEdge() int {
	maxY1 := 0
	for _, r := range l.regionList {
		maxY1 = max(maxY1, r.Y1)
	}
	return l.shape.Rows - maxY1
}

// SmallestParallelTrailsRowsToArrayEdge returns the largest parallel trail
// window that can be extracted after every region without running into the
// next region or off the frame.
func (l *Layout2DCI) SmallestParallelTrailsRowsToArrayEdge() int {
	return slices.Min(append(l.RowsBetweenRegions(), l.ParallelTrailSizeToArrayEdge()))
}

// SmallestParallelRowsWithinCIRegions returns the height of the shortest
// injection region.
func (l *Layout2DCI) SmallestParallelRowsWithinCIRegions() int {
	return l.Extractor(ParallelFrontEdge).TotalRowsMin()
}

// SerialTrailsColumns returns the number of columns available for serial trail
// extraction: the serial overscan width if one is defined, otherwise the
// columns between the rightmost region and the frame edge.
func (l *Layout2DCI) SerialTrailsColumns() int {
	if l.scans.SerialOverscan != nil {
		return l.scans.SerialOverscan.TotalColumns()
	}
	maxX1 := 0
	for _, r := range l.regionList {
		maxX1 = max(maxX1, r.X1)
	}
	return l.shape.Columns - maxX1
}

func (l *Layout2DCI) checkShape(a *array.Array2D) error {
	if a.Shape() != l.shape {
		return fmt.Errorf("%w: array shape %v does not match layout shape %v", array.ErrShape, a.Shape(), l.shape)
	}
	return nil
}

// Array2DOfRegionsFrom returns a copy of a keeping only the pixels inside
// charge injection regions; every other pixel is zero.
func (l *Layout2DCI) Array2DOfRegionsFrom(a *array.Array2D) (*array.Array2D, error) {
	if err := l.checkShape(a); err != nil {
		return nil, err
	}
	out := a.ZerosLike()
	for _, r := range l.regionList {
		copyRegion(out, a, r)
	}
	return out, nil
}

// Array2DOfNonRegionsFrom returns a copy of a with every charge injection
// region set to zero, leaving the trails and scans.
func (l *Layout2DCI) Array2DOfNonRegionsFrom(a *array.Array2D) (*array.Array2D, error) {
	if err := l.checkShape(a); err != nil {
		return nil, err
	}
	out := a.Clone()
	for _, r := range l.regionList {
		zeroRegion(out, r)
	}
	return out, nil
}

// Array2DOfParallelTrailsFrom returns the non-region pixels of a with the
// serial prescan and overscan also zeroed, isolating the parallel EPER trails.
func (l *Layout2DCI) Array2DOfParallelTrailsFrom(a *array.Array2D) (*array.Array2D, error) {
	out, err := l.Array2DOfNonRegionsFrom(a)
	if err != nil {
		return nil, err
	}
	if l.scans.SerialPrescan != nil {
		zeroRegion(out, *l.scans.SerialPrescan)
	}
	if l.scans.SerialOverscan != nil {
		zeroRegion(out, *l.scans.SerialOverscan)
	}
	return out, nil
}

// Array2DOfParallelEdgesAndTrailsFrom returns a zero array holding only the
// parallel front edge rows and parallel trail rows of every region. Either
// window may be nil to skip it.
func (l *Layout2DCI) Array2DOfParallelEdgesAndTrailsFrom(a *array.Array2D, frontEdgeRows, trailsRows *region.Pixels) (*array.Array2D, error) {
	return l.edgesAndTrails(a, ParallelFrontEdge, ParallelTrails, frontEdgeRows, trailsRows)
}

// Array2DOfSerialEdgesAndTrailsFrom returns a zero array holding only the
// serial front edge columns and serial trail columns of every region. Either
// window may be nil to skip it.
func (l *Layout2DCI) Array2DOfSerialEdgesAndTrailsFrom(a *array.Array2D, frontEdgeColumns, trailsColumns *region.Pixels) (*array.Array2D, error) {
	return l.edgesAndTrails(a, SerialFrontEdge, SerialTrails, frontEdgeColumns, trailsColumns)
}

func (l *Layout2DCI) edgesAndTrails(a *array.Array2D, front, trails ExtractorKind, frontPixels, trailsPixels *region.Pixels) (*array.Array2D, error) {
	if err := l.checkShape(a); err != nil {
		return nil, err
	}
	out := a.ZerosLike()
	var err error
	if frontPixels != nil {
		if out, err = l.Extractor(front).AddToArray(out, a, *frontPixels); err != nil {
			return nil, err
		}
	}
	if trailsPixels != nil {
		if out, err = l.Extractor(trails).AddToArray(out, a, *trailsPixels); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// serialTrailRegions returns, per injection region, the serial overscan
// columns over that region's rows.
func (l *Layout2DCI) serialTrailRegions() ([]region.Region2D, error) {
	if l.scans.SerialOverscan == nil {
		return nil, fmt.Errorf("%w: layout has no serial overscan", ErrLayout)
	}
	overscan := *l.scans.SerialOverscan
	out := make([]region.Region2D, 0, len(l.regionList))
	for _, r := range l.regionList {
		trail, err := region.New(r.Y0, r.Y1, overscan.X0, overscan.X1)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLayout, err)
		}
		out = append(out, trail)
	}
	return out, nil
}

// Array2DOfSerialTrailsFrom returns a zero array holding only the serial
// overscan pixels level with a charge injection region, where the serial EPER
// trails are.
func (l *Layout2DCI) Array2DOfSerialTrailsFrom(a *array.Array2D) (*array.Array2D, error) {
	if err := l.checkShape(a); err != nil {
		return nil, err
	}
	trails, err := l.serialTrailRegions()
	if err != nil {
		return nil, err
	}
	out := a.ZerosLike()
	for _, r := range trails {
		copyRegion(out, a, r)
	}
	return out, nil
}

// Array2DOfSerialOverscanAboveTrailsFrom returns a zero array holding the
// serial overscan pixels that are not level with any injection region.
func (l *Layout2DCI) Array2DOfSerialOverscanAboveTrailsFrom(a *array.Array2D) (*array.Array2D, error) {
	if err := l.checkShape(a); err != nil {
		return nil, err
	}
	trails, err := l.serialTrailRegions()
	if err != nil {
		return nil, err
	}
	out := a.ZerosLike()
	copyRegion(out, a, *l.scans.SerialOverscan)
	for _, r := range trails {
		zeroRegion(out, r)
	}
	return out, nil
}

// Rotated returns the layout mapped between the raw frame of corner and the
// native orientation, with regions re-sorted by first row.
func (l *Layout2DCI) Rotated(corner region.ROECorner) (*Layout2DCI, error) {
	rotate := func(r *region.Region2D) *region.Region2D {
		if r == nil {
			return nil
		}
		v := r.RotatedFromROECorner(l.shape, corner)
		return &v
	}
	return l.evolve(func(next *Layout2DCI) {
		for i, r := range next.regionList {
			next.regionList[i] = r.RotatedFromROECorner(l.shape, corner)
		}
		sort.Slice(next.regionList, func(i, j int) bool { return next.regionList[i].Y0 < next.regionList[j].Y0 })
		next.scans = Scans{
			ParallelOverscan: rotate(l.scans.ParallelOverscan),
			SerialPrescan:    rotate(l.scans.SerialPrescan),
			SerialOverscan:   rotate(l.scans.SerialOverscan),
		}
	})
}

func copyRegion(dst, src *array.Array2D, r region.Region2D) {
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			dst.Set(y, x, src.At(y, x))
		}
	}
}

func zeroRegion(dst *array.Array2D, r region.Region2D) {
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			dst.Set(y, x, 0)
		}
	}
}
