package dataset

import (
	"fmt"

	"cticalib/pkg/array"
	"cticalib/pkg/layout"
	"cticalib/pkg/region"
)

// Mask2D marks pixels to exclude from a fit. A true entry is masked.
type Mask2D struct {
	shape  region.Shape2D
	masked []bool
}

// NewMask2D creates a mask of the given shape with no pixels masked.
func NewMask2D(shape region.Shape2D) *Mask2D {
	return &Mask2D{shape: shape, masked: make([]bool, shape.Rows*shape.Columns)}
}

// Shape returns the mask's shape.
func (m *Mask2D) Shape() region.Shape2D { return m.shape }

// IsMasked reports whether pixel (y, x) is masked.
func (m *Mask2D) IsMasked(y, x int) bool { return m.masked[y*m.shape.Columns+x] }

// Set masks or unmasks pixel (y, x). Coordinates outside the mask are ignored.
func (m *Mask2D) Set(y, x int, masked bool) {
	if y < 0 || x < 0 || y >= m.shape.Rows || x >= m.shape.Columns {
		return
	}
	m.masked[y*m.shape.Columns+x] = masked
}

// MaskRegion masks every pixel of r that lies inside the mask.
func (m *Mask2D) MaskRegion(r region.Region2D) {
	for y := r.Y0; y < min(r.Y1, m.shape.Rows); y++ {
		for x := r.X0; x < min(r.X1, m.shape.Columns); x++ {
			m.masked[y*m.shape.Columns+x] = true
		}
	}
}

// Bools returns a row-major copy of the mask.
func (m *Mask2D) Bools() []bool { return append([]bool(nil), m.masked...) }

// TotalMasked returns the number of masked pixels.
func (m *Mask2D) TotalMasked() int {
	n := 0
	for _, v := range m.masked {
		if v {
			n++
		}
	}
	return n
}

// SettingsMask2D selects the calibration windows and cosmic ray buffers to
// mask. Nil windows and zero buffers are skipped.
type SettingsMask2D struct {
	ParallelFrontEdgeRows  *region.Pixels
	ParallelTrailsRows     *region.Pixels
	SerialFrontEdgeColumns *region.Pixels
	SerialTrailsColumns    *region.Pixels

	// CosmicRayParallelBuffer masks this many rows from each cosmic ray
	// along its column, including the cosmic ray pixel.
	CosmicRayParallelBuffer int
	// CosmicRaySerialBuffer masks this many columns from each cosmic ray
	// along its row, including the cosmic ray pixel.
	CosmicRaySerialBuffer int
	// CosmicRayDiagonalBuffer masks a square of this size starting at each
	// cosmic ray.
	CosmicRayDiagonalBuffer int
}

// Mask2DFrom builds the mask of a charge injection frame from settings. Any
// non-zero pixel of cosmicRayMap, which may be nil, is treated as a cosmic
// ray and always masked.
func Mask2DFrom(l *layout.Layout2DCI, settings SettingsMask2D, cosmicRayMap *array.Array2D) (*Mask2D, error) {
	mask := NewMask2D(l.Shape())

	windows := []struct {
		kind   layout.ExtractorKind
		pixels *region.Pixels
	}{
		{layout.ParallelFrontEdge, settings.ParallelFrontEdgeRows},
		{layout.ParallelTrails, settings.ParallelTrailsRows},
		{layout.SerialFrontEdge, settings.SerialFrontEdgeColumns},
		{layout.SerialTrails, settings.SerialTrailsColumns},
	}
	for _, w := range windows {
		if w.pixels == nil {
			continue
		}
		regions, err := l.Extractor(w.kind).RegionListFrom(*w.pixels)
		if err != nil {
			return nil, err
		}
		for _, r := range regions {
			mask.MaskRegion(r)
		}
	}

	if cosmicRayMap == nil {
		return mask, nil
	}
	if cosmicRayMap.Shape() != l.Shape() {
		return nil, fmt.Errorf("%w: cosmic ray map %v does not match layout %v", array.ErrShape, cosmicRayMap.Shape(), l.Shape())
	}
	shape := l.Shape()
	for y := 0; y < shape.Rows; y++ {
		for x := 0; x < shape.Columns; x++ {
			if cosmicRayMap.At(y, x) == 0 {
				continue
			}
			mask.Set(y, x, true)
			for dy := 0; dy < settings.CosmicRayParallelBuffer; dy++ {
				mask.Set(y+dy, x, true)
			}
			for dx := 0; dx < settings.CosmicRaySerialBuffer; dx++ {
				mask.Set(y, x+dx, true)
			}
			for dy := 0; dy < settings.CosmicRayDiagonalBuffer; dy++ {
				for dx := 0; dx < settings.CosmicRayDiagonalBuffer; dx++ {
					mask.Set(y+dy, x+dx, true)
				}
			}
		}
	}
	return mask, nil
}
