package layout

import (
	"fmt"

	"cticalib/pkg/array"
	"cticalib/pkg/region"
)

// WithExtractedRegions returns a copy of the layout whose injection regions
// are mapped into the local frame of extraction. Regions that do not overlap
// extraction are dropped. The frame shape is left unchanged.
func (l *Layout2DCI) WithExtractedRegions(extraction region.Region2D) (*Layout2DCI, error) {
	return l.evolve(func(next *Layout2DCI) {
		next.regionList = extractedRegions(l.regionList, extraction)
	})
}

// AfterExtraction returns the layout of the sub-frame covered by extraction:
// injection regions and scans are remapped into its local coordinates and the
// frame shape becomes the extraction's shape.
func (l *Layout2DCI) AfterExtraction(extraction region.Region2D) (*Layout2DCI, error) {
	if err := extraction.CheckWithin(l.shape); err != nil {
		return nil, fmt.Errorf("%w: extraction %w", ErrLayout, err)
	}
	remap := func(r *region.Region2D) *region.Region2D {
		if r == nil {
			return nil
		}
		out, ok := r.Extracted(extraction)
		if !ok {
			return nil
		}
		return &out
	}
	return l.evolve(func(next *Layout2DCI) {
		next.shape = extraction.Shape()
		next.regionList = extractedRegions(l.regionList, extraction)
		next.scans = Scans{
			ParallelOverscan: remap(l.scans.ParallelOverscan),
			SerialPrescan:    remap(l.scans.SerialPrescan),
			SerialOverscan:   remap(l.scans.SerialOverscan),
		}
	})
}

func extractedRegions(regions []region.Region2D, extraction region.Region2D) []region.Region2D {
	out := make([]region.Region2D, 0, len(regions))
	for _, r := range regions {
		if e, ok := r.Extracted(extraction); ok {
			out = append(out, e)
		}
	}
	return out
}

// parallelCalibrationRegion is the full-height column window, measured from
// the first injection region's leading column, used for parallel-only fits.
func (l *Layout2DCI) parallelCalibrationRegion(columns region.Pixels) (region.Region2D, error) {
	if len(l.regionList) == 0 {
		return region.Region2D{}, fmt.Errorf("%w: no charge injection regions", ErrLayout)
	}
	r, err := l.regionList[0].ParallelSideNearestReadOutRegionFrom(l.shape, columns)
	if err != nil {
		return region.Region2D{}, fmt.Errorf("%w: parallel calibration columns %v: %w", ErrLayout, columns, err)
	}
	if err := r.CheckWithin(l.shape); err != nil {
		return region.Region2D{}, fmt.Errorf("%w: parallel calibration columns %v: %w", ErrLayout, columns, err)
	}
	return r, nil
}

// Array2DForParallelCalibrationFrom crops a to every row of the columns
// window nearest the serial readout.
func (l *Layout2DCI) Array2DForParallelCalibrationFrom(a *array.Array2D, columns region.Pixels) (*array.Array2D, error) {
	if err := l.checkShape(a); err != nil {
		return nil, err
	}
	r, err := l.parallelCalibrationRegion(columns)
	if err != nil {
		return nil, err
	}
	return a.Slice(r)
}

// ExtractedLayoutForParallelCalibrationFrom returns the layout of the array
// produced by Array2DForParallelCalibrationFrom.
func (l *Layout2DCI) ExtractedLayoutForParallelCalibrationFrom(columns region.Pixels) (*Layout2DCI, error) {
	r, err := l.parallelCalibrationRegion(columns)
	if err != nil {
		return nil, err
	}
	return l.AfterExtraction(r)
}

// checkSerialCalibration enforces the preconditions for stacking per-region
// row windows: every region shares one horizontal span and rows lies inside
// every region.
func (l *Layout2DCI) checkSerialCalibration(rows region.Pixels) error {
	if len(l.regionList) == 0 {
		return fmt.Errorf("%w: no charge injection regions", ErrLayout)
	}
	first := l.regionList[0]
	for i, r := range l.regionList[1:] {
		if r.X0 != first.X0 || r.X1 != first.X1 {
			return fmt.Errorf("%w: region %d spans columns (%d, %d) but region 0 spans (%d, %d)", ErrLayout, i+1, r.X0, r.X1, first.X0, first.X1)
		}
	}
	if rows[0] < 0 || rows[0] >= rows[1] {
		return fmt.Errorf("%w: serial calibration rows %v are invalid", ErrLayout, rows)
	}
	if rowsMin := l.Extractor(SerialFrontEdge).TotalRowsMin(); rows[1] > rowsMin {
		return fmt.Errorf("%w: serial calibration rows %v exceed the shortest region (%d rows)", ErrLayout, rows, rowsMin)
	}
	return nil
}

// Array2DForSerialCalibrationFrom stacks, in region order, the rows window of
// every injection region across the full width of the frame.
func (l *Layout2DCI) Array2DForSerialCalibrationFrom(a *array.Array2D, rows region.Pixels) (*array.Array2D, error) {
	if err := l.checkShape(a); err != nil {
		return nil, err
	}
	if err := l.checkSerialCalibration(rows); err != nil {
		return nil, err
	}

	// Output holds one block of span rows per region
	span := rows[1] - rows[0]
	out := array.New2D(span*len(l.regionList), l.shape.Columns)
	for i, r := range l.regionList {
		// Full width rows of the region, prescan and overscan included
		entire, err := r.SerialEntireRowsOfRegionFrom(l.shape)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLayout, err)
		}

		// Cut the row window and stack it below the previous region's block
		window := region.Region2D{Y0: entire.Y0 + rows[0], Y1: entire.Y0 + rows[1], X0: entire.X0, X1: entire.X1}
		block, err := a.Slice(window)
		if err != nil {
			return nil, err
		}
		dst := region.Region2D{Y0: i * span, Y1: (i + 1) * span, X0: 0, X1: l.shape.Columns}
		if out, err = out.Paste(block, dst); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ExtractedLayoutForSerialCalibrationFrom returns the layout of the array
// produced by Array2DForSerialCalibrationFrom, whose shape is newShape. Region
// i occupies rows [i*span, (i+1)*span) and the serial scans cover every row.
func (l *Layout2DCI) ExtractedLayoutForSerialCalibrationFrom(newShape region.Shape2D, rows region.Pixels) (*Layout2DCI, error) {
	if err := l.checkSerialCalibration(rows); err != nil {
		return nil, err
	}
	span := rows[1] - rows[0]
	fullHeight := func(r *region.Region2D) *region.Region2D {
		if r == nil {
			return nil
		}
		return &region.Region2D{Y0: 0, Y1: newShape.Rows, X0: r.X0, X1: r.X1}
	}
	return l.evolve(func(next *Layout2DCI) {
		next.shape = newShape
		offset := 0
		for i, r := range l.regionList {
			next.regionList[i] = region.Region2D{Y0: offset, Y1: offset + span, X0: r.X0, X1: r.X1}
			offset += span
		}
		next.scans = Scans{
			SerialPrescan:  fullHeight(l.scans.SerialPrescan),
			SerialOverscan: fullHeight(l.scans.SerialOverscan),
		}
	})
}
