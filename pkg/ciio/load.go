package ciio

import (
	"fmt"

	"github.com/pkg/errors"

	"cticalib/pkg/array"
	"cticalib/pkg/dataset"
	"cticalib/pkg/layout"
	"cticalib/pkg/region"
)

// Geometry is the fixed detector geometry of a quadrant, given in the native
// orientation: rows count away from the parallel readout, columns away from
// the serial readout.
type Geometry struct {
	ParallelSize     int
	SerialSize       int
	SerialPrescan    int
	SerialOverscan   int
	ParallelOverscan int
	// ROECorner is the readout corner of the raw frame as stored on disk.
	ROECorner region.ROECorner
}

// Shape returns the frame shape.
func (g Geometry) Shape() region.Shape2D {
	return region.Shape2D{Rows: g.ParallelSize, Columns: g.SerialSize}
}

// Scans returns the native prescan and overscan regions. Zero sizes leave the
// matching scan unset.
func (g Geometry) Scans() (layout.Scans, error) {
	var scans layout.Scans
	if g.SerialPrescan > 0 {
		r, err := region.New(0, g.ParallelSize, 0, g.SerialPrescan)
		if err != nil {
			return scans, err
		}
		scans.SerialPrescan = &r
	}
	if g.SerialOverscan > 0 {
		r, err := region.New(0, g.ParallelSize, g.SerialSize-g.SerialOverscan, g.SerialSize)
		if err != nil {
			return scans, err
		}
		scans.SerialOverscan = &r
	}
	if g.ParallelOverscan > 0 {
		r, err := region.New(g.ParallelSize-g.ParallelOverscan, g.ParallelSize, g.SerialPrescan, g.SerialSize-g.SerialOverscan)
		if err != nil {
			return scans, err
		}
		scans.ParallelOverscan = &r
	}
	return scans, nil
}

// LayoutFrom builds the native layout of a frame injected as described by h.
// A nil nonUniform gives a uniform layout.
func (g Geometry) LayoutFrom(h InjectionHeader, nonUniform *layout.NonUniformParams) (*layout.Layout2DCI, error) {
	regions, err := region.RegionListCIFrom(
		h.InjectionOn, h.InjectionOff, h.InjectionTotal,
		g.ParallelSize, g.SerialSize, g.SerialPrescan, g.SerialOverscan,
		region.ROEBottomLeft,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", layout.ErrLayout, err)
	}
	scans, err := g.Scans()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", layout.ErrLayout, err)
	}
	if nonUniform != nil {
		return layout.NewNonUniform(g.Shape(), regions, h.Normalization, *nonUniform, scans)
	}
	return layout.NewUniform(g.Shape(), regions, h.Normalization, scans)
}

// ImagingCIPaths names the FITS files of one frame. Only Image is required.
type ImagingCIPaths struct {
	Image        string
	NoiseMap     string
	PreCTIImage  string
	CosmicRayMap string
	// HDU is read from every file.
	HDU int
}

// LoadOptions controls how missing inputs are filled in.
type LoadOptions struct {
	// Defaults supplies injection values for keywords the image header lacks.
	Defaults InjectionHeader
	// NonUniform, when set, makes the layout non-uniform.
	NonUniform *layout.NonUniformParams
	// CISeed seeds a synthesised non-uniform pre-CTI image.
	CISeed int64
	// ReadNoise is the flat noise used when no noise map file is given.
	ReadNoise float64
}

// LoadImagingCI reads a frame, rotates every array from its raw readout
// corner into the native orientation and bundles it with the layout built
// from the image header. Without a pre-CTI file the pre-CTI image is
// synthesised from the layout.
func LoadImagingCI(paths ImagingCIPaths, g Geometry, opts LoadOptions) (*dataset.ImagingCI, InjectionHeader, error) {
	header, err := ReadInjectionHeader(paths.Image, paths.HDU, opts.Defaults)
	if err != nil {
		return nil, header, err
	}
	l, err := g.LayoutFrom(header, opts.NonUniform)
	if err != nil {
		return nil, header, errors.Wrapf(err, "failed to build layout for %v", paths.Image)
	}

	read := func(path string) (*array.Array2D, error) {
		a, err := ReadArray2D(path, paths.HDU)
		if err != nil {
			return nil, err
		}
		if a.Shape() != g.Shape() {
			return nil, fmt.Errorf("%w: %v is %v, geometry is %v", array.ErrShape, path, a.Shape(), g.Shape())
		}
		return a.Rotated(g.ROECorner), nil
	}

	image, err := read(paths.Image)
	if err != nil {
		return nil, header, err
	}

	var noiseMap *array.Array2D
	if paths.NoiseMap != "" {
		if noiseMap, err = read(paths.NoiseMap); err != nil {
			return nil, header, err
		}
	} else {
		if opts.ReadNoise <= 0 {
			return nil, header, fmt.Errorf("%w: no noise map file and read noise %f", dataset.ErrNoiseMap, opts.ReadNoise)
		}
		noiseMap = array.Full2D(g.ParallelSize, g.SerialSize, opts.ReadNoise)
	}

	var preCTI *array.Array2D
	if paths.PreCTIImage != "" {
		preCTI, err = read(paths.PreCTIImage)
	} else {
		preCTI, err = l.PreCTIImageFrom(opts.CISeed)
	}
	if err != nil {
		return nil, header, err
	}

	var cosmicRays *array.Array2D
	if paths.CosmicRayMap != "" {
		if cosmicRays, err = read(paths.CosmicRayMap); err != nil {
			return nil, header, err
		}
	}

	d, err := dataset.NewImagingCI(image, noiseMap, preCTI, l, dataset.ImagingCIOptions{CosmicRayMap: cosmicRays})
	if err != nil {
		return nil, header, errors.Wrapf(err, "invalid dataset from %v", paths.Image)
	}
	return d, header, nil
}
