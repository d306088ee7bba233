// Package ciio reads and writes charge injection frames as FITS images and
// turns them into datasets in the native readout orientation.
package ciio

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"

	"cticalib/pkg/array"
	"cticalib/pkg/region"
)

// openImage opens path and returns image HDU number hdu. The caller must call
// the returned close function.
func openImage(path string, hdu int) (fitsio.Image, func(), error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open %v", path)
	}
	f, err := fitsio.Open(r)
	if err != nil {
		r.Close()
		return nil, nil, errors.Wrapf(err, "failed to parse FITS file %v", path)
	}
	closer := func() {
		f.Close()
		r.Close()
	}

	if hdu < 0 || hdu >= len(f.HDUs()) {
		closer()
		return nil, nil, fmt.Errorf("%v has %d HDUs, HDU %d requested", path, len(f.HDUs()), hdu)
	}
	img, ok := f.HDU(hdu).(fitsio.Image)
	if !ok {
		closer()
		return nil, nil, fmt.Errorf("HDU %d of %v is not an image", hdu, path)
	}
	return img, closer, nil
}

// ReadArray2D reads a 2D image HDU. NAXIS1 becomes the column count and
// NAXIS2 the row count. Values are converted to float64 as stored, without
// applying BSCALE or BZERO.
func ReadArray2D(path string, hdu int) (*array.Array2D, error) {
	img, closer, err := openImage(path, hdu)
	if err != nil {
		return nil, err
	}
	defer closer()

	axes := img.Header().Axes()
	if len(axes) != 2 {
		return nil, fmt.Errorf("HDU %d of %v has %d axes, expected 2", hdu, path, len(axes))
	}
	shape := region.Shape2D{Rows: axes[1], Columns: axes[0]}

	values, err := readFloats(img)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read HDU %d of %v", hdu, path)
	}
	return array.FromRowMajor(shape, values, nil)
}

func readFloats(img fitsio.Image) ([]float64, error) {
	switch bitpix := img.Header().Bitpix(); bitpix {
	case 8:
		var raw []uint8
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		return convert(raw), nil
	case 16:
		var raw []int16
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		return convert(raw), nil
	case 32:
		var raw []int32
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		return convert(raw), nil
	case 64:
		var raw []int64
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		return convert(raw), nil
	case -32:
		var raw []float32
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		return convert(raw), nil
	case -64:
		var raw []float64
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
}

func convert[T uint8 | int16 | int32 | int64 | float32](raw []T) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out
}

// WriteArray2D writes a as a single BITPIX -64 image, with masked pixels
// written as zero. cards are appended to the primary header.
func WriteArray2D(path string, a *array.Array2D, cards ...fitsio.Card) error {
	w, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %v", path)
	}
	defer w.Close()

	f, err := fitsio.Create(w)
	if err != nil {
		return errors.Wrapf(err, "failed to start FITS file %v", path)
	}

	shape := a.Shape()
	img := fitsio.NewImage(-64, []int{shape.Columns, shape.Rows})
	defer img.Close()

	if len(cards) > 0 {
		if err := img.Header().Append(cards...); err != nil {
			return errors.Wrap(err, "failed to write header cards")
		}
	}

	native := a.Native()
	data := make([]float64, 0, a.Size())
	for y := 0; y < shape.Rows; y++ {
		data = append(data, native.RawRowView(y)...)
	}
	if err := img.Write(&data); err != nil {
		return errors.Wrap(err, "failed to write image data")
	}
	if err := f.Write(img); err != nil {
		return errors.Wrapf(err, "failed to write image to %v", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to finish FITS file %v", path)
	}
	return nil
}
