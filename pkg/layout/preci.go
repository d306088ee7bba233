package layout

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"cticalib/pkg/array"
	"cticalib/pkg/region"
)

const (
	// RandomSeed asks PreCTIImageFrom to draw a fresh seed shared by every
	// injection region.
	RandomSeed int64 = -1

	// MaxNormalizationDraws bounds the rejection sampling of a column
	// normalization inside (0, MaximumNormalization).
	MaxNormalizationDraws = 10000

	maxSeed = 1_000_000_000
)

// PreCTIImageFrom returns the image as injected, before CTI is added.
//
// Uniform layouts fill every region with the normalization. Non-uniform
// layouts draw one normalization per column from a normal distribution
// around the normalization and scale row i (counting from 1) of that column
// by i^RowSlope. Every region uses the same seed, so all regions share one
// column pattern; ciSeed of RandomSeed draws that seed at random. The seed is
// ignored for uniform layouts.
func (l *Layout2DCI) PreCTIImageFrom(ciSeed int64) (*array.Array2D, error) {
	out := array.New2D(l.shape.Rows, l.shape.Columns)

	switch l.kind {
	case Uniform:
		// Flat fill at the normalization
		for _, r := range l.regionList {
			for y := r.Y0; y < r.Y1; y++ {
				for x := r.X0; x < r.X1; x++ {
					out.Set(y, x, l.normalization)
				}
			}
		}
		return out, nil

	case NonUniform:
		// Resolve the seed once so every region gets the same column pattern
		seed := ciSeed
		if seed == RandomSeed {
			seed = rand.New(rand.NewSource(uint64(time.Now().UnixNano()))).Int63n(maxSeed)
		}
		if seed < 0 {
			return nil, fmt.Errorf("%w: seed %d must be non-negative or %d", ErrLayout, ciSeed, RandomSeed)
		}

		// Draw each region and paste it into place
		for _, r := range l.regionList {
			block, err := l.nonUniformRegionFrom(r, uint64(seed))
			if err != nil {
				return nil, err
			}
			if out, err = out.Paste(block, r); err != nil {
				return nil, err
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: cannot synthesise a pre-CTI image for %v layouts", ErrLayout, l.kind)
	}
}

// nonUniformRegionFrom draws the injected charge of one region using a source
// local to this call.
func (l *Layout2DCI) nonUniformRegionFrom(r region.Region2D, seed uint64) (*array.Array2D, error) {
	normal := distuv.Normal{
		Mu:    l.normalization,
		Sigma: l.nonUniform.ColumnSigma,
		Src:   rand.NewSource(seed),
	}

	block := array.New2D(r.TotalRows(), r.TotalColumns())
	for x := 0; x < r.TotalColumns(); x++ {
		// One truncated normal draw per column
		columnNormalization, err := l.drawColumnNormalization(normal)
		if err != nil {
			return nil, err
		}
		// Rows count from 1 so the first row keeps the column normalization
		for y := 0; y < r.TotalRows(); y++ {
			block.Set(y, x, columnNormalization*math.Pow(float64(y+1), l.nonUniform.RowSlope))
		}
	}
	return block, nil
}

func (l *Layout2DCI) drawColumnNormalization(normal distuv.Normal) (float64, error) {
	for i := 0; i < MaxNormalizationDraws; i++ {
		v := normal.Rand()
		if v > 0 && v < l.nonUniform.MaximumNormalization {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: no column normalization inside (0, %f) after %d draws (normalization %f, sigma %f)",
		ErrLayout, l.nonUniform.MaximumNormalization, MaxNormalizationDraws, l.normalization, l.nonUniform.ColumnSigma)
}
