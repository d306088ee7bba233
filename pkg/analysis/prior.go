package analysis

import (
	"errors"
	"fmt"

	"cticalib/internal/models"
)

// DensityRange bounds a total trap density, inclusive at both ends.
type DensityRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether density lies within the range.
func (r DensityRange) Contains(density float64) bool {
	return density >= r.Min && density <= r.Max
}

// SettingsCTI2D limits the CTI models a search may propose. A nil range is
// not checked.
type SettingsCTI2D struct {
	ParallelTotalDensityRange *DensityRange `yaml:"parallelTotalDensityRange"`
	SerialTotalDensityRange   *DensityRange `yaml:"serialTotalDensityRange"`
}

// PriorError marks a parameter point the sampler must treat as having zero
// probability. It is not a failure of the fit.
type PriorError struct {
	Direction string
	Density   float64
	Range     DensityRange
}

func (e *PriorError) Error() string {
	return fmt.Sprintf("%s total trap density %g outside range [%g, %g]", e.Direction, e.Density, e.Range.Min, e.Range.Max)
}

// IsPrior reports whether err, or any error it wraps, is a *PriorError.
func IsPrior(err error) bool {
	var prior *PriorError
	return errors.As(err, &prior)
}

// CheckTotalDensityWithinRange returns a *PriorError when either direction's
// total trap density falls outside its configured range.
func (s SettingsCTI2D) CheckTotalDensityWithinRange(cti models.CTI2D) error {
	if r := s.ParallelTotalDensityRange; r != nil {
		if d := cti.ParallelTotalDensity(); !r.Contains(d) {
			return &PriorError{Direction: "parallel", Density: d, Range: *r}
		}
	}
	if r := s.SerialTotalDensityRange; r != nil {
		if d := cti.SerialTotalDensity(); !r.Contains(d) {
			return &PriorError{Direction: "serial", Density: d, Range: *r}
		}
	}
	return nil
}
