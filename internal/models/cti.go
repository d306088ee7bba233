package models

// Trap is one species of charge trap in the CCD silicon.
type Trap struct {
	// Density is the number of traps of this species per pixel
	Density float64 `yaml:"density"`

	// ReleaseTimescale is the e-folding time, in clock cycles, over which a
	// trapped electron is released
	ReleaseTimescale float64 `yaml:"releaseTimescale"`

	// CaptureTimescale is the e-folding time over which a free electron is
	// captured. Zero means instant capture.
	CaptureTimescale float64 `yaml:"captureTimescale"`
}

// CCDPhase describes how charge fills the pixel volume during one clock phase.
type CCDPhase struct {
	// FullWellDepth is the number of electrons that fill the pixel
	FullWellDepth float64 `yaml:"fullWellDepth"`

	// WellNotchDepth is the number of electrons held by the notch, which
	// never meet a trap
	WellNotchDepth float64 `yaml:"wellNotchDepth"`

	// WellFillPower sets how the cloud volume grows with electron count
	WellFillPower float64 `yaml:"wellFillPower"`
}

// CTI2D is a two-direction CTI model: the traps and CCD filling behaviour
// seen by charge clocked in the parallel direction and in the serial
// direction. Either direction may be left empty.
type CTI2D struct {
	ParallelTraps []Trap    `yaml:"parallelTraps"`
	ParallelCCD   *CCDPhase `yaml:"parallelCCD"`
	SerialTraps   []Trap    `yaml:"serialTraps"`
	SerialCCD     *CCDPhase `yaml:"serialCCD"`
}

// ParallelTotalDensity returns the summed density of the parallel traps.
func (c CTI2D) ParallelTotalDensity() float64 {
	return totalDensity(c.ParallelTraps)
}

// SerialTotalDensity returns the summed density of the serial traps.
func (c CTI2D) SerialTotalDensity() float64 {
	return totalDensity(c.SerialTraps)
}

func totalDensity(traps []Trap) float64 {
	total := 0.0
	for _, t := range traps {
		total += t.Density
	}
	return total
}
