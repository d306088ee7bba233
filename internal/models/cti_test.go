package models

import "testing"

func TestTotalDensity(t *testing.T) {
	cti := CTI2D{
		ParallelTraps: []Trap{{Density: 1.5}, {Density: 0.5}},
		SerialTraps:   []Trap{{Density: 3}},
	}
	if got := cti.ParallelTotalDensity(); got != 2 {
		t.Errorf("Expected parallel density 2, got %f", got)
	}
	if got := cti.SerialTotalDensity(); got != 3 {
		t.Errorf("Expected serial density 3, got %f", got)
	}
	if got := (CTI2D{}).SerialTotalDensity(); got != 0 {
		t.Errorf("Expected empty density 0, got %f", got)
	}
}
