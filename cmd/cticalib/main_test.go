package main

import (
	"math"
	"testing"

	"cticalib/pkg/analysis"
	"cticalib/pkg/array"
	"cticalib/pkg/config"
	"cticalib/pkg/dataset"
	"cticalib/pkg/layout"
	"cticalib/pkg/logger"
	"cticalib/pkg/region"
)

func TestFramePaths(t *testing.T) {
	frames, err := framePaths("a.fits, b.fits", "na.fits,nb.fits", "", "", 1)
	if err != nil {
		t.Fatalf("Failed to pair frames: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	if frames[1].Image != "b.fits" || frames[1].NoiseMap != "nb.fits" || frames[1].PreCTIImage != "" || frames[1].HDU != 1 {
		t.Errorf("Unexpected second frame %+v", frames[1])
	}

	if _, err := framePaths("a.fits,b.fits", "", "pre.fits", "", 0); err == nil {
		t.Errorf("Expected an error for mismatched pre-CTI list")
	}
}

func TestFormatLine(t *testing.T) {
	line := array.From1D([]float64{1, 2.5, 3})
	line.SetMasked(1, true)
	if got := formatLine(line); got != "[1.00 -- 3.00]" {
		t.Errorf("Expected [1.00 -- 3.00], got %s", got)
	}
}

func TestBaselineIgnoresPriorsExcludingZeroCTI(t *testing.T) {
	l, err := layout.NewUniform(region.Shape2D{Rows: 2, Columns: 2}, []region.Region2D{region.MustNew(0, 1, 0, 2)}, 1, layout.Scans{})
	if err != nil {
		t.Fatalf("Failed to create layout: %v", err)
	}
	pre, err := l.PreCTIImageFrom(layout.RandomSeed)
	if err != nil {
		t.Fatalf("Failed to create pre-CTI image: %v", err)
	}
	d, err := dataset.NewImagingCI(pre.Clone(), array.Full2D(2, 2, 1), pre, l, dataset.ImagingCIOptions{})
	if err != nil {
		t.Fatalf("Failed to create dataset: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Processing.NumCores = 2
	cfg.Priors.ParallelTotalDensityRange = &analysis.DensityRange{Min: 0.5, Max: 10}

	logL, err := baselineLogLikelihood(cfg, []*dataset.ImagingCI{d, d}, logger.Discard{})
	if err != nil {
		t.Fatalf("Expected the baseline to be evaluated, got %v", err)
	}
	expected := -0.5 * 8 * math.Log(2*math.Pi)
	if math.Abs(logL-expected) > 1e-9 {
		t.Errorf("Expected log likelihood %f, got %f", expected, logL)
	}
}
