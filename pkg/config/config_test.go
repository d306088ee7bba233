package config

import (
	"os"
	"path/filepath"
	"testing"

	"cticalib/pkg/logger"
	"cticalib/pkg/region"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}
	g, err := cfg.GeometrySettings()
	if err != nil {
		t.Fatalf("Failed to build geometry: %v", err)
	}
	if g.ROECorner != region.ROEBottomLeft {
		t.Errorf("Expected native readout corner, got %v", g.ROECorner)
	}
	if cfg.NonUniformParams() != nil {
		t.Errorf("Expected uniform injection by default")
	}
	if _, err := g.LayoutFrom(cfg.InjectionDefaults(), cfg.NonUniformParams()); err != nil {
		t.Errorf("Expected default injection to fit the default geometry, got %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if cfg.Geometry.SerialSize != DefaultConfig().Geometry.SerialSize {
		t.Errorf("Expected default serial size, got %d", cfg.Geometry.SerialSize)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("Failed to create default config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if cfg.Injection.Normalization != 1000 {
		t.Errorf("Expected normalization 1000, got %f", cfg.Injection.Normalization)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
processing:
  logLevel: debug
geometry:
  roeCorner: [0, 1]
injection:
  nonUniform: true
  columnSigma: 10
  rowSlope: -0.01
mask:
  parallelFrontEdgeRows: [0, 5]
  cosmicRayParallelBuffer: 3
calibration:
  serialRows: [0, 50]
priors:
  parallelTotalDensityRange:
    min: 0
    max: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if cfg.LogLevel() != logger.LogDebug {
		t.Errorf("Expected debug level, got %v", cfg.LogLevel())
	}
	g, _ := cfg.GeometrySettings()
	if g.ROECorner != region.ROETopRight {
		t.Errorf("Expected top right corner, got %v", g.ROECorner)
	}
	if p := cfg.NonUniformParams(); p == nil || p.ColumnSigma != 10 {
		t.Errorf("Expected non-uniform params with sigma 10, got %v", p)
	}
	mask, err := cfg.MaskSettings()
	if err != nil {
		t.Fatalf("Failed to build mask settings: %v", err)
	}
	if mask.ParallelFrontEdgeRows == nil || *mask.ParallelFrontEdgeRows != (region.Pixels{0, 5}) {
		t.Errorf("Expected front edge rows (0, 5), got %v", mask.ParallelFrontEdgeRows)
	}
	if mask.ParallelTrailsRows != nil {
		t.Errorf("Expected unset trails rows, got %v", mask.ParallelTrailsRows)
	}
	if mask.CosmicRayParallelBuffer != 3 {
		t.Errorf("Expected cosmic ray buffer 3, got %d", mask.CosmicRayParallelBuffer)
	}
	calibration, err := cfg.CalibrationSettings()
	if err != nil {
		t.Fatalf("Failed to build calibration settings: %v", err)
	}
	if calibration.ParallelColumns != nil || calibration.SerialRows == nil {
		t.Errorf("Expected only serial rows set, got %+v", calibration)
	}
	if r := cfg.Priors.ParallelTotalDensityRange; r == nil || r.Max != 5 {
		t.Errorf("Expected parallel density range max 5, got %v", r)
	}
}

func TestInvalidConfigs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad corner", "geometry:\n  roeCorner: [2, 0]\n"},
		{"short corner", "geometry:\n  roeCorner: [1]\n"},
		{"bad window", "mask:\n  parallelTrailsRows: [5, 1]\n"},
		{"bad log level", "processing:\n  logLevel: loud\n"},
		{"inverted prior", "priors:\n  serialTotalDensityRange:\n    min: 3\n    max: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Errorf("Expected an error for %s", tt.name)
			}
		})
	}
}
