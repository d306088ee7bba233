// Package config provides configuration loading and management for cticalib.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"cticalib/pkg/analysis"
	"cticalib/pkg/ciio"
	"cticalib/pkg/dataset"
	"cticalib/pkg/layout"
	"cticalib/pkg/logger"
	"cticalib/pkg/region"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many goroutines evaluate datasets at once
		NumCores int `yaml:"numCores"`

		// LogLevel is one of debug, info or error
		LogLevel string `yaml:"logLevel"`

		// CISeed seeds synthesised non-uniform pre-CTI images, -1 for random
		CISeed int64 `yaml:"ciSeed"`

		// ReadNoise is the flat noise used when no noise map is given
		ReadNoise float64 `yaml:"readNoise"`
	} `yaml:"processing"`

	// Geometry of one quadrant in the native orientation
	Geometry struct {
		ParallelSize     int `yaml:"parallelSize"`
		SerialSize       int `yaml:"serialSize"`
		SerialPrescan    int `yaml:"serialPrescan"`
		SerialOverscan   int `yaml:"serialOverscan"`
		ParallelOverscan int `yaml:"parallelOverscan"`

		// ROECorner is the (row, column) readout corner of frames on disk
		ROECorner []int `yaml:"roeCorner"`
	} `yaml:"geometry"`

	// Injection values used when a FITS header lacks them
	Injection struct {
		On            int     `yaml:"on"`
		Off           int     `yaml:"off"`
		Total         int     `yaml:"total"`
		Normalization float64 `yaml:"normalization"`

		// NonUniform switches to per-column injection levels
		NonUniform           bool    `yaml:"nonUniform"`
		ColumnSigma          float64 `yaml:"columnSigma"`
		RowSlope             float64 `yaml:"rowSlope"`
		MaximumNormalization float64 `yaml:"maximumNormalization"`
	} `yaml:"injection"`

	// Mask windows, each a [start, end) pixel pair, and cosmic ray buffers
	Mask struct {
		ParallelFrontEdgeRows   []int `yaml:"parallelFrontEdgeRows"`
		ParallelTrailsRows      []int `yaml:"parallelTrailsRows"`
		SerialFrontEdgeColumns  []int `yaml:"serialFrontEdgeColumns"`
		SerialTrailsColumns     []int `yaml:"serialTrailsColumns"`
		CosmicRayParallelBuffer int   `yaml:"cosmicRayParallelBuffer"`
		CosmicRaySerialBuffer   int   `yaml:"cosmicRaySerialBuffer"`
		CosmicRayDiagonalBuffer int   `yaml:"cosmicRayDiagonalBuffer"`
	} `yaml:"mask"`

	// Calibration sub-extraction windows
	Calibration struct {
		ParallelColumns []int `yaml:"parallelColumns"`
		SerialRows      []int `yaml:"serialRows"`
	} `yaml:"calibration"`

	// Priors bound the total trap densities a search may propose
	Priors analysis.SettingsCTI2D `yaml:"priors"`

	// Output parameters
	Output struct {
		// Dir receives diagnostics and extracted arrays
		Dir string `yaml:"dir"`

		// SaveDiagnostics writes quick-look JPEGs of the fit
		SaveDiagnostics bool `yaml:"saveDiagnostics"`

		// SaveExtracted writes the calibration arrays as FITS
		SaveExtracted bool `yaml:"saveExtracted"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.LogLevel = "info"
	cfg.Processing.CISeed = layout.RandomSeed
	cfg.Processing.ReadNoise = 4.0

	// Euclid VIS quadrant
	cfg.Geometry.ParallelSize = 2086
	cfg.Geometry.SerialSize = 2128
	cfg.Geometry.SerialPrescan = 51
	cfg.Geometry.SerialOverscan = 20
	cfg.Geometry.ParallelOverscan = 20
	cfg.Geometry.ROECorner = []int{1, 0}

	cfg.Injection.On = 200
	cfg.Injection.Off = 300
	cfg.Injection.Total = 4
	cfg.Injection.Normalization = 1000.0

	cfg.Output.Dir = "cticalib_output"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML over the defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Every derived setting must build before anything is loaded
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks every derived setting can be built.
func (c *Config) Validate() error {
	if _, err := logger.ParseLogLevel(c.Processing.LogLevel); err != nil {
		return err
	}
	if _, err := c.GeometrySettings(); err != nil {
		return err
	}
	if _, err := c.MaskSettings(); err != nil {
		return err
	}
	if _, err := c.CalibrationSettings(); err != nil {
		return err
	}
	// Prior ranges
	for name, r := range map[string]*analysis.DensityRange{
		"parallel": c.Priors.ParallelTotalDensityRange,
		"serial":   c.Priors.SerialTotalDensityRange,
	} {
		if r != nil && r.Min > r.Max {
			return fmt.Errorf("%s density range min %g exceeds max %g", name, r.Min, r.Max)
		}
	}
	return nil
}

// LogLevel returns the parsed log level, defaulting to info.
func (c *Config) LogLevel() logger.LogLevel {
	level, err := logger.ParseLogLevel(c.Processing.LogLevel)
	if err != nil {
		return logger.LogInfo
	}
	return level
}

// GeometrySettings returns the quadrant geometry.
func (c *Config) GeometrySettings() (ciio.Geometry, error) {
	g := ciio.Geometry{
		ParallelSize:     c.Geometry.ParallelSize,
		SerialSize:       c.Geometry.SerialSize,
		SerialPrescan:    c.Geometry.SerialPrescan,
		SerialOverscan:   c.Geometry.SerialOverscan,
		ParallelOverscan: c.Geometry.ParallelOverscan,
	}
	if len(c.Geometry.ROECorner) != 2 {
		return g, fmt.Errorf("roeCorner must have 2 entries, got %d", len(c.Geometry.ROECorner))
	}
	g.ROECorner = region.ROECorner{Row: c.Geometry.ROECorner[0], Column: c.Geometry.ROECorner[1]}
	if !g.ROECorner.Valid() {
		return g, fmt.Errorf("unsupported roeCorner %v", c.Geometry.ROECorner)
	}
	if g.ParallelSize <= 0 || g.SerialSize <= 0 {
		return g, fmt.Errorf("frame size %dx%d must be positive", g.ParallelSize, g.SerialSize)
	}
	return g, nil
}

// InjectionDefaults returns the header values used when a frame lacks them.
func (c *Config) InjectionDefaults() ciio.InjectionHeader {
	return ciio.InjectionHeader{
		InjectionOn:    c.Injection.On,
		InjectionOff:   c.Injection.Off,
		InjectionTotal: c.Injection.Total,
		Normalization:  c.Injection.Normalization,
	}
}

// NonUniformParams returns the non-uniform injection parameters, or nil for
// uniform injection.
func (c *Config) NonUniformParams() *layout.NonUniformParams {
	if !c.Injection.NonUniform {
		return nil
	}
	return &layout.NonUniformParams{
		ColumnSigma:          c.Injection.ColumnSigma,
		RowSlope:             c.Injection.RowSlope,
		MaximumNormalization: c.Injection.MaximumNormalization,
	}
}

// LoadOptions returns the options used to read frames.
func (c *Config) LoadOptions() ciio.LoadOptions {
	return ciio.LoadOptions{
		Defaults:   c.InjectionDefaults(),
		NonUniform: c.NonUniformParams(),
		CISeed:     c.Processing.CISeed,
		ReadNoise:  c.Processing.ReadNoise,
	}
}

// MaskSettings returns the mask settings.
func (c *Config) MaskSettings() (dataset.SettingsMask2D, error) {
	s := dataset.SettingsMask2D{
		CosmicRayParallelBuffer: c.Mask.CosmicRayParallelBuffer,
		CosmicRaySerialBuffer:   c.Mask.CosmicRaySerialBuffer,
		CosmicRayDiagonalBuffer: c.Mask.CosmicRayDiagonalBuffer,
	}
	windows := []struct {
		name   string
		values []int
		dst    **region.Pixels
	}{
		{"parallelFrontEdgeRows", c.Mask.ParallelFrontEdgeRows, &s.ParallelFrontEdgeRows},
		{"parallelTrailsRows", c.Mask.ParallelTrailsRows, &s.ParallelTrailsRows},
		{"serialFrontEdgeColumns", c.Mask.SerialFrontEdgeColumns, &s.SerialFrontEdgeColumns},
		{"serialTrailsColumns", c.Mask.SerialTrailsColumns, &s.SerialTrailsColumns},
	}
	for _, w := range windows {
		p, err := pixelsFrom(w.name, w.values)
		if err != nil {
			return s, err
		}
		*w.dst = p
	}
	return s, nil
}

// CalibrationSettings returns the calibration sub-extraction windows.
func (c *Config) CalibrationSettings() (dataset.SettingsImagingCI, error) {
	var s dataset.SettingsImagingCI
	var err error
	if s.ParallelColumns, err = pixelsFrom("parallelColumns", c.Calibration.ParallelColumns); err != nil {
		return s, err
	}
	if s.SerialRows, err = pixelsFrom("serialRows", c.Calibration.SerialRows); err != nil {
		return s, err
	}
	return s, nil
}

// pixelsFrom converts an optional [start, end) pair. An empty list means the
// window is unset.
func pixelsFrom(name string, values []int) (*region.Pixels, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if len(values) != 2 || values[0] < 0 || values[1] <= values[0] {
		return nil, fmt.Errorf("%s must be a [start, end) pair with 0 <= start < end, got %v", name, values)
	}
	return &region.Pixels{values[0], values[1]}, nil
}
