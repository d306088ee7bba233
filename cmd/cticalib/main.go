package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cticalib/internal/models"
	"cticalib/pkg/analysis"
	"cticalib/pkg/array"
	"cticalib/pkg/ciio"
	"cticalib/pkg/config"
	"cticalib/pkg/dataset"
	"cticalib/pkg/layout"
	"cticalib/pkg/logger"
	"cticalib/pkg/visualization"
)

func main() {
	configPath := flag.String("config", "cticalib.yaml", "YAML configuration file")
	imagePaths := flag.String("image", "", "Comma separated charge injection FITS frames")
	noisePaths := flag.String("noise", "", "Comma separated noise map FITS files, one per frame (default: flat read noise)")
	preCTIPaths := flag.String("pre-cti", "", "Comma separated pre-CTI FITS files, one per frame (default: synthesised from the layout)")
	cosmicRayPaths := flag.String("cosmic-rays", "", "Comma separated cosmic ray map FITS files, one per frame")
	hdu := flag.Int("hdu", 0, "HDU to read from every file")
	outputDir := flag.String("output", "", "Output directory (overrides the config)")
	writeConfig := flag.String("write-config", "", "Write a default configuration to this path and exit")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *writeConfig)
		return
	}

	if *imagePaths == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	logs := logger.NewStdOutLogger(cfg.LogLevel())

	frames, err := framePaths(*imagePaths, *noisePaths, *preCTIPaths, *cosmicRayPaths, *hdu)
	if err != nil {
		log.Fatalf("Invalid frame arguments: %v", err)
	}

	startTime := time.Now()
	datasets := make([]*dataset.ImagingCI, 0, len(frames))
	for i, paths := range frames {
		d, header, err := loadFrame(cfg, paths, logs)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", paths.Image, err)
		}

		fmt.Printf("\nFrame %d: %s (%dx%d, %d unmasked pixels)\n", i, paths.Image, d.Shape().Rows, d.Shape().Columns, d.Image().TotalUnmasked())
		printLines(d, logs)

		a := analysis.NewAnalysisImagingCI(d, analysis.NoCTIClocker{}, cfg.Priors, logs)
		datasets = append(datasets, d)

		if err := saveOutputs(cfg, a, header, i); err != nil {
			logs.Errorf("Failed to save outputs of frame %d: %v", i, err)
		}
	}

	logL, err := baselineLogLikelihood(cfg, datasets, logs)
	if err != nil {
		log.Fatalf("Failed to evaluate log likelihood: %v", err)
	}

	fmt.Printf("\nLog likelihood without CTI over %d frames: %.4f\n", len(datasets), logL)
	fmt.Printf("Completed in %.2f seconds\n", time.Since(startTime).Seconds())
}

// baselineLogLikelihood scores every dataset with no CTI at all. The density
// priors bound what a search may propose, so when zero CTI falls outside
// them the baseline is evaluated without them.
func baselineLogLikelihood(cfg *config.Config, datasets []*dataset.ImagingCI, logs logger.Logger) (float64, error) {
	settings := cfg.Priors
	if err := settings.CheckTotalDensityWithinRange(models.CTI2D{}); analysis.IsPrior(err) {
		logs.Infof("Zero CTI lies outside the density priors (%v), evaluating the baseline without them", err)
		settings = analysis.SettingsCTI2D{}
	}

	analyses := make([]analysis.Analysis, len(datasets))
	for i, d := range datasets {
		analyses[i] = analysis.NewAnalysisImagingCI(d, analysis.NoCTIClocker{}, settings, logs)
	}
	combined := analysis.NewCombinedAnalysis(analysis.ParallelPool{NumCores: cfg.Processing.NumCores}, analyses...)
	return combined.LogLikelihoodFunction(analysis.Instance{})
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// framePaths pairs the per-frame file lists. Optional lists must be empty or
// match the image list.
func framePaths(images, noise, preCTI, cosmicRays string, hdu int) ([]ciio.ImagingCIPaths, error) {
	imageList := splitList(images)
	optional := map[string][]string{
		"-noise":       splitList(noise),
		"-pre-cti":     splitList(preCTI),
		"-cosmic-rays": splitList(cosmicRays),
	}
	for name, list := range optional {
		if len(list) != 0 && len(list) != len(imageList) {
			return nil, fmt.Errorf("%s has %d entries for %d images", name, len(list), len(imageList))
		}
	}

	at := func(list []string, i int) string {
		if len(list) == 0 {
			return ""
		}
		return list[i]
	}
	frames := make([]ciio.ImagingCIPaths, len(imageList))
	for i, image := range imageList {
		frames[i] = ciio.ImagingCIPaths{
			Image:        image,
			NoiseMap:     at(optional["-noise"], i),
			PreCTIImage:  at(optional["-pre-cti"], i),
			CosmicRayMap: at(optional["-cosmic-rays"], i),
			HDU:          hdu,
		}
	}
	return frames, nil
}

// loadFrame reads a frame, masks it and crops it to the calibration windows.
func loadFrame(cfg *config.Config, paths ciio.ImagingCIPaths, logs logger.Logger) (*dataset.ImagingCI, ciio.InjectionHeader, error) {
	geometry, err := cfg.GeometrySettings()
	if err != nil {
		return nil, ciio.InjectionHeader{}, err
	}
	d, header, err := ciio.LoadImagingCI(paths, geometry, cfg.LoadOptions())
	if err != nil {
		return nil, header, err
	}
	logs.Infof("Loaded CCD %s quadrant %s: %d injections of %d rows every %d rows at %.1f e-",
		header.CCDID, header.QuadrantID, header.InjectionTotal, header.InjectionOn,
		header.InjectionOn+header.InjectionOff, header.Normalization)

	// Report the regions in file coordinates so they can be checked against the FITS image
	raw, err := d.Layout().Rotated(geometry.ROECorner)
	if err != nil {
		return nil, header, err
	}
	logs.Debugf("Injection regions on disk: %v", raw.RegionList())

	maskSettings, err := cfg.MaskSettings()
	if err != nil {
		return nil, header, err
	}
	mask, err := dataset.Mask2DFrom(d.Layout(), maskSettings, d.CosmicRayMap())
	if err != nil {
		return nil, header, err
	}
	logs.Debugf("Masking %d pixels", mask.TotalMasked())
	if d, err = d.ApplyMask(mask); err != nil {
		return nil, header, err
	}

	calibration, err := cfg.CalibrationSettings()
	if err != nil {
		return nil, header, err
	}
	d, err = d.ApplySettings(calibration)
	return d, header, err
}

func printLines(d *dataset.ImagingCI, logs logger.Logger) {
	for _, lr := range layout.LineRegions {
		line, err := d.Layout().ExtractLineFrom(d.Image(), lr)
		if err != nil {
			logs.Infof("Skipping %s: %v", lr, err)
			continue
		}
		fmt.Printf("  %-20s %s\n", lr, formatLine(line))
	}
}

func formatLine(line *array.Array1D) string {
	parts := make([]string, line.Len())
	for i := range parts {
		if line.IsMasked(i) {
			parts[i] = "--"
		} else {
			parts[i] = fmt.Sprintf("%.2f", line.At(i))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// saveOutputs writes the diagnostics and extracted arrays requested by the
// config for frame i.
func saveOutputs(cfg *config.Config, a *analysis.AnalysisImagingCI, header ciio.InjectionHeader, i int) error {
	if !cfg.Output.SaveDiagnostics && !cfg.Output.SaveExtracted {
		return nil
	}
	dir := filepath.Join(cfg.Output.Dir, fmt.Sprintf("frame_%03d", i))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if cfg.Output.SaveDiagnostics {
		f, err := a.FitFrom(analysis.Instance{})
		if err != nil {
			return err
		}
		if err := visualization.SaveFitDiagnostics(f, dir); err != nil {
			return err
		}
	}

	if cfg.Output.SaveExtracted {
		d := a.Dataset()
		l := d.Layout()
		extracts := map[string]func(*array.Array2D) (*array.Array2D, error){
			"regions_ci":      l.Array2DOfRegionsFrom,
			"parallel_trails": l.Array2DOfParallelTrailsFrom,
		}
		if l.Scans().SerialOverscan != nil {
			extracts["serial_trails"] = l.Array2DOfSerialTrailsFrom
		}
		for name, extract := range extracts {
			out, err := extract(d.Image())
			if err != nil {
				return err
			}
			if err := ciio.WriteArray2D(filepath.Join(dir, name+".fits"), out, header.Cards()...); err != nil {
				return err
			}
		}
	}
	return nil
}
