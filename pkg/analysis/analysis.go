// Package analysis connects charge injection datasets to a sampler. An
// Analysis turns a proposed CTI model into a log likelihood by clocking the
// pre-CTI image through an external Clocker and fitting the result.
package analysis

import (
	"fmt"

	"cticalib/internal/models"
	"cticalib/pkg/array"
	"cticalib/pkg/dataset"
	"cticalib/pkg/fit"
	"cticalib/pkg/logger"
)

// Clocker adds CTI to an image by simulating readout through traps. The
// physics lives outside this module.
type Clocker interface {
	AddCTI(image *array.Array2D, cti models.CTI2D) (*array.Array2D, error)
}

// NoCTIClocker returns images unchanged. Fitting with it gives the baseline
// likelihood of a perfect detector.
type NoCTIClocker struct{}

func (NoCTIClocker) AddCTI(image *array.Array2D, _ models.CTI2D) (*array.Array2D, error) {
	return image.Clone(), nil
}

// Instance is one point of parameter space proposed by a sampler.
type Instance struct {
	CTI models.CTI2D
	// HyperNoise is nil when the noise map is used as is.
	HyperNoise *fit.HyperNoiseCollection
}

func (i Instance) hyperNoiseScalars() []*fit.HyperNoiseScalar {
	if i.HyperNoise == nil {
		return nil
	}
	return i.HyperNoise.List()
}

// Analysis is anything that scores an Instance.
type Analysis interface {
	LogLikelihoodFunction(instance Instance) (float64, error)
}

// AnalysisImagingCI scores instances against a single charge injection
// dataset.
type AnalysisImagingCI struct {
	dataset  *dataset.ImagingCI
	clocker  Clocker
	settings SettingsCTI2D
	log      logger.Logger
}

// NewAnalysisImagingCI creates an analysis. A nil log discards messages.
func NewAnalysisImagingCI(d *dataset.ImagingCI, clocker Clocker, settings SettingsCTI2D, log logger.Logger) *AnalysisImagingCI {
	if log == nil {
		log = logger.Discard{}
	}
	return &AnalysisImagingCI{dataset: d, clocker: clocker, settings: settings, log: log}
}

// Dataset returns the analysed dataset.
func (a *AnalysisImagingCI) Dataset() *dataset.ImagingCI { return a.dataset }

// LogLikelihoodFunction returns the log likelihood of instance. Instances
// outside the density prior return a *PriorError, which samplers should treat
// as zero probability.
func (a *AnalysisImagingCI) LogLikelihoodFunction(instance Instance) (float64, error) {
	if err := a.settings.CheckTotalDensityWithinRange(instance.CTI); err != nil {
		a.log.Debugf("Rejected instance: %v", err)
		return 0, err
	}
	f, err := a.FitFrom(instance)
	if err != nil {
		return 0, err
	}
	a.log.Debugf("Log likelihood %f (chi-squared %f over %d pixels)", f.LogLikelihood(), f.ChiSquared(), f.TotalUnmasked())
	return f.LogLikelihood(), nil
}

// FitFrom clocks the dataset's pre-CTI image with instance and fits the
// result to the data.
func (a *AnalysisImagingCI) FitFrom(instance Instance) (*fit.FitImagingCI, error) {
	postCTI, err := a.clocker.AddCTI(a.dataset.PreCTIImage(), instance.CTI)
	if err != nil {
		return nil, fmt.Errorf("clocking pre-CTI image: %w", err)
	}
	return fit.NewFitImagingCI(a.dataset, postCTI, instance.hyperNoiseScalars())
}

// MakeResult wraps the output of a search.
func (a *AnalysisImagingCI) MakeResult(samples Samples) *Result {
	return &Result{Samples: samples, analysis: a}
}
