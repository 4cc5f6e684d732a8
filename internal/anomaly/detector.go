// Package anomaly provides online outlier detection over the nozzle
// temperature signal: a bounded sliding window, a once-trained isolation
// forest, and a fixed overheat threshold fused with the model's vote.
package anomaly

import (
	"math"

	"codeberg.org/mutker/printwatch/internal/errors"
)

// Verdict is the per-sample classification.
type Verdict int

const (
	// VerdictInsufficientData means the window has not yet reached the
	// baseline size; no classification is possible.
	VerdictInsufficientData Verdict = iota
	VerdictNormal
	VerdictAnomalous
)

func (v Verdict) String() string {
	switch v {
	case VerdictNormal:
		return "normal"
	case VerdictAnomalous:
		return "anomalous"
	default:
		return "insufficient_data"
	}
}

// Detector holds the sliding window and the one-shot model. It is owned and
// mutated by the poll loop only; it is not safe for concurrent use.
type Detector struct {
	cfg     Config
	window  []float64
	trained bool
	model   *forest
}

func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Detector{
		cfg:    cfg,
		window: make([]float64, 0, cfg.WindowSize),
	}, nil
}

// Observe pushes one temperature sample into the window and classifies it.
//
// The first time the window reaches the baseline size the model is fitted on
// the earliest baseline-size samples and never refitted; that early window is
// treated as the normal-operation baseline for the process lifetime (Reset is
// the only way back). Once trained, a sample is anomalous when the model
// votes outlier OR the sample exceeds the fixed threshold; the threshold
// overrides a dissenting model.
//
// Invalid samples (non-finite or outside the plausible temperature range) are
// rejected without touching the window and get no classification.
func (d *Detector) Observe(value float64) (Verdict, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < minValidTemp || value > maxValidTemp {
		return VerdictInsufficientData, errors.New().WithData(ErrInvalidSample, value)
	}

	if len(d.window) >= d.cfg.WindowSize {
		d.window = d.window[1:]
	}
	d.window = append(d.window, value)

	// Training triggers before the window can evict, so window[:baseline]
	// is exactly the first baseline-size samples ever observed.
	if !d.trained && len(d.window) >= d.cfg.BaselineSize {
		d.model = fitForest(d.window[:d.cfg.BaselineSize], d.cfg.Forest)
		d.trained = true
	}

	if !d.trained {
		return VerdictInsufficientData, nil
	}

	if value > d.cfg.TempThreshold || d.model.isOutlier(value) {
		return VerdictAnomalous, nil
	}

	return VerdictNormal, nil
}

// Trained reports whether the one-shot training has happened.
func (d *Detector) Trained() bool {
	return d.trained
}

// WindowLen returns the current window length.
func (d *Detector) WindowLen() int {
	return len(d.window)
}

// Reset discards the window and the fitted model so the next baseline-size
// samples retrain it. Retrain hook; the engine never calls it.
func (d *Detector) Reset() {
	d.window = d.window[:0]
	d.trained = false
	d.model = nil
}
