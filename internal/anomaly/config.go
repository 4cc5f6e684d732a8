package anomaly

import "codeberg.org/mutker/printwatch/internal/errors"

const (
	defaultWindowSize    = 50
	defaultBaselineSize  = 30
	defaultTempThreshold = 225.0

	// Samples outside this range are sensor glitches, not temperatures,
	// and never enter the window.
	minValidTemp = 0.0
	maxValidTemp = 500.0
)

type Config struct {
	// WindowSize bounds the sliding sample window.
	WindowSize int
	// BaselineSize is the number of earliest samples the model trains on,
	// and the window length that triggers the one-shot training.
	BaselineSize int
	// TempThreshold flags any sample above it once the model is trained,
	// regardless of the model's own vote.
	TempThreshold float64
	Forest        ForestConfig
}

func DefaultConfig() Config {
	return Config{
		WindowSize:    defaultWindowSize,
		BaselineSize:  defaultBaselineSize,
		TempThreshold: defaultTempThreshold,
		Forest:        DefaultForestConfig(),
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.BaselineSize < 2 {
		return errFactory.WithMessage(ErrInvalidConfig, "baseline size must be at least 2")
	}
	if c.WindowSize < c.BaselineSize {
		return errFactory.WithMessage(ErrInvalidConfig, "window size must not be below baseline size")
	}
	if c.TempThreshold <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "temperature threshold must be positive")
	}

	return c.Forest.Validate()
}
