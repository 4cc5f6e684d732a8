package anomaly

import "codeberg.org/mutker/printwatch/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("anomaly_invalid_config")

	// Input Errors
	ErrInvalidSample = errors.ErrorCode("anomaly_invalid_sample")
)
