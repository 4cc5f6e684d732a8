package printer

import "codeberg.org/mutker/printwatch/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig    = errors.ErrorCode("printer_invalid_config")
	ErrInvalidSourceURL = errors.ErrorCode("printer_invalid_source_url")

	// Fetch Errors
	ErrFetchFailed      = errors.ErrorCode("printer_fetch_failed")
	ErrUnexpectedStatus = errors.ErrorCode("printer_unexpected_http_status")
	ErrMalformedPayload = errors.ErrorCode("printer_malformed_payload")

	// Reading Errors
	ErrInvalidReading   = errors.ErrorCode("printer_invalid_reading")
	ErrInvalidTimestamp = errors.ErrorCode("printer_invalid_timestamp")
)
