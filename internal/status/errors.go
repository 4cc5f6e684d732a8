package status

import "codeberg.org/mutker/printwatch/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("status_invalid_config")

	// Publish Errors
	ErrPublishFailed = errors.ErrorCode("status_publish_failed")
	ErrAuditFailed   = errors.ErrorCode("status_audit_append_failed")

	// Lifecycle Errors
	ErrInitFailed  = errors.ErrInitFailed
	ErrCloseFailed = errors.ErrShutdownFailed
)
