package device

import "codeberg.org/mutker/daviscap/internal/errors"

const (
	ErrUnsupportedDriver = errors.ErrorCode("device_unsupported_driver")
	ErrMissingSource     = errors.ErrorCode("device_missing_source")
	ErrReadFailed        = errors.ErrorCode("device_read_failed")
	ErrStopped           = errors.ErrorCode("device_stopped")
)
