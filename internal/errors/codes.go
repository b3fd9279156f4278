package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"
	ErrUsage           ErrorCode = "usage"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Device errors
	ErrDeviceOpen  ErrorCode = "device_open_failed"
	ErrDeviceFetch ErrorCode = "device_fetch_failed"
	ErrDeviceStop  ErrorCode = "device_stop_failed"

	// Sink errors
	ErrSinkOpen  ErrorCode = "sink_open_failed"
	ErrSinkWrite ErrorCode = "sink_write_failed"
	ErrSinkClose ErrorCode = "sink_close_failed"

	// Capture errors
	ErrCaptureLoop ErrorCode = "capture_loop_failed"
	ErrDemux       ErrorCode = "demux_failed"

	// Stats errors
	ErrInitStats   ErrorCode = "init_stats_failed"
	ErrRecordStats ErrorCode = "record_stats_failed"
	ErrCloseStats  ErrorCode = "close_stats_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:        "Internal error occurred",
	ErrInvalidArgument: "Invalid argument provided",
	ErrAlreadyRunning:  "Another capture is already running",
	ErrInvalidConfig:   "Invalid configuration",
	ErrBindFlags:       "Failed to bind flags",
	ErrReadConfig:      "Failed to read config file",
	ErrInvalidLogLevel: "Invalid log level",
	ErrUsage:           "Must specify one or two file names",
	ErrInitFailed:      "Initialization failed",
	ErrShutdownFailed:  "Shutdown failed",
	ErrDeviceOpen:      "Failed to open device",
	ErrDeviceFetch:     "Failed to fetch packet container",
	ErrDeviceStop:      "Failed to stop device data delivery",
	ErrSinkOpen:        "Failed to open output file",
	ErrSinkWrite:       "Failed to write output file",
	ErrSinkClose:       "Failed to close output file",
	ErrCaptureLoop:     "Error in capture loop",
	ErrDemux:           "Failed to dispatch event packet",
	ErrInitStats:       "Failed to initialize stats store",
	ErrRecordStats:     "Failed to record rate window",
	ErrCloseStats:      "Failed to close stats store",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
