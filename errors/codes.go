package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Bootstrap taxonomy. These abort the process.
const (
	// ErrCodeConfiguration indicates a missing required field or an unparsable document.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeSecrets indicates the secrets store could not be read.
	ErrCodeSecrets ErrorCode = "SECRETS_ERROR"
	// ErrCodeAcquisition indicates a provider rejected an authorization flow or the flow could not be built.
	ErrCodeAcquisition ErrorCode = "ACQUISITION_ERROR"
	// ErrCodeTaskFailed indicates a long-running task of the join set failed.
	ErrCodeTaskFailed ErrorCode = "TASK_FAILED"
)

// Request-facing errors, rendered by the web server.
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUnauthorized indicates the request is unauthorized.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeDatabaseError indicates a database error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:         true,
	ErrCodeDatabaseError:   true,
	ErrCodeExternalService: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// exitCodes maps the bootstrap taxonomy to process exit codes.
var exitCodes = map[ErrorCode]int{
	ErrCodeConfiguration: 2,
	ErrCodeSecrets:       3,
	ErrCodeAcquisition:   4,
	ErrCodeTaskFailed:    1,
}
