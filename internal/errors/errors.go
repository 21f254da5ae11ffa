package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error. Phase and Criterion
// are filled in for pipeline failures so terminal reports can name where
// and why an experiment stopped.
type AppError struct {
	Code      string
	Message   string
	Phase     string
	Criterion string
	Cause     error
}

func (e *AppError) Error() string {
	prefix := e.Message
	if e.Phase != "" {
		prefix = fmt.Sprintf("[%s] %s", e.Phase, prefix)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Cause)
	}
	return prefix
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context, keeping the code of an
// existing AppError in the chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return &AppError{
			Code:      appErr.Code,
			Message:   message,
			Phase:     appErr.Phase,
			Criterion: appErr.Criterion,
			Cause:     err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		c := *appErr
		c.Code = code
		return &c
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// WithPhase attaches the originating phase, converting plain errors to
// INTERNAL_ERROR. An existing phase is not overwritten.
func WithPhase(err error, phase string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		if appErr.Phase != "" {
			return err
		}
		c := *appErr
		c.Phase = phase
		if err != appErr {
			c.Cause = err
			c.Message = appErr.Message
		}
		return &c
	}
	return &AppError{Code: CodeInternalError, Message: err.Error(), Phase: phase, Cause: err}
}

// As finds the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := As(err)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Error codes. The first group is the validation taxonomy.
const (
	CodeSoftViolation     = "SOFT_VALIDATION_VIOLATION"
	CodeHardPhysical      = "HARD_PHYSICAL_VIOLATION"
	CodePlausibilityTrap  = "EMPIRICAL_PLAUSIBILITY_TRAP"
	CodeDataAuthenticity  = "DATA_AUTHENTICITY_ERROR"
	CodePhaseTimeout      = "PHASE_TIMEOUT"
	CodeConfigInvalid     = "CONFIGURATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeExternalService   = "EXTERNAL_SERVICE_ERROR"
	CodeExternalPermanent = "EXTERNAL_SERVICE_PERMANENT"
	CodeCancelled         = "CANCELLED"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInterrupted       = "RUN_INTERRUPTED"
)

// IsRetryable reports whether the failure may be retried after correction:
// soft violations, timeouts and transient collaborator errors.
func IsRetryable(err error) bool {
	switch GetCode(err) {
	case CodeSoftViolation, CodePhaseTimeout, CodeExternalService:
		return true
	}
	return false
}

// IsHard reports whether the failure must propagate to failed immediately.
func IsHard(err error) bool {
	switch GetCode(err) {
	case CodeHardPhysical, CodePlausibilityTrap, CodeDataAuthenticity,
		CodeExternalPermanent, CodeConfigInvalid:
		return true
	}
	return false
}

// Common error constructors
func SoftViolation(criterion, message string) *AppError {
	return &AppError{Code: CodeSoftViolation, Message: message, Criterion: criterion}
}

func HardPhysical(criterion, message string) *AppError {
	return &AppError{Code: CodeHardPhysical, Message: message, Criterion: criterion}
}

func PlausibilityTrap(snrDB, floorDB float64) *AppError {
	return &AppError{
		Code:      CodePlausibilityTrap,
		Message:   fmt.Sprintf("snr %.2f dB below floor %.2f dB", snrDB, floorDB),
		Criterion: "detectability",
	}
}

func DataAuthenticity(source string, cause error) *AppError {
	return &AppError{
		Code:      CodeDataAuthenticity,
		Message:   fmt.Sprintf("dataset %q failed authenticity mandate", source),
		Criterion: "data_authenticity",
		Cause:     cause,
	}
}

func PhaseTimeout(phase string, cause error) *AppError {
	return &AppError{
		Code:    CodePhaseTimeout,
		Message: "collaborator call timed out",
		Phase:   phase,
		Cause:   cause,
	}
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func ConfigInvalidf(format string, args ...interface{}) *AppError {
	return Newf(CodeConfigInvalid, format, args...)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

// Interrupted marks a run that a previous process left unfinished.
func Interrupted(phase string) *AppError {
	return &AppError{Code: CodeInterrupted, Message: "run interrupted by process restart", Phase: phase}
}

func Cancelled(phase string) *AppError {
	return &AppError{Code: CodeCancelled, Message: "experiment cancelled", Phase: phase}
}

// ExternalServiceError is a transient collaborator failure, eligible for retry.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s service error", service),
		Cause:   cause,
	}
}

// ExternalPermanentError is an unrecoverable collaborator failure.
func ExternalPermanentError(service string, cause error) *AppError {
	return &AppError{
		Code:    CodeExternalPermanent,
		Message: fmt.Sprintf("%s service failed permanently", service),
		Cause:   cause,
	}
}
