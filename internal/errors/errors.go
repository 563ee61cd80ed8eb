package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so wrapped instances compare equal to the predefined values.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrProviderNotConfigured = &AppError{Code: "LLM_001", Message: "no LLM provider configured"}
	ErrProviderUnavailable   = &AppError{Code: "LLM_002", Message: "LLM provider unavailable"}
	ErrRateLimited           = &AppError{Code: "LLM_003", Message: "rate limit exceeded"}
	ErrEmptyCompletion       = &AppError{Code: "LLM_004", Message: "empty completion"}

	ErrStoreRead  = &AppError{Code: "STORE_001", Message: "storage read failed"}
	ErrStoreWrite = &AppError{Code: "STORE_002", Message: "storage write failed"}
	ErrLeaseHeld  = &AppError{Code: "STORE_003", Message: "generation lease held"}

	ErrInvalidDifficulty = &AppError{Code: "PLAN_001", Message: "invalid difficulty"}
	ErrPlanNotFound      = &AppError{Code: "PLAN_002", Message: "plan not found"}
	ErrMalformedSchedule = &AppError{Code: "PLAN_003", Message: "malformed schedule"}

	ErrInvalidCron  = &AppError{Code: "SCHED_001", Message: "invalid cron expression"}
	ErrJobNotFound  = &AppError{Code: "SCHED_002", Message: "scheduled job not found"}
	ErrInvalidDate  = &AppError{Code: "SCHED_003", Message: "invalid date"}
	ErrRunnerActive = &AppError{Code: "SCHED_004", Message: "runner already running"}

	ErrUnauthorized = &AppError{Code: "AUTH_001", Message: "unauthorized"}
	ErrForbidden    = &AppError{Code: "AUTH_002", Message: "forbidden"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapAs wraps err under the code and message of one of the predefined errors.
func WrapAs(base *AppError, err error) *AppError {
	return Wrap(err, base.Code, base.Message)
}
