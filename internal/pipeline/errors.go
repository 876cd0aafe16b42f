package pipeline

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Stage names carried on hard failures for observability.
const (
	StageInput    = "input_validation"
	StageDetect   = "subject_language_detection"
	StageClassify = "primary_classification"
)

// Error is the single typed error the pipeline surfaces to callers. Soft
// failures are absorbed at their stage boundary and never reach here.
type Error struct {
	Code  ErrorCode
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("pipeline: %s at %s", e.Code, e.Stage)
	}
	return fmt.Sprintf("pipeline: %s at %s: %v", e.Code, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, stage string, err error) *Error {
	return &Error{Code: code, Stage: stage, Err: err}
}
