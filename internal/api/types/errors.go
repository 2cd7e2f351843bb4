package types

import (
	"errors"
	"net/http"

	appErr "github.com/buildbuddy/engine/pkg/errors"
)

var statusByCode = map[appErr.Code]int{
	appErr.CodeValidation:   http.StatusBadRequest,
	appErr.CodeInvalid:      http.StatusBadRequest,
	appErr.CodeAuthRequired: http.StatusUnauthorized,
	appErr.CodeUnauthorized: http.StatusUnauthorized,
	appErr.CodeNotFound:     http.StatusNotFound,
	appErr.CodeStepLocked:   http.StatusConflict,
	appErr.CodeConflict:     http.StatusConflict,
	appErr.CodeGeneration:   http.StatusBadGateway,
	appErr.CodePersistence:  http.StatusServiceUnavailable,
	appErr.CodeUnavailable:  http.StatusServiceUnavailable,
}

// StatusOf maps an error code to its HTTP status.
func StatusOf(err error) int {
	if s, ok := statusByCode[appErr.CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// FromAppError builds the user-visible error body. Errors without a code
// never leak their text.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var e *appErr.AppError
	if !errors.As(err, &e) {
		return &APIError{Code: string(appErr.CodeUnknown), Message: "something went wrong, please try again"}
	}
	out := &APIError{Code: string(e.Code), Message: e.Message, Retryable: e.Retryable()}
	if step, ok := e.Meta["step"].(int); ok {
		out.Step = step
	}
	return out
}
