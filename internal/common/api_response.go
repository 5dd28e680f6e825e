package common

import (
	"encoding/json"
	"net/http"
	"time"

	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/logging"
	"savings-circle/rosca/internal/models/dtos"
)

// RespondSuccess sends a standardized JSON success response.
func RespondSuccess(w http.ResponseWriter, initTime time.Time, message string, data any, statusCode ...int) {
	code := http.StatusOK
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	response := dtos.APIResponse{
		Status:       string(constants.APIStatusOk),
		Message:      message,
		ResponseTime: GetResponseTime(initTime),
		Data:         data,
	}

	writeJSON(w, code, response)
}

// RespondError sends a standardized JSON error response. Domain errors carry
// their kind, code and any amounts in the error detail. Other errors get a
// code derived from the status, and 5xx causes are not echoed back.
func RespondError(w http.ResponseWriter, initTime time.Time, err error, message string, statusCode ...int) {
	code := apperrors.HTTPStatus(err)
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	msg := message
	detail := &dtos.ErrorDetail{}

	if appErr, ok := apperrors.As(err); ok {
		msg = appErr.Message
		detail.Code = appErr.Code
		detail.Kind = string(appErr.Kind)
		detail.RequiredAmount = appErr.RequiredAmount
		detail.CurrentBalance = appErr.CurrentBalance
		detail.Members = appErr.Shortfalls
	} else {
		detail.Code = transportCode(code)
		if err != nil && code < http.StatusInternalServerError && err.Error() != "" {
			msg = err.Error()
		}
		if msg == "" {
			msg = constants.GetErrorMessage(detail.Code)
		}
	}

	response := dtos.APIResponse{
		Status:       string(constants.APIStatusError),
		Message:      msg,
		ResponseTime: GetResponseTime(initTime),
		Error:        detail,
	}

	writeJSON(w, code, response)
}

func transportCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return constants.ErrCodeBadRequest
	case http.StatusUnauthorized:
		return constants.ErrCodeUnauthorized
	case http.StatusForbidden:
		return constants.ErrCodeForbidden
	case http.StatusTooManyRequests:
		return constants.ErrCodeRateLimited
	case http.StatusNotFound:
		return constants.ErrCodeNotFound
	default:
		return constants.ErrCodeInternal
	}
}

// writeJSON marshals data and writes it to the HTTP response.
func writeJSON(w http.ResponseWriter, code int, body dtos.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("JSON encode failed", "error", err.Error())
	}
}
