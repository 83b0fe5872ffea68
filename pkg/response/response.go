package response

import (
	"errors"
	"net/http"

	"rfqportal/internal/apperr"
)

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Kind       string      `json:"kind,omitempty"` // error taxonomy kind, when known
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// FromError maps err to its HTTP status and envelope. Errors outside the
// taxonomy become a 500 with a generic message.
func FromError(err error) (int, Response) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, Error(http.StatusInternalServerError, "internal server error")
	}
	status := apperr.HTTPStatus(appErr.Kind)
	resp := Error(status, appErr.Error())
	resp.Kind = string(appErr.Kind)
	return status, resp
}
