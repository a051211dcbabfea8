package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	ErrCodeMissingInput     ErrCode = "MISSING_INPUT"
	ErrCodeModelUnknown     ErrCode = "MODEL_UNKNOWN"
	ErrCodeInvalidParameter ErrCode = "INVALID_PARAMETER"
	ErrCodeUnavailable      ErrCode = "UNAVAILABLE"
	ErrCodeInternal         ErrCode = "INTERNAL"
)

type ErrCode string

// ErrorInfo is the error payload returned to API clients.
type ErrorInfo struct {
	HttpStatus int     `json:"-"`
	Code       ErrCode `json:"code"`
	Message    string  `json:"error"`
}

func (e ErrorInfo) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func IsErrCode(err error, code ErrCode) bool {
	if err == nil {
		return false
	}
	info := ErrorInfo{}
	if errors.As(err, &info) {
		return info.Code == code
	}
	return false
}

func NewMissingInputError() ErrorInfo {
	return ErrorInfo{HttpStatus: http.StatusBadRequest, Code: ErrCodeMissingInput, Message: "No file or model name provided"}
}

func NewModelUnknownError() ErrorInfo {
	return ErrorInfo{HttpStatus: http.StatusBadRequest, Code: ErrCodeModelUnknown, Message: "Model not found"}
}

func NewParameterInvalidError(msg string) ErrorInfo {
	return ErrorInfo{HttpStatus: http.StatusBadRequest, Code: ErrCodeInvalidParameter, Message: msg}
}

func NewUnavailableError(err error) ErrorInfo {
	return ErrorInfo{HttpStatus: http.StatusServiceUnavailable, Code: ErrCodeUnavailable, Message: err.Error()}
}

func NewInternalError(err error) ErrorInfo {
	return ErrorInfo{HttpStatus: http.StatusInternalServerError, Code: ErrCodeInternal, Message: err.Error()}
}
