package models

import (
	"errors"
	"net/http"
)

// ErrorCode is the stable numeric code carried in every error envelope.
type ErrorCode int

const (
	CodeSuccess ErrorCode = 0

	// Authentication 1001-1099
	CodeUnauthorized     ErrorCode = 1001
	CodeTokenMissing     ErrorCode = 1002
	CodeTokenInvalid     ErrorCode = 1003
	CodeTokenExpired     ErrorCode = 1004
	CodePermissionDenied ErrorCode = 1006

	// Request 1100-1199
	CodeBadRequest    ErrorCode = 1100
	CodeInvalidParams ErrorCode = 1101

	// Resources 1200-1299
	CodeNotFound         ErrorCode = 1200
	CodeResourceExpired  ErrorCode = 1201
	CodeResourceExists   ErrorCode = 1202
	CodeResourceConflict ErrorCode = 1203

	// QR login 1300-1399
	CodeQRNotFound ErrorCode = 1300
	CodeQRExpired  ErrorCode = 1301

	// One-time codes 1400-1499
	CodeEmailSendFailed       ErrorCode = 1400
	CodeEmailRateLimitReached ErrorCode = 1403

	// Server 2000-2999
	CodeInternalError ErrorCode = 2000
	CodeDatabaseError ErrorCode = 2001
)

// HTTPStatus maps an error code to the single HTTP status it is served with.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeSuccess:
		return http.StatusOK
	case CodeUnauthorized, CodeTokenMissing, CodeTokenInvalid, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeBadRequest, CodeInvalidParams, CodeResourceExists, CodeResourceConflict,
		CodeResourceExpired, CodeQRExpired, CodeEmailSendFailed, CodeEmailRateLimitReached:
		return http.StatusBadRequest
	case CodeNotFound, CodeQRNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Code ErrorCode `json:"code"`
	Msg  string    `json:"msg"`
	Path string    `json:"path,omitempty"`
}

// SuccessResponse is the uniform success envelope.
type SuccessResponse struct {
	Code ErrorCode   `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

func NewErrorResponse(code ErrorCode, msg string) *ErrorResponse {
	return &ErrorResponse{Code: code, Msg: msg}
}

func NewErrorResponseWithPath(code ErrorCode, msg, path string) *ErrorResponse {
	return &ErrorResponse{Code: code, Msg: msg, Path: path}
}

func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{Code: CodeSuccess, Msg: "success", Data: data}
}

// CodeForError resolves a domain error to its wire code.
func CodeForError(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return CodeQRNotFound
	case errors.Is(err, ErrSessionExpired):
		return CodeQRExpired
	case errors.Is(err, ErrSessionInvalidState):
		return CodeResourceConflict
	case errors.Is(err, ErrSessionConflict):
		return CodeResourceExists
	case errors.Is(err, ErrTokenMissing):
		return CodeTokenMissing
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return CodeTokenInvalid
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, ErrUnknownRole):
		return CodeInvalidParams
	case errors.Is(err, ErrCodeRateLimited):
		return CodeEmailRateLimitReached
	case errors.Is(err, ErrCodePublish):
		return CodeEmailSendFailed
	case errors.Is(err, ErrUserNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDatabaseQuery),
		errors.Is(err, ErrDatabaseInsert),
		errors.Is(err, ErrDatabaseConnection),
		errors.Is(err, ErrRedisGet),
		errors.Is(err, ErrRedisSet),
		errors.Is(err, ErrSessionCreating),
		errors.Is(err, ErrSessionUpdating):
		return CodeDatabaseError
	default:
		return CodeInternalError
	}
}
