package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the unified API response format. Callers branch on Success,
// never on the HTTP status alone.
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Kind    Kind        `json:"kind,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Kind classifies a failed operation.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindInvalidArgument Kind = "invalid_argument"
	KindConflict        Kind = "conflict"
	KindNoApprovedItems Kind = "no_approved_items"
	KindUpstreamFailure Kind = "upstream_failure"
	KindRateLimited     Kind = "rate_limited"
)

// AppError represents a structured application error with HTTP status and error code.
type AppError struct {
	HTTPStatus int    // HTTP status code (e.g. 400, 404, 500)
	Code       int    // Application-level error code
	Kind       Kind   // Error class, stable across messages
	Message    string // Human-readable error message
}

func (e *AppError) Error() string {
	return e.Message
}

// Is matches any *AppError of the same Kind, so callers can write
// errors.Is(err, response.ErrForbidden).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrUnauthenticated = &AppError{Kind: KindUnauthenticated}
	ErrForbidden       = &AppError{Kind: KindForbidden}
	ErrNotFound        = &AppError{Kind: KindNotFound}
	ErrInvalidArgument = &AppError{Kind: KindInvalidArgument}
	ErrConflict        = &AppError{Kind: KindConflict}
	ErrNoApprovedItems = &AppError{Kind: KindNoApprovedItems}
	ErrUpstreamFailure = &AppError{Kind: KindUpstreamFailure}
)

// KindOf returns the Kind carried by err, or KindUpstreamFailure for errors
// that did not originate as an *AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUpstreamFailure
}

// Pre-defined error constructors

func NewUnauthenticated(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Code: 401, Kind: KindUnauthenticated, Message: msg}
}

func NewForbidden(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusForbidden, Code: 403, Kind: KindForbidden, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Code: 404, Kind: KindNotFound, Message: msg}
}

func NewInvalidArgument(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Code: 400, Kind: KindInvalidArgument, Message: msg}
}

func NewConflict(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Code: 409, Kind: KindConflict, Message: msg}
}

func NewNoApprovedItems(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnprocessableEntity, Code: 422, Kind: KindNoApprovedItems, Message: msg}
}

func NewUpstreamFailure(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusServiceUnavailable, Code: 503, Kind: KindUpstreamFailure, Message: msg}
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error sends an error response. If err is an *AppError, its code and status
// are used; anything else is reported as an upstream failure.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Response{
			Code:    appErr.Code,
			Kind:    appErr.Kind,
			Message: appErr.Message,
		})
		return
	}
	c.JSON(http.StatusServiceUnavailable, Response{
		Code:    503,
		Kind:    KindUpstreamFailure,
		Message: err.Error(),
	})
}

// Abort writes the error and stops the handler chain; used by middleware.
func Abort(c *gin.Context, err *AppError) {
	Error(c, err)
	c.Abort()
}

// Convenience error response functions

func BadRequest(c *gin.Context, msg string) {
	Error(c, NewInvalidArgument(msg))
}

func Unauthorized(c *gin.Context, msg string) {
	Error(c, NewUnauthenticated(msg))
}

func Forbidden(c *gin.Context, msg string) {
	Error(c, NewForbidden(msg))
}

func NotFound(c *gin.Context, msg string) {
	Error(c, NewNotFound(msg))
}

func TooManyRequests(c *gin.Context, msg string) {
	c.JSON(http.StatusTooManyRequests, Response{Code: 429, Kind: KindRateLimited, Message: msg})
}
