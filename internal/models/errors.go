package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes surfaced to API callers.
const (
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeInvalidIdentity  = "INVALID_IDENTITY"
	CodeNotFound         = "NOT_FOUND"
	CodeAlreadyFriends   = "ALREADY_FRIENDS"
	CodeDuplicateRequest = "DUPLICATE_REQUEST"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeUnavailable      = "UNAVAILABLE"
)

// Sentinels for errors.Is. Any *AppError with the same code matches.
var (
	ErrInvalidArgument  = &AppError{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrInvalidIdentity  = &AppError{Code: CodeInvalidIdentity, Message: "invalid identity"}
	ErrNotFound         = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyFriends   = &AppError{Code: CodeAlreadyFriends, Message: "already friends"}
	ErrDuplicateRequest = &AppError{Code: CodeDuplicateRequest, Message: "duplicate request"}
	ErrPermissionDenied = &AppError{Code: CodePermissionDenied, Message: "permission denied"}
	ErrUnavailable      = &AppError{Code: CodeUnavailable, Message: "unavailable"}
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewInvalidArgumentError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidArgument,
		Message: message,
	}
}

func NewInvalidIdentityError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidIdentity,
		Message: message,
	}
}

func NewAlreadyFriendsError() *AppError {
	return &AppError{
		Code:    CodeAlreadyFriends,
		Message: "You are already friends",
	}
}

func NewDuplicateRequestError(message string) *AppError {
	return &AppError{
		Code:    CodeDuplicateRequest,
		Message: message,
	}
}

func NewPermissionDeniedError(message string) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
	}
}

// NewUnavailableError wraps a store or transport failure.
func NewUnavailableError(err error) *AppError {
	return &AppError{
		Code:    CodeUnavailable,
		Message: "Store unavailable",
		Err:     err,
	}
}

// StatusFor maps an error to the HTTP status used for it.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeInvalidArgument, CodeInvalidIdentity:
		return fiber.StatusBadRequest
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeAlreadyFriends, CodeDuplicateRequest:
		return fiber.StatusConflict
	case CodePermissionDenied:
		return fiber.StatusForbidden
	case CodeUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil && appErr.Code != CodeUnavailable {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

// RespondWithAppError writes err with the status derived from its code.
func RespondWithAppError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, StatusFor(err), err)
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
