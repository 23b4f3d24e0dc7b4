package engine

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"metadesk-backend/internal/metadata"
	"metadesk-backend/internal/store"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(entity, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

func UnknownEntityError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_ENTITY",
		Status:  404,
		Message: fmt.Sprintf("Unknown entity: %s", name),
	}
}

func InvalidPayloadError(msg string) *AppError {
	return &AppError{Code: "INVALID_PAYLOAD", Status: 400, Message: msg}
}

func ConflictError(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Status: 409, Message: msg}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}

// storeError maps model client errors to API errors. Errors it does not
// recognize are returned unchanged and end up as INTERNAL_ERROR.
func storeError(err error) error {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, store.ErrUniqueViolation):
		return ConflictError("A record with this value already exists")
	case errors.Is(err, store.ErrUnknownField), errors.Is(err, store.ErrInvalidQuery):
		return InvalidPayloadError(err.Error())
	case errors.Is(err, metadata.ErrEntityNotFound):
		return NewAppError("UNKNOWN_ENTITY", 404, err.Error())
	}
	return err
}

// ErrorHandler renders AppErrors as {"error": {...}} and hides everything
// else behind INTERNAL_ERROR.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) && fiberErr.Code < 500 {
			code := "INVALID_PAYLOAD"
			if fiberErr.Code == fiber.StatusNotFound {
				code = "NOT_FOUND"
			}
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Error: &AppError{Code: code, Message: fiberErr.Message},
			})
		}

		logger.Error("request failed",
			zap.Any("request_id", c.Locals("request_id")),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error"},
		})
	}
}
