package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Timestamp        time.Time         `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	ErrorCode        string            `json:"errorCode"`
	Message          string            `json:"message"`
	Path             string            `json:"path"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

// NewErrorResponse translates err into a response body for path
func NewErrorResponse(err error, path string, now time.Time) ErrorResponse {
	code := errorCodeFor(err)
	public := code.Public()
	status := public.Status()

	resp := ErrorResponse{
		Timestamp: now.UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		ErrorCode: string(public),
		Message:   public.Message(),
		Path:      path,
	}

	if code == CodeValidationFailed {
		resp.ValidationErrors = ValidationErrors(err)
	}
	return resp
}

func errorCodeFor(err error) ErrorCode {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return CodeResourceNotFound
		case fiber.StatusMethodNotAllowed:
			return CodeMethodNotSupported
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
			return CodeInvalidRequestBody
		default:
			return CodeInternal
		}
	}
	return CodeOf(err)
}

// NewErrorHandler returns the fiber error handler translating errors to
// ErrorResponse bodies. Expected failures log at warn, the rest at error.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = resolveLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		resp := NewErrorResponse(err, c.Path(), time.Now())

		if resp.Status >= http.StatusInternalServerError {
			args := []any{"path", c.Path(), "method", c.Method(), "error", err}
			if oopsErr, ok := oops.AsOops(err); ok {
				args = append(args, "stacktrace", oopsErr.Stacktrace())
			}
			logger.Error("request failed", args...)
		} else {
			logger.Warn("request rejected",
				"path", c.Path(),
				"method", c.Method(),
				"status", resp.Status,
				"code", resp.ErrorCode,
				"error", err,
			)
		}

		return c.Status(resp.Status).JSON(resp)
	}
}
