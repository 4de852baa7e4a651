package middleware

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"taskdeck/pkg/apperr"
	"taskdeck/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrorHandler renders every error as a {success:false} envelope.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID, _ := c.Locals("request_id").(string)

		var (
			status int
			body   = response.Response{Success: false}
		)

		var appErr *apperr.AppError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			status = appErr.Status
			body.Code = appErr.Code
			body.Message = appErr.Message
			if len(appErr.Details) > 0 {
				body.Data = appErr.Details
			}

			event := log.Warn()
			if status >= fiber.StatusInternalServerError {
				event = log.Error()
			}
			event.Err(appErr.Err).
				Str("request_id", requestID).
				Str("error_code", appErr.Code).
				Msg(appErr.Message)

		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			body.Code = mapHTTPStatusToCode(fiberErr.Code)
			body.Message = fiberErr.Message

		default:
			status = fiber.StatusInternalServerError
			body.Code = apperr.CodeInternalError
			body.Message = "An unexpected error occurred"

			log.Error().
				Err(err).
				Str("request_id", requestID).
				Str("stack", string(debug.Stack())).
				Msg("unexpected error")
		}

		return c.Status(status).JSON(body)
	}
}

// RequestID middleware adds a unique request ID to each request
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)
		return c.Next()
	}
}

// RequestLogger logs incoming requests and their responses
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID, _ := c.Locals("request_id").(string)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// ErrorHandler는 이 미들웨어 이후에 실행됨 → 상태 코드 추정
			status = apperr.GetHTTPStatus(err)
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				status = fiberErr.Code
			}
		}

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			event = log.Debug()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0).
			Msgf("%s %s -> %d", c.Method(), c.Path(), status)

		return err
	}
}

// Recover middleware recovers from panics
func Recover(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Locals("request_id").(string)
				log.Error().
					Str("request_id", requestID).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("path", c.Path()).
					Str("method", c.Method()).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				err = apperr.Internal("An unexpected error occurred")
			}
		}()
		return c.Next()
	}
}

func mapHTTPStatusToCode(status int) string {
	switch status {
	case 400:
		return apperr.CodeBadRequest
	case 401:
		return apperr.CodeUnauthorized
	case 404:
		return apperr.CodeNotFound
	case 405:
		return "METHOD_NOT_ALLOWED"
	case 413:
		return "PAYLOAD_TOO_LARGE"
	case 500:
		return apperr.CodeInternalError
	case 502, 503, 504:
		return "SERVICE_UNAVAILABLE"
	default:
		return "UNKNOWN_ERROR"
	}
}
