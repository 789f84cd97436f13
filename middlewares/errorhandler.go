package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/pkg/validator"
)

// ErrorHandler renders handler errors as JSON:
//
//	{"error": "...", "code": "...", "request_id": "...", "fields": {...}}
//
// Panics and unknown errors become 500s with a generic message, timeouts
// become 504s, validation errors become 422s. Server-side failures are
// logged with the wrapped cause.
func ErrorHandler() internal.ErrorHandler {
	return func(c internal.Context, err error) error {
		he := toHTTPError(err)
		if he.RequestID == "" {
			he.RequestID = GetRequestID(c)
		}

		switch {
		case he.Code >= http.StatusInternalServerError:
			c.LogError("request failed", slog.Int("status", he.Code), slog.Any("error", err))
		case he.Err != nil:
			c.LogDebug("request rejected", slog.Int("status", he.Code), slog.Any("error", he.Err))
		}

		return c.JSON(he.Code, he)
	}
}

func toHTTPError(err error) *internal.HTTPError {
	if he := internal.AsHTTPError(err); he != nil {
		cp := *he
		return &cp
	}

	if verrs := validator.ExtractValidationErrors(err); len(verrs) > 0 {
		return internal.ErrUnprocessable("validation failed",
			internal.WithFields(verrs.Fields()),
			internal.WithErrorCode("validation_failed"),
		)
	}

	switch {
	case IsPanicError(err):
		return internal.ErrInternal(http.StatusText(http.StatusInternalServerError), internal.WithError(err))
	case IsTimeoutError(err), errors.Is(err, context.DeadlineExceeded):
		return internal.NewHTTPError(http.StatusGatewayTimeout, "request timeout", internal.WithError(err))
	case errors.Is(err, context.Canceled):
		return internal.NewHTTPError(499, "client closed request", internal.WithError(err))
	}

	return internal.ErrInternal(http.StatusText(http.StatusInternalServerError), internal.WithError(err))
}
