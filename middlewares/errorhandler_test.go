package middlewares_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/middlewares"
	"github.com/dmitrymomot/dispatch/pkg/validator"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantCode   string
	}{
		{
			name:       "http error",
			err:        fmt.Errorf("wrapped: %w", internal.ErrConflict("dispatch in progress", internal.WithErrorCode("dispatch_in_progress"))),
			wantStatus: http.StatusConflict,
			wantError:  "dispatch in progress",
			wantCode:   "dispatch_in_progress",
		},
		{
			name:       "validation errors",
			err:        validator.ValidationErrors{{Field: "sendIds", Rule: "required", Message: "is required"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "validation failed",
			wantCode:   "validation_failed",
		},
		{
			name:       "timeout",
			err:        &middlewares.TimeoutError{Duration: time.Second},
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "request timeout",
		},
		{
			name:       "panic",
			err:        &middlewares.PanicError{Value: "boom"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal Server Error",
		},
		{
			name:       "unknown",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal Server Error",
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "request timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", "req-42")
			rec := httptest.NewRecorder()
			ctx := newTestContext(rec, req)

			err := middlewares.RequestID()(func(c internal.Context) error {
				return middlewares.ErrorHandler()(c, tt.err)
			})(ctx)
			require.NoError(t, err)

			require.Equal(t, tt.wantStatus, rec.Code)

			var body struct {
				Error     string            `json:"error"`
				Code      string            `json:"code"`
				RequestID string            `json:"request_id"`
				Fields    map[string]string `json:"fields"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tt.wantError, body.Error)
			require.Equal(t, tt.wantCode, body.Code)
			require.Equal(t, "req-42", body.RequestID)
		})
	}
}

func TestErrorHandler_DoesNotMutateSharedError(t *testing.T) {
	t.Parallel()

	shared := internal.ErrNotFound("draft not found")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	ctx := newTestContext(httptest.NewRecorder(), req)

	err := middlewares.RequestID()(func(c internal.Context) error {
		return middlewares.ErrorHandler()(c, shared)
	})(ctx)
	require.NoError(t, err)
	require.Empty(t, shared.RequestID)
}
