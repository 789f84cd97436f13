package middlewares_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/pkg/job"
	"github.com/dmitrymomot/dispatch/pkg/validator"
)

// testContext is a minimal internal.Context backed by a recorder.
type testContext struct {
	response http.ResponseWriter
	request  *http.Request
	values   map[any]any
	body     []byte
	bodyRead bool
	written  bool
	mu       sync.Mutex
}

func newTestContext(w http.ResponseWriter, r *http.Request) *testContext {
	return &testContext{
		response: w,
		request:  r,
		values:   make(map[any]any),
	}
}

func (c *testContext) Request() *http.Request        { return c.req() }
func (c *testContext) Response() http.ResponseWriter { return c.response }
func (c *testContext) Context() context.Context      { return c.req().Context() }
func (c *testContext) Param(string) string           { return "" }
func (c *testContext) Query(name string) string      { return c.req().URL.Query().Get(name) }
func (c *testContext) Header(name string) string     { return c.req().Header.Get(name) }
func (c *testContext) SetHeader(name, value string)  { c.response.Header().Set(name, value) }

func (c *testContext) req() *http.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.request
}

func (c *testContext) Body() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bodyRead {
		return c.body, nil
	}
	if c.request.Body != nil {
		b, err := io.ReadAll(c.request.Body)
		if err != nil {
			return nil, err
		}
		c.body = b
		c.request.Body = io.NopCloser(bytes.NewReader(b))
	}
	c.bodyRead = true
	return c.body, nil
}

func (c *testContext) BindJSON(v any) (validator.ValidationErrors, error) {
	body, err := c.Body()
	if err != nil {
		return nil, err
	}
	return nil, json.Unmarshal(body, v)
}

func (c *testContext) JSON(code int, v any) error {
	c.markWritten()
	c.response.Header().Set("Content-Type", "application/json")
	c.response.WriteHeader(code)
	return json.NewEncoder(c.response).Encode(v)
}

func (c *testContext) String(code int, s string) error {
	c.markWritten()
	c.response.WriteHeader(code)
	_, err := c.response.Write([]byte(s))
	return err
}

func (c *testContext) NoContent(code int) error {
	c.markWritten()
	c.response.WriteHeader(code)
	return nil
}

func (c *testContext) markWritten() {
	c.mu.Lock()
	c.written = true
	c.mu.Unlock()
}

func (c *testContext) Written() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

func (c *testContext) Error(code int, message string, opts ...internal.HTTPErrorOption) *internal.HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

func (c *testContext) Logger() *slog.Logger        { return slog.New(slog.DiscardHandler) }
func (c *testContext) LogDebug(string, ...any)     {}
func (c *testContext) LogInfo(string, ...any)      {}
func (c *testContext) LogWarn(string, ...any)      {}
func (c *testContext) LogError(string, ...any)     {}
func (c *testContext) Deadline() (time.Time, bool) { return c.Context().Deadline() }
func (c *testContext) Done() <-chan struct{}       { return c.Context().Done() }
func (c *testContext) Err() error                  { return c.Context().Err() }
func (c *testContext) Value(key any) any           { return c.Context().Value(key) }

func (c *testContext) SetContext(ctx context.Context) {
	c.mu.Lock()
	c.request = c.request.WithContext(ctx)
	c.mu.Unlock()
}

func (c *testContext) Set(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	// Extractors read from the request context.
	c.request = c.request.WithContext(context.WithValue(c.request.Context(), key, value))
}

func (c *testContext) Get(key any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

func (c *testContext) Enqueue(string, any, ...job.EnqueueOption) error { return nil }
