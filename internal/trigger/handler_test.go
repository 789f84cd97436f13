package trigger_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/internal/delivery"
	"github.com/dmitrymomot/dispatch/internal/ledger"
	"github.com/dmitrymomot/dispatch/internal/newsletter"
	"github.com/dmitrymomot/dispatch/internal/trigger"
	"github.com/dmitrymomot/dispatch/middlewares"
	"github.com/dmitrymomot/dispatch/pkg/job"
	"github.com/dmitrymomot/dispatch/pkg/signature"
)

const (
	signingKey  = "sig_current"
	adminSecret = "admin-secret"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Batch(ctx context.Context, draftID int64, batchSize int) (delivery.BatchResult, error) {
	args := m.Called(ctx, draftID, batchSize)
	return args.Get(0).(delivery.BatchResult), args.Error(1)
}

func (m *mockDispatcher) Drain(ctx context.Context, draftID int64, explicit []int64) (delivery.DrainResult, error) {
	args := m.Called(ctx, draftID, explicit)
	return args.Get(0).(delivery.DrainResult), args.Error(1)
}

type enqueued struct {
	payload any
	name    string
	opts    int
}

type fakeEnqueuer struct {
	jobs []enqueued
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, name string, payload any, opts ...job.EnqueueOption) error {
	f.jobs = append(f.jobs, enqueued{name: name, payload: payload, opts: len(opts)})
	return nil
}

type fixture struct {
	app        *internal.App
	dispatcher *mockDispatcher
	drafts     *newsletter.Memory
	ledger     *ledger.Memory
	enqueuer   *fakeEnqueuer
	draft      newsletter.Draft
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	verifier, err := signature.NewVerifier(signature.Config{CurrentSigningKey: signingKey, NextSigningKey: "sig_next"})
	require.NoError(t, err)

	f := &fixture{
		dispatcher: &mockDispatcher{},
		drafts:     newsletter.NewMemory(),
		ledger:     ledger.NewMemory(),
		enqueuer:   &fakeEnqueuer{},
	}
	f.draft = f.drafts.AddDraft(newsletter.Draft{Subject: "Weekly"})

	h := trigger.NewHandler(f.dispatcher, f.drafts, f.ledger,
		trigger.WithQueueMiddleware(middlewares.Signature(verifier)),
		trigger.WithAdminMiddleware(middlewares.AdminAuth([]byte(adminSecret))),
	)
	f.app = internal.New(
		internal.WithHandlers(h),
		internal.WithErrorHandler(middlewares.ErrorHandler()),
		internal.WithEnqueuer(f.enqueuer),
	)
	return f
}

func signed(t *testing.T, body string) string {
	t.Helper()
	token, err := signature.NewSigner(signingKey, "").Sign([]byte(body), "", time.Minute)
	require.NoError(t, err)
	return token
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middlewares.AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(adminSecret))
	require.NoError(t, err)
	return token
}

func (f *fixture) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.app.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestQueue_SignedDrain(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dispatcher.On("Drain", mock.Anything, f.draft.ID, []int64(nil)).
		Return(delivery.DrainResult{Sent: 3, Failed: 1}, nil).Once()

	body := `{"type":"send_draft","draftId":` + itoa(f.draft.ID) + `}`
	rec := f.do(http.MethodPost, "/api/queue/dispatch", body, map[string]string{
		signature.Header: signed(t, body),
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"sentCount":3,"failCount":1}`, rec.Body.String())
	f.dispatcher.AssertExpectations(t)
}

func TestQueue_RejectsBeforeSideEffects(t *testing.T) {
	t.Parallel()

	body := `{"type":"send_draft","draftId":1}`
	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{name: "missing signature", token: func(*testing.T) string { return "" }},
		{name: "garbage signature", token: func(*testing.T) string { return "not-a-jwt" }},
		{name: "signed other body", token: func(t *testing.T) string { return signed(t, `{"type":"send_draft","draftId":2}`) }},
		{name: "unknown key", token: func(t *testing.T) string {
			tok, err := signature.NewSigner("sig_other", "").Sign([]byte(body), "", time.Minute)
			require.NoError(t, err)
			return tok
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			headers := map[string]string{}
			if tok := tt.token(t); tok != "" {
				headers[signature.Header] = tok
			}

			rec := f.do(http.MethodPost, "/api/queue/dispatch", body, headers)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "invalid_signature", decode(t, rec)["code"])
			f.dispatcher.AssertNotCalled(t, "Drain", mock.Anything, mock.Anything, mock.Anything)
			summary, err := f.ledger.Summary(context.Background(), 1)
			require.NoError(t, err)
			assert.Zero(t, summary.Total)
		})
	}
}

func TestQueue_UnknownType(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	body := `{"type":"unsubscribe","draftId":1}`
	rec := f.do(http.MethodPost, "/api/queue/dispatch", body, map[string]string{signature.Header: signed(t, body)})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_type", decode(t, rec)["code"])
	f.dispatcher.AssertNotCalled(t, "Drain", mock.Anything, mock.Anything, mock.Anything)
}

func TestQueue_InProgress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dispatcher.On("Drain", mock.Anything, int64(5), []int64{7}).
		Return(delivery.DrainResult{}, delivery.ErrDispatchInProgress).Once()

	body := `{"type":"send_draft","draftId":5,"recipientIds":[7]}`
	rec := f.do(http.MethodPost, "/api/queue/dispatch", body, map[string]string{signature.Header: signed(t, body)})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "dispatch_in_progress", decode(t, rec)["code"])
}

func TestBatch(t *testing.T) {
	t.Parallel()

	auth := map[string]string{"Authorization": "Bearer "}

	t.Run("requires admin token", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.do(http.MethodPost, "/api/drafts/dispatch/batch", `{"draftId":1,"batchSize":2}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(http.MethodPost, "/api/drafts/dispatch/batch", `{"draftId":1,"batchSize":2}`, auth)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		f.dispatcher.AssertNotCalled(t, "Batch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("runs batch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.dispatcher.On("Batch", mock.Anything, f.draft.ID, 2).
			Return(delivery.BatchResult{Sent: 2, Remaining: 1}, nil).Once()

		rec := f.do(http.MethodPost, "/api/drafts/dispatch/batch",
			`{"draftId":`+itoa(f.draft.ID)+`,"batchSize":2}`,
			map[string]string{"Authorization": "Bearer " + adminToken(t)})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"sent":2,"failed":0,"remaining":1,"isComplete":false}`, rec.Body.String())
		f.dispatcher.AssertExpectations(t)
	})

	t.Run("default batch size", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.dispatcher.On("Batch", mock.Anything, int64(9), 25).
			Return(delivery.BatchResult{IsComplete: true}, nil).Once()

		rec := f.do(http.MethodPost, "/api/drafts/dispatch/batch", `{"draftId":9}`,
			map[string]string{"Authorization": "Bearer " + adminToken(t)})
		require.Equal(t, http.StatusOK, rec.Code)
		f.dispatcher.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.do(http.MethodPost, "/api/drafts/dispatch/batch", `{"batchSize":1000}`,
			map[string]string{"Authorization": "Bearer " + adminToken(t)})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		fields, ok := decode(t, rec)["fields"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, fields, "draftId")
		assert.Contains(t, fields, "batchSize")
	})

	t.Run("draft not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.dispatcher.On("Batch", mock.Anything, int64(404), 5).
			Return(delivery.BatchResult{}, newsletter.ErrDraftNotFound).Once()

		rec := f.do(http.MethodPost, "/api/drafts/dispatch/batch", `{"draftId":404,"batchSize":5}`,
			map[string]string{"Authorization": "Bearer " + adminToken(t)})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestEnqueue(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	auth := map[string]string{"Authorization": "Bearer " + adminToken(t)}

	rec := f.do(http.MethodPost, "/api/drafts/"+itoa(f.draft.ID)+"/dispatch", "", auth)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, f.enqueuer.jobs, 1)
	assert.Equal(t, trigger.TaskSendDraft, f.enqueuer.jobs[0].name)
	assert.Equal(t, trigger.SendDraftPayload{DraftID: f.draft.ID}, f.enqueuer.jobs[0].payload)
	// queue, unique window and key, attempts, priority, tags
	assert.Equal(t, 6, f.enqueuer.jobs[0].opts)

	rec = f.do(http.MethodPost, "/api/drafts/999/dispatch", "", auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/api/drafts/abc/dispatch", "", auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, err := f.drafts.CloseOut(context.Background(), f.draft.ID, time.Now())
	require.NoError(t, err)
	rec = f.do(http.MethodPost, "/api/drafts/"+itoa(f.draft.ID)+"/dispatch", "", auth)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, f.enqueuer.jobs, 1)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	auth := map[string]string{"Authorization": "Bearer " + adminToken(t)}

	sent, err := f.ledger.Begin(ctx, 1, f.draft.ID, "Weekly")
	require.NoError(t, err)
	require.NoError(t, f.ledger.MarkSent(ctx, sent.ID, "msg_1"))
	failed, err := f.ledger.Begin(ctx, 2, f.draft.ID, "Weekly")
	require.NoError(t, err)
	require.NoError(t, f.ledger.MarkFailed(ctx, failed.ID, "bounced"))
	_, err = f.ledger.Begin(ctx, 3, f.draft.ID, "Weekly")
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/drafts/"+itoa(f.draft.ID)+"/status", "", auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"draftId":`+itoa(f.draft.ID)+`,"status":"draft","sentAt":null,"sent":1,"failed":1,"pending":1,"total":3}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/drafts/77/status", "", auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
