package trigger

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/internal/delivery"
	"github.com/dmitrymomot/dispatch/internal/newsletter"
)

// Handler serves the dispatch endpoints.
type Handler struct {
	dispatcher Dispatcher
	drafts     Drafts
	summaries  Summaries
	queueMW    []internal.Middleware
	adminMW    []internal.Middleware
	readMW     []internal.Middleware
}

// Option configures a Handler.
type Option func(*Handler)

// WithQueueMiddleware wraps the queue callback, typically with signature verification.
func WithQueueMiddleware(mw ...internal.Middleware) Option {
	return func(h *Handler) {
		h.queueMW = append(h.queueMW, mw...)
	}
}

// WithAdminMiddleware wraps the admin endpoints, typically with bearer auth.
func WithAdminMiddleware(mw ...internal.Middleware) Option {
	return func(h *Handler) {
		h.adminMW = append(h.adminMW, mw...)
	}
}

// WithReadMiddleware wraps the read-only status endpoint after the admin
// middleware, typically with a request timeout.
func WithReadMiddleware(mw ...internal.Middleware) Option {
	return func(h *Handler) {
		h.readMW = append(h.readMW, mw...)
	}
}

// NewHandler creates a Handler.
func NewHandler(d Dispatcher, drafts Drafts, summaries Summaries, opts ...Option) *Handler {
	h := &Handler{dispatcher: d, drafts: drafts, summaries: summaries}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes implements internal.Handler.
func (h *Handler) Routes(r internal.Router) {
	r.POST("/api/queue/dispatch", h.queue, h.queueMW...)
	r.POST("/api/drafts/dispatch/batch", h.batch, h.adminMW...)
	r.POST("/api/drafts/{id}/dispatch", h.enqueue, h.adminMW...)
	r.GET("/api/drafts/{id}/status", h.status, slices.Concat(h.adminMW, h.readMW)...)
}

type queueRequest struct {
	Type         string  `json:"type" validate:"required"`
	DraftID      int64   `json:"draftId" validate:"required,gt=0"`
	RecipientIDs []int64 `json:"recipientIds" validate:"omitempty,dive,gt=0"`
}

type queueResponse struct {
	Success   bool `json:"success"`
	SentCount int  `json:"sentCount"`
	FailCount int  `json:"failCount"`
}

// queue handles the signed queue callback and drains the draft in-request.
func (h *Handler) queue(c internal.Context) error {
	var req queueRequest
	verrs, err := c.BindJSON(&req)
	if err != nil {
		return err
	}
	if len(verrs) > 0 {
		return verrs
	}
	if req.Type != MessageSendDraft {
		return internal.ErrBadRequest("unknown message type", internal.WithErrorCode("unknown_type"))
	}

	c.LogInfo("queue dispatch received", "draft_id", req.DraftID)

	res, err := h.dispatcher.Drain(c, req.DraftID, req.RecipientIDs)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, queueResponse{
		Success:   true,
		SentCount: res.Sent,
		FailCount: res.Failed,
	})
}

type batchRequest struct {
	DraftID   int64 `json:"draftId" validate:"required,gt=0"`
	BatchSize int   `json:"batchSize" validate:"omitempty,gt=0,lte=500"`
}

func (h *Handler) batch(c internal.Context) error {
	var req batchRequest
	verrs, err := c.BindJSON(&req)
	if err != nil {
		return err
	}
	if len(verrs) > 0 {
		return verrs
	}

	size := req.BatchSize
	if size == 0 {
		size = defaultBatchSize
	}
	size = min(size, maxBatchSize)

	res, err := h.dispatcher.Batch(c, req.DraftID, size)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

type enqueueResponse struct {
	DraftID int64 `json:"draftId"`
	Queued  bool  `json:"queued"`
}

// enqueue schedules a full drain on the job queue.
func (h *Handler) enqueue(c internal.Context) error {
	id, err := draftID(c)
	if err != nil {
		return err
	}

	d, err := h.drafts.GetDraft(c, id)
	if err != nil {
		return httpError(err)
	}
	if d.IsSent() {
		return internal.ErrConflict("draft already sent", internal.WithErrorCode("already_sent"))
	}

	err = c.Enqueue(TaskSendDraft, SendDraftPayload{DraftID: id}, sendDraftOptions(id, priorityManual, "manual")...)
	if errors.Is(err, internal.ErrJobsNotConfigured) {
		return internal.ErrServiceUnavailable("job queue unavailable", internal.WithError(err))
	}
	if err != nil {
		return err
	}

	c.LogInfo("draft dispatch enqueued", "draft_id", id)
	return c.JSON(http.StatusAccepted, enqueueResponse{DraftID: id, Queued: true})
}

type statusResponse struct {
	SentAt  *time.Time `json:"sentAt"`
	Status  string     `json:"status"`
	DraftID int64      `json:"draftId"`
	Sent    int        `json:"sent"`
	Failed  int        `json:"failed"`
	Pending int        `json:"pending"`
	Total   int        `json:"total"`
}

func (h *Handler) status(c internal.Context) error {
	id, err := draftID(c)
	if err != nil {
		return err
	}

	d, err := h.drafts.GetDraft(c, id)
	if err != nil {
		return httpError(err)
	}
	s, err := h.summaries.Summary(c, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, statusResponse{
		DraftID: d.ID,
		Status:  string(d.Status),
		SentAt:  d.SentAt,
		Sent:    s.Sent,
		Failed:  s.Failed,
		Pending: s.Pending,
		Total:   s.Total,
	})
}

func draftID(c internal.Context) (int64, error) {
	id := internal.Param[int64](c, "id")
	if id <= 0 {
		return 0, internal.ErrBadRequest("invalid draft id", internal.WithErrorCode("invalid_draft_id"))
	}
	return id, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, delivery.ErrDispatchInProgress):
		return internal.ErrConflict("dispatch already in progress",
			internal.WithErrorCode("dispatch_in_progress"), internal.WithError(err))
	case errors.Is(err, newsletter.ErrDraftNotFound):
		return internal.ErrNotFound("draft not found",
			internal.WithErrorCode("draft_not_found"), internal.WithError(err))
	case errors.Is(err, delivery.ErrInvalidBatchSize):
		return internal.ErrBadRequest("invalid batch size", internal.WithError(err))
	}
	return err
}
