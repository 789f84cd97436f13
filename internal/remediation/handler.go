// Package remediation lists sends the provider never confirmed and lets an
// operator re-attempt them in place.
package remediation

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/internal/delivery"
	"github.com/dmitrymomot/dispatch/internal/ledger"
	"github.com/dmitrymomot/dispatch/internal/newsletter"
)

// Resender re-attempts ledger entries.
type Resender interface {
	Resend(ctx context.Context, sendIDs []int64) (delivery.ResendResult, error)
}

// Recipients looks recipients up by id.
type Recipients interface {
	RecipientsByID(ctx context.Context, ids []int64) ([]newsletter.Recipient, error)
}

// Handler serves the remediation endpoints.
type Handler struct {
	ledger     ledger.Store
	recipients Recipients
	resender   Resender
	mw         []internal.Middleware
}

// NewHandler creates a Handler. mw wraps every route.
func NewHandler(l ledger.Store, recipients Recipients, resender Resender, mw ...internal.Middleware) *Handler {
	return &Handler{ledger: l, recipients: recipients, resender: resender, mw: mw}
}

// Routes implements internal.Handler.
func (h *Handler) Routes(r internal.Router) {
	r.GET("/api/sends/unconfirmed", h.list, h.mw...)
	r.POST("/api/sends/resend", h.resend, h.mw...)
}

// Item is one unconfirmed send.
type Item struct {
	SentAt       time.Time `json:"sentAt"`
	Email        string    `json:"email"`
	DraftSubject string    `json:"draftSubject"`
	SendID       int64     `json:"sendId"`
	RecipientID  int64     `json:"recipientId"`
	DraftID      int64     `json:"draftId"`
}

type listResponse struct {
	Items []Item `json:"items"`
}

func (h *Handler) list(c internal.Context) error {
	draftID := internal.Query[int64](c, "draftId")
	if c.Query("draftId") != "" && draftID <= 0 {
		return internal.ErrBadRequest("invalid draft id", internal.WithErrorCode("invalid_draft_id"))
	}
	limit := internal.QueryDefault(c, "limit", 0)

	entries, err := h.ledger.ListUnconfirmed(c, ledger.Filter{DraftID: draftID, Limit: limit})
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.RecipientID)
	}
	recipients, err := h.recipients.RecipientsByID(c, ids)
	if err != nil {
		return err
	}
	emails := make(map[int64]string, len(recipients))
	for _, r := range recipients {
		emails[r.ID] = r.Email
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{
			SendID:       e.ID,
			RecipientID:  e.RecipientID,
			Email:        emails[e.RecipientID],
			SentAt:       e.AttemptedAt,
			DraftID:      e.DraftID,
			DraftSubject: e.Subject,
		})
	}
	return c.JSON(http.StatusOK, listResponse{Items: items})
}

type resendRequest struct {
	SendIDs []int64 `json:"sendIds" validate:"required,min=1,max=500,dive,gt=0"`
}

func (h *Handler) resend(c internal.Context) error {
	var req resendRequest
	verrs, err := c.BindJSON(&req)
	if err != nil {
		return err
	}
	if len(verrs) > 0 {
		return verrs
	}

	res, err := h.resender.Resend(c, req.SendIDs)
	if err != nil {
		return err
	}

	c.LogInfo("resend finished", "sent", res.Sent, "failed", res.Failed, "skipped", res.Skipped, "busy_drafts", res.BusyDrafts)
	return c.JSON(http.StatusOK, res)
}
