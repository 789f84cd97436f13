package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/internal/delivery"
	"github.com/dmitrymomot/dispatch/internal/newsletter"
	"github.com/dmitrymomot/dispatch/pkg/job"
	"github.com/dmitrymomot/dispatch/pkg/logger"
)

// snoozeWhileLocked is how long a send_draft job waits when another run
// holds the draft.
const snoozeWhileLocked = 30 * time.Second

// SendDraft drains a draft from the job queue.
type SendDraft struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewSendDraft creates the send_draft task.
func NewSendDraft(d Dispatcher, log *slog.Logger) *SendDraft {
	if log == nil {
		log = logger.NewNope()
	}
	return &SendDraft{dispatcher: d, logger: log}
}

func (t *SendDraft) Name() string { return TaskSendDraft }

// Handle drains the draft. A held draft lock snoozes the job; a missing
// draft is dropped without retry.
func (t *SendDraft) Handle(ctx context.Context, p SendDraftPayload) error {
	if p.DraftID <= 0 {
		t.logger.WarnContext(ctx, "send_draft without draft id")
		return nil
	}

	res, err := t.dispatcher.Drain(ctx, p.DraftID, p.RecipientIDs)
	switch {
	case errors.Is(err, delivery.ErrDispatchInProgress):
		t.logger.InfoContext(ctx, "draft busy, snoozing", slog.Int64("draft_id", p.DraftID))
		return job.Snooze(snoozeWhileLocked)
	case errors.Is(err, newsletter.ErrDraftNotFound):
		t.logger.WarnContext(ctx, "send_draft for unknown draft", slog.Int64("draft_id", p.DraftID))
		return nil
	case err != nil:
		return fmt.Errorf("send draft %d: %w", p.DraftID, err)
	}

	t.logger.InfoContext(ctx, "draft drained",
		slog.Int64("draft_id", p.DraftID),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
	)
	return nil
}

// DueDrafts lists drafts whose schedule has passed.
type DueDrafts interface {
	DueDrafts(ctx context.Context, now time.Time) ([]int64, error)
}

// DispatchScheduled enqueues send_draft for every due draft each minute.
type DispatchScheduled struct {
	drafts   DueDrafts
	enqueuer internal.Enqueuer
	logger   *slog.Logger
	now      func() time.Time
}

// NewDispatchScheduled creates the dispatch_scheduled task.
func NewDispatchScheduled(drafts DueDrafts, e internal.Enqueuer, log *slog.Logger) *DispatchScheduled {
	if log == nil {
		log = logger.NewNope()
	}
	return &DispatchScheduled{drafts: drafts, enqueuer: e, logger: log, now: time.Now}
}

func (t *DispatchScheduled) Name() string     { return TaskDispatchScheduled }
func (t *DispatchScheduled) Schedule() string { return "* * * * *" }

// Handle enqueues one unique send_draft job per due draft.
func (t *DispatchScheduled) Handle(ctx context.Context) error {
	ids, err := t.drafts.DueDrafts(ctx, t.now())
	if err != nil {
		return fmt.Errorf("list due drafts: %w", err)
	}

	var errs []error
	for _, id := range ids {
		err := t.enqueuer.Enqueue(ctx, TaskSendDraft, SendDraftPayload{DraftID: id},
			sendDraftOptions(id, priorityScheduled, "scheduled")...)
		if err != nil {
			errs = append(errs, fmt.Errorf("enqueue draft %d: %w", id, err))
			continue
		}
		t.logger.InfoContext(ctx, "scheduled draft enqueued", slog.Int64("draft_id", id))
	}
	return errors.Join(errs...)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
