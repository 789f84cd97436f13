// Package delivery sends a draft to its pending recipients.
//
// A run takes the per-draft lock, resolves who has not been attempted yet,
// and walks them one by one: claim a Pending ledger entry, render, send
// through the retry policy, record the outcome, pace. Once nobody is left
// the draft is closed out. Runs are safe to repeat; the ledger makes every
// (recipient, draft) pair go out at most once.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmitrymomot/dispatch/internal/ledger"
	"github.com/dmitrymomot/dispatch/internal/newsletter"
	"github.com/dmitrymomot/dispatch/internal/render"
	"github.com/dmitrymomot/dispatch/pkg/lock"
	"github.com/dmitrymomot/dispatch/pkg/logger"
	"github.com/dmitrymomot/dispatch/pkg/mailer"
	"github.com/dmitrymomot/dispatch/pkg/pacer"
	"github.com/dmitrymomot/dispatch/pkg/retry"
	"github.com/dmitrymomot/dispatch/pkg/sanitizer"
)

const defaultLockTTL = 30 * time.Second

// Drafts is the part of the newsletter store the worker needs.
type Drafts interface {
	GetDraft(ctx context.Context, id int64) (newsletter.Draft, error)
	RecipientsByID(ctx context.Context, ids []int64) ([]newsletter.Recipient, error)
	CloseOut(ctx context.Context, draftID int64, at time.Time) (bool, error)
}

// Resolver lists the recipients still owed a draft.
type Resolver interface {
	Resolve(ctx context.Context, draftID int64, explicit []int64) ([]newsletter.Recipient, error)
}

// Renderer produces the per-recipient HTML body.
type Renderer interface {
	Render(ctx context.Context, draftID int64, opts render.Options) (string, error)
}

// Invalidator drops cached draft content after close-out.
type Invalidator interface {
	Invalidate(ctx context.Context, draftID int64) error
}

// Reporter is notified once a draft is closed out.
type Reporter interface {
	Report(ctx context.Context, r Report) error
}

// Report summarizes a closed-out draft.
type Report struct {
	ClosedAt time.Time
	Subject  string
	Summary  ledger.Summary
	DraftID  int64
}

// Deps are the collaborators every worker needs.
type Deps struct {
	Ledger   ledger.Store
	Drafts   Drafts
	Resolver Resolver
	Renderer Renderer
	Sender   mailer.Sender
}

// BatchResult is the outcome of one Batch call.
type BatchResult struct {
	Sent       int  `json:"sent"`
	Failed     int  `json:"failed"`
	Remaining  int  `json:"remaining"`
	IsComplete bool `json:"isComplete"`
}

// DrainResult is the outcome of a Drain call.
type DrainResult struct {
	Sent   int `json:"sentCount"`
	Failed int `json:"failCount"`
}

// ResendResult is the outcome of a Resend call.
type ResendResult struct {
	// BusyDrafts lists drafts whose entries were skipped because another
	// run held the draft.
	BusyDrafts []int64 `json:"busyDrafts,omitempty"`
	Sent       int     `json:"sent"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
}

// Worker runs deliveries. It is safe for concurrent use; runs on the same
// draft exclude each other through the locker.
type Worker struct {
	deps        Deps
	locker      lock.Locker
	retry       *retry.Policy
	pacer       *pacer.Pacer
	invalidator Invalidator
	reporter    Reporter
	logger      *slog.Logger
	now         func() time.Time
	from        string
	lockTTL     time.Duration
}

// Option configures a Worker.
type Option func(*Worker)

// WithLocker sets the per-draft locker. Default is an in-process locker.
func WithLocker(l lock.Locker) Option {
	return func(w *Worker) {
		if l != nil {
			w.locker = l
		}
	}
}

// WithLockTTL sets the draft lock TTL; the lock is refreshed every third of it.
func WithLockTTL(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.lockTTL = d
		}
	}
}

// WithRetry sets the send retry policy. Default retry.New().
func WithRetry(p *retry.Policy) Option {
	return func(w *Worker) {
		if p != nil {
			w.retry = p
		}
	}
}

// WithPacer sets the delay between successful sends. Default pacer.New().
func WithPacer(p *pacer.Pacer) Option {
	return func(w *Worker) {
		if p != nil {
			w.pacer = p
		}
	}
}

// WithInvalidator sets the content cache dropped on close-out.
func WithInvalidator(i Invalidator) Option {
	return func(w *Worker) {
		w.invalidator = i
	}
}

// WithReporter sets the close-out reporter.
func WithReporter(r Reporter) Option {
	return func(w *Worker) {
		w.reporter = r
	}
}

// WithFrom overrides the sender address of newsletter emails.
func WithFrom(from string) Option {
	return func(w *Worker) {
		w.from = from
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock replaces the time source used for close-out timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// New creates a Worker.
func New(deps Deps, opts ...Option) *Worker {
	w := &Worker{
		deps:    deps,
		locker:  lock.NewMemory(),
		retry:   retry.New(),
		pacer:   pacer.New(),
		logger:  logger.NewNope(),
		now:     time.Now,
		lockTTL: defaultLockTTL,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Batch processes at most batchSize pending recipients of the draft and
// closes it out when none remain. A draft already sent is complete with
// zero counts.
func (w *Worker) Batch(ctx context.Context, draftID int64, batchSize int) (BatchResult, error) {
	if batchSize <= 0 {
		return BatchResult{}, ErrInvalidBatchSize
	}

	var res BatchResult
	err := w.withLock(ctx, draftID, func(ctx context.Context) error {
		d, err := w.deps.Drafts.GetDraft(ctx, draftID)
		if err != nil {
			return err
		}
		if d.IsSent() {
			res.IsComplete = true
			return nil
		}

		pending, err := w.deps.Resolver.Resolve(ctx, draftID, nil)
		if err != nil {
			return err
		}

		n := min(batchSize, len(pending))
		res.Sent, res.Failed, err = w.run(ctx, d, pending[:n])
		if err != nil {
			return err
		}

		res.Remaining = len(pending) - n
		if res.Remaining > 0 {
			return nil
		}
		if err := w.closeOut(ctx, d); err != nil {
			return err
		}
		res.IsComplete = true
		return nil
	})
	return res, err
}

// Drain processes every pending recipient and closes the draft out. A
// non-empty explicit list restricts the run to those recipients.
func (w *Worker) Drain(ctx context.Context, draftID int64, explicit []int64) (DrainResult, error) {
	var res DrainResult
	err := w.withLock(ctx, draftID, func(ctx context.Context) error {
		d, err := w.deps.Drafts.GetDraft(ctx, draftID)
		if err != nil {
			return err
		}
		if d.IsSent() {
			w.logger.InfoContext(ctx, "draft already sent", slog.Int64("draft_id", draftID))
			return nil
		}

		pending, err := w.deps.Resolver.Resolve(ctx, draftID, explicit)
		if err != nil {
			return err
		}

		res.Sent, res.Failed, err = w.run(ctx, d, pending)
		if err != nil {
			return err
		}
		return w.closeOut(ctx, d)
	})
	return res, err
}

// run sends d to each recipient in order. It stops early only on context
// cancellation or when a ledger entry cannot be claimed.
func (w *Worker) run(ctx context.Context, d newsletter.Draft, recipients []newsletter.Recipient) (sent, failed int, err error) {
	for i, r := range recipients {
		if err := ctx.Err(); err != nil {
			return sent, failed, err
		}

		e, err := w.deps.Ledger.Begin(ctx, r.ID, d.ID, d.Subject)
		if errors.Is(err, ledger.ErrAlreadyRecorded) {
			w.logger.DebugContext(ctx, "recipient already claimed",
				slog.Int64("draft_id", d.ID),
				slog.Int64("recipient_id", r.ID),
			)
			continue
		}
		if err != nil {
			return sent, failed, fmt.Errorf("delivery: claim recipient %d: %w", r.ID, err)
		}

		ok, err := w.deliver(ctx, d, r, e)
		if err != nil {
			return sent, failed, err
		}
		if !ok {
			failed++
			continue
		}
		sent++

		if i < len(recipients)-1 {
			if err := w.pacer.Wait(ctx); err != nil {
				return sent, failed, err
			}
		}
	}
	return sent, failed, nil
}

// deliver renders and sends one message for a Pending entry and records the
// outcome. It reports whether the provider accepted the message; an error is
// returned only when ctx was canceled. An entry is marked Failed only after
// the provider rejected it, so a cancel before any answer leaves it Pending.
func (w *Worker) deliver(ctx context.Context, d newsletter.Draft, r newsletter.Recipient, e ledger.Entry) (bool, error) {
	log := w.logger.With(
		slog.Int64("draft_id", d.ID),
		slog.Int64("recipient_id", r.ID),
		slog.Int64("send_id", e.ID),
	)

	html, err := w.deps.Renderer.Render(ctx, d.ID, render.Options{
		IncludeTracking: true,
		RecipientID:     r.ID,
		LedgerEntryID:   e.ID,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		w.markFailed(ctx, log, e.ID, "render: "+err.Error())
		return false, nil
	}

	email := &mailer.Email{
		To:      []string{mailer.Address(r.Name, r.Email)},
		From:    w.from,
		Subject: d.Subject,
		HTML:    html,
		Text:    sanitizer.StripHTML(html),
		Headers: map[string]string{"X-Entity-Ref-ID": strconv.FormatInt(e.ID, 10)},
		Tags: mailer.Tags{
			"draft_id": strconv.FormatInt(d.ID, 10),
			"send_id":  strconv.FormatInt(e.ID, 10),
		},
	}

	messageID, err := retry.Do(ctx, w.retry, func(ctx context.Context) (string, error) {
		return w.deps.Sender.Send(ctx, email)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Canceled while a send was in flight: the provider's answer is
			// unknown, so the entry stays Pending for remediation.
			if !errors.Is(err, retry.ErrInterrupted) {
				log.WarnContext(ctx, "send interrupted, outcome unknown")
				return false, ctxErr
			}
			w.markFailed(ctx, log, e.ID, "interrupted: "+err.Error())
			return false, ctxErr
		}
		log.WarnContext(ctx, "send failed", slog.String("error", err.Error()))
		w.markFailed(ctx, log, e.ID, err.Error())
		return false, nil
	}
	if messageID == "" {
		w.markFailed(ctx, log, e.ID, "provider returned no message id")
		return false, nil
	}

	if err := w.deps.Ledger.MarkSent(context.WithoutCancel(ctx), e.ID, messageID); err != nil {
		log.ErrorContext(ctx, "record sent message",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()),
		)
	}
	log.DebugContext(ctx, "message sent", slog.String("message_id", messageID))
	return true, nil
}

// markFailed records a failure; ledger errors are logged and swallowed so
// the run moves on to the next recipient.
func (w *Worker) markFailed(ctx context.Context, log *slog.Logger, id int64, reason string) {
	if err := w.deps.Ledger.MarkFailed(context.WithoutCancel(ctx), id, reason); err != nil {
		log.ErrorContext(ctx, "record failed message",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}

func (w *Worker) closeOut(ctx context.Context, d newsletter.Draft) error {
	at := w.now()
	closed, err := w.deps.Drafts.CloseOut(ctx, d.ID, at)
	if err != nil {
		return fmt.Errorf("delivery: close out draft %d: %w", d.ID, err)
	}

	if w.invalidator != nil {
		if err := w.invalidator.Invalidate(ctx, d.ID); err != nil {
			w.logger.WarnContext(ctx, "invalidate draft content",
				slog.Int64("draft_id", d.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if !closed {
		return nil
	}

	w.logger.InfoContext(ctx, "draft closed out", slog.Int64("draft_id", d.ID))
	w.report(ctx, d, at)
	return nil
}

func (w *Worker) report(ctx context.Context, d newsletter.Draft, at time.Time) {
	if w.reporter == nil {
		return
	}

	summary, err := w.deps.Ledger.Summary(ctx, d.ID)
	if err == nil {
		err = w.reporter.Report(ctx, Report{
			DraftID:  d.ID,
			Subject:  d.Subject,
			Summary:  summary,
			ClosedAt: at,
		})
	}
	if err != nil {
		w.logger.WarnContext(ctx, "dispatch report not sent",
			slog.Int64("draft_id", d.ID),
			slog.String("error", err.Error()),
		)
	}
}

// withLock runs fn while holding the draft lock. fn's context is canceled
// if the lock cannot be kept alive.
func (w *Worker) withLock(ctx context.Context, draftID int64, fn func(ctx context.Context) error) error {
	l, err := w.locker.Acquire(ctx, lockKey(draftID), w.lockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		return ErrDispatchInProgress
	}
	if err != nil {
		return fmt.Errorf("delivery: acquire draft lock: %w", err)
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, lock.ErrNotHeld) {
			w.logger.WarnContext(ctx, "release draft lock",
				slog.Int64("draft_id", draftID),
				slog.String("error", err.Error()),
			)
		}
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	lost := lock.KeepAlive(runCtx, l, w.lockTTL)
	go func() {
		if err, ok := <-lost; ok {
			w.logger.ErrorContext(runCtx, "draft lock lost",
				slog.Int64("draft_id", draftID),
				slog.String("error", err.Error()),
			)
			cancel(ErrLockLost)
		}
	}()

	err = fn(runCtx)
	if err != nil && errors.Is(context.Cause(runCtx), ErrLockLost) {
		return errors.Join(ErrLockLost, err)
	}
	return err
}

func lockKey(draftID int64) string {
	return "draft:" + strconv.FormatInt(draftID, 10)
}
