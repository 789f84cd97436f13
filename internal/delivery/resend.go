package delivery

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/dmitrymomot/dispatch/internal/ledger"
	"github.com/dmitrymomot/dispatch/internal/newsletter"
)

// Resend re-attempts unconfirmed ledger entries in place. Confirmed entries,
// unknown ids and inactive recipients are skipped. Entries are grouped per
// draft and each group runs under that draft's lock; a group whose draft is
// busy is skipped and reported in BusyDrafts so earlier groups still count.
func (w *Worker) Resend(ctx context.Context, sendIDs []int64) (ResendResult, error) {
	var res ResendResult

	entries, err := w.deps.Ledger.GetMany(ctx, sendIDs)
	if err != nil {
		return res, err
	}
	res.Skipped = len(dedupe(sendIDs)) - len(entries)

	byDraft := make(map[int64][]ledger.Entry)
	for _, e := range entries {
		if e.Confirmed() {
			res.Skipped++
			continue
		}
		byDraft[e.DraftID] = append(byDraft[e.DraftID], e)
	}

	drafts := make([]int64, 0, len(byDraft))
	for id := range byDraft {
		drafts = append(drafts, id)
	}
	slices.Sort(drafts)

	for _, draftID := range drafts {
		err := w.withLock(ctx, draftID, func(ctx context.Context) error {
			return w.resendDraft(ctx, draftID, byDraft[draftID], &res)
		})
		if errors.Is(err, ErrDispatchInProgress) {
			w.logger.InfoContext(ctx, "resend skipped, draft busy",
				slog.Int64("draft_id", draftID),
				slog.Int("entries", len(byDraft[draftID])),
			)
			res.Skipped += len(byDraft[draftID])
			res.BusyDrafts = append(res.BusyDrafts, draftID)
			continue
		}
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (w *Worker) resendDraft(ctx context.Context, draftID int64, entries []ledger.Entry, res *ResendResult) error {
	d, err := w.deps.Drafts.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.RecipientID
	}
	recipients, err := w.deps.Drafts.RecipientsByID(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]newsletter.Recipient, len(recipients))
	for _, r := range recipients {
		byID[r.ID] = r
	}

	slices.SortFunc(entries, func(a, b ledger.Entry) int { return cmp.Compare(a.ID, b.ID) })

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		r, ok := byID[e.RecipientID]
		if !ok || !r.Active {
			w.logger.InfoContext(ctx, "resend skipped, recipient unavailable",
				slog.Int64("send_id", e.ID),
				slog.Int64("recipient_id", e.RecipientID),
			)
			res.Skipped++
			continue
		}

		reopened, err := w.deps.Ledger.Reopen(ctx, e.ID)
		if errors.Is(err, ledger.ErrAlreadySent) || errors.Is(err, ledger.ErrNotFound) {
			res.Skipped++
			continue
		}
		if err != nil {
			return err
		}

		ok, err = w.deliver(ctx, d, r, reopened)
		if err != nil {
			return err
		}
		if !ok {
			res.Failed++
			continue
		}
		res.Sent++

		if i < len(entries)-1 {
			if err := w.pacer.Wait(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func dedupe(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
