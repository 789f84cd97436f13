// Package trigger exposes the ways a draft dispatch is started: the signed
// queue callback, the admin batch endpoint, the admin enqueue endpoint, and
// the River tasks behind them.
package trigger

import (
	"context"
	"time"

	"github.com/dmitrymomot/dispatch/internal/delivery"
	"github.com/dmitrymomot/dispatch/internal/ledger"
	"github.com/dmitrymomot/dispatch/internal/newsletter"
	"github.com/dmitrymomot/dispatch/pkg/job"
)

// Task names registered with the job manager.
const (
	TaskSendDraft         = "send_draft"
	TaskDispatchScheduled = "dispatch_scheduled"
)

// QueueSend is the River queue send_draft jobs run on. Its worker count bounds
// how many drafts are drained at once.
const QueueSend = "newsletter"

// Queue message types accepted on the queue callback.
const (
	MessageSendDraft = "send_draft"
)

const (
	defaultBatchSize = 25
	maxBatchSize     = 500

	// uniqueWindow keeps repeated enqueues of the same draft from piling up.
	uniqueWindow = 10 * time.Minute

	// sendMaxAttempts bounds River retries of a failing drain; recipients
	// already recorded are skipped on every retry.
	sendMaxAttempts = 5

	// Manual enqueues run ahead of scheduled ones.
	priorityManual    = 1
	priorityScheduled = 2
)

// Dispatcher runs deliveries.
type Dispatcher interface {
	Batch(ctx context.Context, draftID int64, batchSize int) (delivery.BatchResult, error)
	Drain(ctx context.Context, draftID int64, explicit []int64) (delivery.DrainResult, error)
}

// Drafts reads draft state.
type Drafts interface {
	GetDraft(ctx context.Context, id int64) (newsletter.Draft, error)
}

// Summaries counts ledger entries per draft.
type Summaries interface {
	Summary(ctx context.Context, draftID int64) (ledger.Summary, error)
}

// SendDraftPayload is the send_draft job payload and queue message body.
type SendDraftPayload struct {
	DraftID      int64   `json:"draftId"`
	RecipientIDs []int64 `json:"recipientIds,omitempty"`
}

func uniqueKey(draftID int64) string {
	return "draft:" + itoa(draftID)
}

// sendDraftOptions are the insert options of every send_draft job.
func sendDraftOptions(draftID int64, priority int, origin string) []job.EnqueueOption {
	return []job.EnqueueOption{
		job.InQueue(QueueSend),
		job.UniqueFor(uniqueWindow),
		job.UniqueKey(uniqueKey(draftID)),
		job.MaxAttempts(sendMaxAttempts),
		job.Priority(priority),
		job.Tags(TaskSendDraft, origin),
	}
}
