// Package job runs background tasks on River backed by Postgres.
//
// All tasks share one River job kind; the task name and JSON payload travel
// in the job args and are routed to the handler registered under that name.
//
//	type SendDraft struct{ worker *delivery.Worker }
//
//	func (t *SendDraft) Name() string { return "send_draft" }
//	func (t *SendDraft) Handle(ctx context.Context, p SendDraftPayload) error { ... }
//
//	m, err := job.NewManager(pool,
//		job.WithTask(&SendDraft{worker: w}),
//		job.WithScheduledTask(&DispatchScheduled{...}),
//		job.WithLogger(log),
//	)
//
// A handler that cannot run yet returns Snooze(d); River reschedules the job
// without counting a failed attempt.
package job
