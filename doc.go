// Package dispatch assembles the newsletter delivery engine.
//
// A draft is delivered to every active recipient at most once. Each send is
// recorded in the ledger as pending before the provider is called, then
// marked sent or failed. A draft is closed out only when the ledger has no
// recipient left to send to.
//
// Dispatch is triggered three ways:
//
//   - a signed queue callback (POST /api/queue/dispatch) drains the draft
//     in-request;
//   - admins page through recipients with POST /api/drafts/dispatch/batch,
//     or enqueue a background drain with POST /api/drafts/{id}/dispatch;
//   - a periodic job enqueues drafts whose scheduled time has passed.
//
// Sends that were never confirmed by the provider are listed by
// GET /api/sends/unconfirmed and retried with POST /api/sends/resend,
// reusing their ledger rows.
//
// New builds the service from a [config.Config] and the connections in
// [Infra]; Run serves it until shutdown:
//
//	svc, err := dispatch.New(cfg, dispatch.Infra{Pool: pool, Redis: rdb, Sender: sender},
//	    dispatch.WithLogger(log),
//	)
//	if err != nil {
//	    return err
//	}
//	return svc.Run(ctx, db.Shutdown(pool), redis.Shutdown(rdb))
package dispatch
