// Package internal is the HTTP application core of the dispatch service.
//
// It wraps chi with a small set of types:
//
//   - App: routing, middleware, health endpoints, background worker lifecycle
//   - Context: request/response access, JSON binding with validation, logging, job enqueueing
//   - Router: interface handlers use to declare routes
//   - Handler: types that declare routes on a Router
//   - HandlerFunc: route handlers that return errors
//   - Middleware: wraps HandlerFunc for cross-cutting concerns
//   - HTTPError: errors carrying a status code and client-facing message
//
// # Context as context.Context
//
// Context embeds context.Context and delegates to the request context, so it
// can be passed straight to stores and clients:
//
//	func (h *Handler) status(c internal.Context) error {
//	    summary, err := h.ledger.Summary(c, internal.Param[int64](c, "id"))
//	    if err != nil {
//	        return err
//	    }
//	    return c.JSON(http.StatusOK, summary)
//	}
//
// # Binding
//
// BindJSON decodes and validates in one step. Malformed JSON is an error;
// failed validation rules are returned separately so handlers can render them:
//
//	var req batchRequest
//	verrs, err := c.BindJSON(&req)
//	if err != nil {
//	    return err
//	}
//	if len(verrs) > 0 {
//	    return internal.ErrUnprocessable("validation failed", internal.WithFields(verrs.Fields()))
//	}
//
// # Errors
//
// Errors returned from handlers go to the ErrorHandler. The default one
// renders HTTPError values as JSON and hides everything else behind a 500.
//
// # Server Runtime
//
// Run blocks until SIGINT/SIGTERM, then stops the server, the worker and the
// registered shutdown hooks in that order:
//
//	err := app.Run(":8080",
//	    internal.Logger(log),
//	    internal.WriteTimeout(15*time.Minute),
//	    internal.ShutdownHook(db.Shutdown(pool)),
//	)
package internal
