// Package middlewares provides the HTTP middleware of the dispatch service.
//
// # Request ID
//
// RequestID assigns an ID to each request, reusing X-Request-ID or the
// queue's message id when present. Pass RequestIDExtractor to logger.New so
// every record carries request_id.
//
// # Recover and Timeout
//
// Recover converts panics into PanicError; Timeout bounds short routes and
// returns TimeoutError. Both are rendered by ErrorHandler. Timeout must not
// wrap routes that drain a draft inside the request.
//
// # Authentication
//
// Two boundaries exist. Signature guards the queue trigger: the raw body is
// verified against the current and next signing keys before the handler
// runs. AdminAuth guards operator routes with an HS256 bearer token:
//
//	r.Group(func(r internal.Router) {
//	    r.Use(middlewares.AdminAuth([]byte(cfg.AdminJWTSecret), middlewares.WithAdminRole("admin")))
//	    r.POST("/api/drafts/dispatch/batch", h.batch)
//	})
//
//	r.POST("/api/queue/dispatch", h.queue, middlewares.Signature(verifier))
//
// # CORS
//
// CORS lets the admin console call operator routes from its own origin.
//
// # Recommended Order
//
//	internal.WithMiddleware(
//	    middlewares.CORS(middlewares.WithAllowOrigins(cfg.AllowedOrigins...)),
//	    middlewares.RequestID(),
//	    middlewares.Recover(),
//	)
//	internal.WithErrorHandler(middlewares.ErrorHandler())
package middlewares
