package internal

// Handler declares routes on a router.
//
//	func (h *Remediation) Routes(r internal.Router) {
//		r.GET("/api/sends/unconfirmed", h.list)
//		r.POST("/api/sends/resend", h.resend)
//	}
type Handler interface {
	Routes(r Router)
}

// HandlerFunc handles a request. A returned error goes to the app's ErrorHandler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler renders errors returned from handlers.
type ErrorHandler func(Context, error) error
