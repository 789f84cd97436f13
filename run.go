package dispatch

import (
	"context"

	"github.com/dmitrymomot/dispatch/internal"
)

// Run serves HTTP on the configured address and runs background jobs until
// ctx is canceled or the process receives SIGINT/SIGTERM. hooks run after
// the server and job workers stop, in order.
//
//	err := svc.Run(ctx, db.Shutdown(pool), redis.Shutdown(rdb), logger.Flush)
func (s *Service) Run(ctx context.Context, hooks ...func(context.Context) error) error {
	opts := []internal.RunOption{
		internal.Logger(s.logger),
		internal.WithContext(ctx),
		internal.ReadTimeout(s.cfg.Server.ReadTimeout),
		internal.WriteTimeout(s.cfg.Server.WriteTimeout),
		internal.ShutdownTimeout(s.cfg.Server.ShutdownTimeout),
	}
	for _, hook := range hooks {
		opts = append(opts, internal.ShutdownHook(hook))
	}

	return s.app.Run(s.cfg.Server.Addr, opts...)
}
