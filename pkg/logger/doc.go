// Package logger builds slog loggers that enrich records from context and
// optionally forward warnings and errors to Sentry.
//
//	log := logger.New(cfg, os.Stdout, logger.ContextAttrs)
//	ctx = logger.WithAttrs(ctx, slog.Int64("draft_id", 42))
//	log.InfoContext(ctx, "batch finished", slog.Int("sent", 10))
//	// {"level":"INFO","msg":"batch finished","sent":10,"draft_id":42}
//
// With an empty SentryDSN the logger writes to the given writer only.
package logger
