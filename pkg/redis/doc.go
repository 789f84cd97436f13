// Package redis opens go-redis clients from environment configuration.
//
// The dispatcher uses Redis for the per-draft send lock and the draft cache.
// Connect retries the initial ping so the service tolerates Redis starting
// after it; Healthcheck and Shutdown plug into the app lifecycle.
//
//	rdb, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//		return err
//	}
package redis
