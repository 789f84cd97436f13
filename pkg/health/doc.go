// Package health serves liveness and readiness probes.
//
// Liveness always answers 200. Readiness runs every named check in parallel
// under a shared timeout and answers 503 if any of them fails:
//
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//		"postgres": db.Healthcheck(pool),
//		"redis":    redis.Healthcheck(rdb),
//		"jobs":     job.Healthcheck(jobs),
//	}, health.WithLogger(log)))
package health
