// Package cache provides a small generic TTL cache with Redis and in-memory
// backends, plus GetOrSet for stampede-free loading.
//
//	drafts := cache.NewRedis[newsletter.Content](rdb, cache.WithPrefix("draft"))
//	content, err := cache.GetOrSet(ctx, drafts, "42", func(ctx context.Context) (newsletter.Content, time.Duration, error) {
//		c, err := store.LoadContent(ctx, 42)
//		return c, 5 * time.Minute, err
//	})
package cache
