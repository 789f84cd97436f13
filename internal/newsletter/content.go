package newsletter

import (
	"context"
	"strconv"
	"time"

	"github.com/dmitrymomot/dispatch/pkg/cache"
)

const defaultContentTTL = 10 * time.Minute

// ContentLoader loads a draft with its items, caching the result. A sent
// draft is evicted on close-out so later reads observe the new status.
type ContentLoader struct {
	store Store
	cache cache.Cache[Content]
	ttl   time.Duration
}

// LoaderOption configures a ContentLoader.
type LoaderOption func(*ContentLoader)

// WithCache sets the backing cache. Without it every Load hits the store.
func WithCache(c cache.Cache[Content]) LoaderOption {
	return func(l *ContentLoader) {
		l.cache = c
	}
}

// WithContentTTL sets how long loaded content is cached. Default 10m.
func WithContentTTL(d time.Duration) LoaderOption {
	return func(l *ContentLoader) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// NewContentLoader creates a loader over store.
func NewContentLoader(store Store, opts ...LoaderOption) *ContentLoader {
	l := &ContentLoader{store: store, ttl: defaultContentTTL}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the draft and its content items.
func (l *ContentLoader) Load(ctx context.Context, draftID int64) (Content, error) {
	if l.cache == nil {
		c, _, err := l.load(ctx, draftID)
		return c, err
	}
	return cache.GetOrSet(ctx, l.cache, contentKey(draftID), func(ctx context.Context) (Content, time.Duration, error) {
		return l.load(ctx, draftID)
	})
}

// Invalidate drops any cached content for the draft.
func (l *ContentLoader) Invalidate(ctx context.Context, draftID int64) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Delete(ctx, contentKey(draftID))
}

func (l *ContentLoader) load(ctx context.Context, draftID int64) (Content, time.Duration, error) {
	d, err := l.store.GetDraft(ctx, draftID)
	if err != nil {
		return Content{}, 0, err
	}
	items, err := l.store.DraftItems(ctx, draftID)
	if err != nil {
		return Content{}, 0, err
	}
	return Content{Draft: d, Items: items}, l.ttl, nil
}

func contentKey(draftID int64) string {
	return "draft:" + strconv.FormatInt(draftID, 10)
}
