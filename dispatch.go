package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/internal/config"
	"github.com/dmitrymomot/dispatch/internal/delivery"
	"github.com/dmitrymomot/dispatch/internal/ledger"
	"github.com/dmitrymomot/dispatch/internal/newsletter"
	"github.com/dmitrymomot/dispatch/internal/recipient"
	"github.com/dmitrymomot/dispatch/internal/remediation"
	"github.com/dmitrymomot/dispatch/internal/render"
	"github.com/dmitrymomot/dispatch/internal/report"
	"github.com/dmitrymomot/dispatch/internal/trigger"
	"github.com/dmitrymomot/dispatch/middlewares"
	"github.com/dmitrymomot/dispatch/pkg/cache"
	"github.com/dmitrymomot/dispatch/pkg/db"
	"github.com/dmitrymomot/dispatch/pkg/job"
	"github.com/dmitrymomot/dispatch/pkg/lock"
	"github.com/dmitrymomot/dispatch/pkg/mailer"
	"github.com/dmitrymomot/dispatch/pkg/pacer"
	"github.com/dmitrymomot/dispatch/pkg/redis"
	"github.com/dmitrymomot/dispatch/pkg/retry"
	"github.com/dmitrymomot/dispatch/pkg/signature"
)

// Key prefixes shared with other services on the same Redis.
const (
	lockPrefix  = "dispatch:lock:"
	cachePrefix = "dispatch:content:"
)

// Infra holds the connections the service is built on. The caller owns
// them and closes them on shutdown.
type Infra struct {
	// Pool backs the stores and background jobs. Nil means in-memory stores
	// and no background jobs.
	Pool *pgxpool.Pool
	// Redis backs the dispatch lock and the content cache. Nil means
	// in-process implementations, correct only for a single instance.
	Redis goredis.UniversalClient
	// Sender delivers both newsletters and dispatch reports.
	Sender mailer.Sender

	// Stores override the ones derived from Pool.
	Ledger     ledger.Store
	Newsletter newsletter.Store
}

// Service is the assembled delivery engine.
type Service struct {
	app        *internal.App
	cfg        config.Config
	logger     *slog.Logger
	ledger     ledger.Store
	newsletter newsletter.Store
	worker     *delivery.Worker
	jobs       *job.Manager
}

// New wires stores, the delivery worker, background jobs and the HTTP app.
//
//	svc, err := dispatch.New(cfg, dispatch.Infra{Pool: pool, Redis: rdb, Sender: sender},
//	    dispatch.WithLogger(log),
//	)
func New(cfg config.Config, infra Infra, opts ...Option) (*Service, error) {
	if infra.Sender == nil {
		return nil, ErrSenderRequired
	}

	o := newOptions(opts...)
	log := o.logger

	s := &Service{cfg: cfg, logger: log}
	s.ledger, s.newsletter = stores(infra)

	var (
		locker       lock.Locker
		contentCache cache.Cache[newsletter.Content]
	)
	if infra.Redis != nil {
		locker = lock.NewRedis(infra.Redis, lock.WithPrefix(lockPrefix))
		contentCache = cache.NewRedis[newsletter.Content](infra.Redis,
			cache.WithPrefix(cachePrefix),
			cache.WithDefaultTTL(cfg.Dispatch.ContentCacheTTL),
		)
	} else {
		locker = lock.NewMemory()
		contentCache = cache.NewMemory[newsletter.Content](cfg.Dispatch.ContentCacheTTL)
	}

	content := newsletter.NewContentLoader(s.newsletter,
		newsletter.WithCache(contentCache),
		newsletter.WithContentTTL(cfg.Dispatch.ContentCacheTTL),
	)
	renderer, err := render.New(content, render.WithTrackingBaseURL(cfg.Dispatch.TrackingBaseURL))
	if err != nil {
		return nil, fmt.Errorf("dispatch: renderer: %w", err)
	}

	reporter := report.New(
		report.NewMailer(infra.Sender, cfg.Mailer),
		cfg.Dispatch.ReportEmail,
		report.WithLogger(log),
	)

	retryOpts := []retry.Option{
		retry.WithMaxRetries(cfg.Dispatch.MaxRetries),
		retry.WithBaseDelay(cfg.Dispatch.RetryBaseDelay),
		retry.WithDeadline(cfg.Dispatch.RetryDeadline),
		retry.WithLogger(log),
	}
	pacerOpts := []pacer.Option{pacer.WithInterval(cfg.Dispatch.PaceInterval)}
	if o.sleep != nil {
		retryOpts = append(retryOpts, retry.WithSleep(o.sleep))
		pacerOpts = append(pacerOpts, pacer.WithSleep(o.sleep))
	}

	s.worker = delivery.New(delivery.Deps{
		Ledger:   s.ledger,
		Drafts:   s.newsletter,
		Resolver: recipient.NewResolver(s.newsletter, s.ledger),
		Renderer: renderer,
		Sender:   infra.Sender,
	},
		delivery.WithLocker(locker),
		delivery.WithLockTTL(cfg.Dispatch.LockTTL),
		delivery.WithRetry(retry.New(retryOpts...)),
		delivery.WithPacer(pacer.New(pacerOpts...)),
		delivery.WithInvalidator(content),
		delivery.WithReporter(reporter),
		delivery.WithFrom(cfg.From()),
		delivery.WithLogger(log),
		delivery.WithClock(o.now),
	)

	appOpts, err := s.jobOptions(infra)
	if err != nil {
		return nil, err
	}

	handlers, err := s.handlers(cfg)
	if err != nil {
		return nil, err
	}

	checks := []internal.HealthOption{}
	if infra.Pool != nil {
		checks = append(checks, internal.WithReadinessCheck("postgres", db.Healthcheck(infra.Pool)))
	}
	if infra.Redis != nil {
		checks = append(checks, internal.WithReadinessCheck("redis", redis.Healthcheck(infra.Redis)))
	}
	if s.jobs != nil {
		checks = append(checks, internal.WithReadinessCheck("jobs", job.Healthcheck(s.jobs)))
	}

	globalMW := []internal.Middleware{
		middlewares.RequestID(),
		middlewares.Recover(),
	}
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		globalMW = append(globalMW, middlewares.CORS(
			middlewares.WithAllowOrigins(cfg.Server.CORSAllowedOrigins...),
		))
	}

	appOpts = append(appOpts,
		internal.WithLogger(log),
		internal.WithMiddleware(globalMW...),
		internal.WithErrorHandler(middlewares.ErrorHandler()),
		internal.WithHandlers(handlers...),
		internal.WithHealthChecks(checks...),
	)
	s.app = internal.New(appOpts...)

	return s, nil
}

func stores(infra Infra) (ledger.Store, newsletter.Store) {
	l, n := infra.Ledger, infra.Newsletter
	if l == nil {
		if infra.Pool != nil {
			l = ledger.NewPostgres(infra.Pool)
		} else {
			l = ledger.NewMemory()
		}
	}
	if n == nil {
		if infra.Pool != nil {
			n = newsletter.NewPostgres(infra.Pool)
		} else {
			n = newsletter.NewMemory()
		}
	}
	return l, n
}

// jobOptions sets up River. With workers enabled the manager both runs and
// enqueues tasks; otherwise the process only inserts jobs.
func (s *Service) jobOptions(infra Infra) ([]internal.Option, error) {
	if infra.Pool == nil {
		return nil, nil
	}

	if !s.cfg.Jobs.WorkerEnabled {
		enq, err := job.NewEnqueuer(infra.Pool, job.WithEnqueuerLogger(s.logger))
		if err != nil {
			return nil, fmt.Errorf("dispatch: job enqueuer: %w", err)
		}
		return []internal.Option{internal.WithEnqueuer(enq)}, nil
	}

	// The scheduled sweep enqueues through the manager it is registered on.
	enq := &enqueuerRef{}
	jobOpts := []job.Option{
		job.WithLogger(s.logger),
		job.WithMaxWorkers(s.cfg.Jobs.Workers),
		job.WithQueue(trigger.QueueSend, s.cfg.Jobs.SendWorkers),
		job.WithTask(trigger.NewSendDraft(s.worker, s.logger)),
	}
	if s.cfg.Jobs.Scheduled {
		jobOpts = append(jobOpts, job.WithScheduledTask(
			trigger.NewDispatchScheduled(s.newsletter, enq, s.logger),
		))
	}

	manager, err := job.NewManager(infra.Pool, jobOpts...)
	if err != nil {
		return nil, fmt.Errorf("dispatch: job manager: %w", err)
	}
	enq.target = manager
	s.jobs = manager

	return []internal.Option{
		internal.WithEnqueuer(manager),
		internal.WithWorker(manager),
	}, nil
}

func (s *Service) handlers(cfg config.Config) ([]internal.Handler, error) {
	verifier, err := signature.NewVerifier(cfg.Signature)
	if err != nil {
		return nil, fmt.Errorf("dispatch: signature verifier: %w", err)
	}

	adminOpts := []middlewares.AdminAuthOption{}
	if cfg.Server.AdminJWTIssuer != "" {
		adminOpts = append(adminOpts, middlewares.WithAdminIssuer(cfg.Server.AdminJWTIssuer))
	}
	admin := middlewares.AdminAuth([]byte(cfg.Server.AdminJWTSecret), adminOpts...)

	var sigOpts []middlewares.SignatureOption
	if cfg.Server.QueueURL != "" {
		sigOpts = append(sigOpts, middlewares.WithSignatureURL(cfg.Server.QueueURL))
	}

	return []internal.Handler{
		trigger.NewHandler(s.worker, s.newsletter, s.ledger,
			trigger.WithQueueMiddleware(middlewares.Signature(verifier, sigOpts...)),
			trigger.WithAdminMiddleware(admin),
			trigger.WithReadMiddleware(middlewares.Timeout(cfg.Server.RequestTimeout)),
		),
		remediation.NewHandler(s.ledger, s.newsletter, s.worker, admin),
	}, nil
}

// Handler returns the HTTP handler with every route mounted.
func (s *Service) Handler() http.Handler {
	return s.app
}

// Worker returns the delivery worker.
func (s *Service) Worker() *delivery.Worker {
	return s.worker
}

// enqueuerRef forwards to an enqueuer assigned after construction.
type enqueuerRef struct {
	target internal.Enqueuer
}

func (r *enqueuerRef) Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error {
	if r.target == nil {
		return internal.ErrJobsNotConfigured
	}
	return r.target.Enqueue(ctx, name, payload, opts...)
}
