// Package config loads the service configuration from the environment.
//
// Config is parsed once at start and passed explicitly; nothing reads the
// environment after Load returns.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/dispatch/pkg/db"
	"github.com/dmitrymomot/dispatch/pkg/logger"
	"github.com/dmitrymomot/dispatch/pkg/mailer"
	"github.com/dmitrymomot/dispatch/pkg/mailer/resend"
	"github.com/dmitrymomot/dispatch/pkg/redis"
	"github.com/dmitrymomot/dispatch/pkg/signature"
)

// Config is the full service configuration.
type Config struct {
	Logger    logger.Config
	DB        db.Config
	Redis     redis.Config
	Mailer    mailer.Config
	Resend    resend.Config
	Signature signature.Config
	Server    Server
	Dispatch  Dispatch
	Jobs      Jobs
}

// Server holds HTTP server settings.
type Server struct {
	Addr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`

	// The signed queue route drains a whole draft in-request.
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15m"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	AdminJWTSecret     string   `env:"ADMIN_JWT_SECRET,required,notEmpty"`
	AdminJWTIssuer     string   `env:"ADMIN_JWT_ISSUER"`

	// QueueURL, when set, must match the subject of queue signatures.
	QueueURL string `env:"QUEUE_CALLBACK_URL"`
}

// Dispatch holds delivery settings.
type Dispatch struct {
	FromEmail       string        `env:"DISPATCH_FROM_EMAIL"`
	FromName        string        `env:"DISPATCH_FROM_NAME"`
	ReportEmail     string        `env:"REPORT_EMAIL"`
	TrackingBaseURL string        `env:"TRACKING_BASE_URL"`
	LockTTL         time.Duration `env:"DISPATCH_LOCK_TTL" envDefault:"30s"`
	PaceInterval    time.Duration `env:"DISPATCH_PACE_INTERVAL" envDefault:"500ms"`
	MaxRetries      int           `env:"DISPATCH_MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay  time.Duration `env:"DISPATCH_RETRY_BASE_DELAY" envDefault:"1s"`
	// Zero disables the overall retry deadline.
	RetryDeadline   time.Duration `env:"DISPATCH_RETRY_DEADLINE" envDefault:"0s"`
	ContentCacheTTL time.Duration `env:"CONTENT_CACHE_TTL" envDefault:"10m"`
}

// Jobs holds background job settings.
type Jobs struct {
	// Disabled workers leave the process insert-only: jobs are enqueued for
	// another instance to run.
	WorkerEnabled bool `env:"JOBS_WORKER_ENABLED" envDefault:"true"`
	Workers       int  `env:"JOBS_WORKERS" envDefault:"2"`
	// SendWorkers drain drafts on the newsletter queue. One keeps the
	// provider pacing global to the process.
	SendWorkers   int  `env:"JOBS_SEND_WORKERS" envDefault:"1"`
	Scheduled     bool `env:"JOBS_SCHEDULED_ENABLED" envDefault:"true"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	var errs []error

	if c.Signature.CurrentSigningKey == "" && c.Signature.NextSigningKey == "" {
		errs = append(errs, errors.New("at least one of QSTASH_CURRENT_SIGNING_KEY, QSTASH_NEXT_SIGNING_KEY is required"))
	}
	if c.Dispatch.FromEmail == "" && c.Resend.SenderEmail == "" {
		errs = append(errs, errors.New("DISPATCH_FROM_EMAIL or RESEND_FROM_EMAIL is required"))
	}
	if c.Dispatch.TrackingBaseURL != "" {
		if u, err := url.Parse(c.Dispatch.TrackingBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("TRACKING_BASE_URL %q is not an absolute URL", c.Dispatch.TrackingBaseURL))
		}
	}
	if c.Dispatch.MaxRetries < 0 {
		errs = append(errs, errors.New("DISPATCH_MAX_RETRIES must not be negative"))
	}
	if c.Dispatch.LockTTL <= 0 {
		errs = append(errs, errors.New("DISPATCH_LOCK_TTL must be positive"))
	}
	if c.Jobs.Workers <= 0 {
		errs = append(errs, errors.New("JOBS_WORKERS must be positive"))
	}
	if c.Jobs.SendWorkers <= 0 {
		errs = append(errs, errors.New("JOBS_SEND_WORKERS must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// From returns the newsletter From address, falling back to the provider
// sender.
func (c Config) From() string {
	email, name := c.Dispatch.FromEmail, c.Dispatch.FromName
	if email == "" {
		email, name = c.Resend.SenderEmail, c.Resend.SenderName
	}
	return mailer.Address(name, email)
}
