// Package report emails a dispatch summary once a draft is closed out.
package report

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmitrymomot/dispatch/internal/delivery"
	"github.com/dmitrymomot/dispatch/pkg/logger"
	"github.com/dmitrymomot/dispatch/pkg/mailer"
)

//go:embed templates
var embedded embed.FS

const (
	templateName = "dispatch_report.md"
	layoutName   = "report.html"
)

// Templates returns the report templates, rooted so they can be handed to
// mailer.NewRenderer with the default directories.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Mailer is the part of mailer.Mailer the reporter uses.
type Mailer interface {
	Send(ctx context.Context, params mailer.SendParams) (string, error)
}

// Reporter sends dispatch reports to one address.
type Reporter struct {
	mailer Mailer
	logger *slog.Logger
	to     string
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Reporter sending to the given address.
func New(m Mailer, to string, opts ...Option) *Reporter {
	r := &Reporter{mailer: m, to: to, logger: logger.NewNope()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewMailer builds a mailer.Mailer over sender with the embedded report templates.
func NewMailer(sender mailer.Sender, cfg mailer.Config) *mailer.Mailer {
	cfg.DefaultLayout = layoutName
	return mailer.New(sender, mailer.NewRenderer(Templates()), cfg)
}

type data struct {
	ClosedAt string
	Subject  string
	DraftID  int64
	Sent     int
	Failed   int
	Pending  int
	Total    int
}

// Report implements delivery.Reporter.
func (r *Reporter) Report(ctx context.Context, rep delivery.Report) error {
	if r.to == "" {
		return nil
	}

	id, err := r.mailer.Send(ctx, mailer.SendParams{
		To:       r.to,
		Template: templateName,
		Data: data{
			DraftID:  rep.DraftID,
			Subject:  rep.Subject,
			Sent:     rep.Summary.Sent,
			Failed:   rep.Summary.Failed,
			Pending:  rep.Summary.Pending,
			Total:    rep.Summary.Total,
			ClosedAt: rep.ClosedAt.UTC().Format(time.RFC1123),
		},
		Tags: mailer.Tags{
			"kind":     "dispatch_report",
			"draft_id": strconv.FormatInt(rep.DraftID, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("report: send: %w", err)
	}

	r.logger.InfoContext(ctx, "dispatch report sent",
		slog.Int64("draft_id", rep.DraftID),
		slog.String("message_id", id),
	)
	return nil
}
