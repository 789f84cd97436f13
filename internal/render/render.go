// Package render turns a draft into the HTML body sent to one recipient.
//
// The draft's markdown is converted with goldmark (including the mailer
// button syntax), links are optionally rewritten through the click tracker,
// the result is sanitized and wrapped in the embedded newsletter layout
// together with the draft's content items and an open pixel.
package render

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"

	"github.com/dmitrymomot/dispatch/internal/newsletter"
	"github.com/dmitrymomot/dispatch/pkg/mailer"
	"github.com/dmitrymomot/dispatch/pkg/sanitizer"
)

//go:embed templates/*.html
var templates embed.FS

// ErrRenderFailed wraps every rendering failure.
var ErrRenderFailed = errors.New("render: failed")

// Options select the per-recipient variant of a draft.
type Options struct {
	IncludeTracking bool
	RecipientID     int64
	LedgerEntryID   int64
}

// Loader loads a draft with its content items.
type Loader interface {
	Load(ctx context.Context, draftID int64) (newsletter.Content, error)
}

// Renderer renders drafts. It is safe for concurrent use.
type Renderer struct {
	loader  Loader
	md      goldmark.Markdown
	layout  *template.Template
	baseURL string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTrackingBaseURL sets the origin of click and open tracking URLs.
// Without it tracking is never applied.
func WithTrackingBaseURL(base string) Option {
	return func(r *Renderer) {
		r.baseURL = base
	}
}

// New creates a Renderer over loader.
func New(loader Loader, opts ...Option) (*Renderer, error) {
	layout, err := template.ParseFS(templates, "templates/newsletter.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse layout: %w", err)
	}

	r := &Renderer{loader: loader, layout: layout}
	for _, opt := range opts {
		opt(r)
	}

	r.md = mailer.NewMarkdown(trackingExtension{})
	return r, nil
}

type itemView struct {
	Title   string
	URL     string
	Summary string
}

type layoutData struct {
	Subject   string
	Preheader string
	Content   template.HTML
	Items     []itemView
	PixelURL  string
}

// Render returns the HTML body of draftID for one recipient.
func (r *Renderer) Render(ctx context.Context, draftID int64, opts Options) (string, error) {
	content, err := r.loader.Load(ctx, draftID)
	if err != nil {
		return "", err
	}

	tr := r.tracker(opts)

	pc := parser.NewContext()
	if tr != nil {
		pc.Set(trackingKey, tr)
	}

	var body bytes.Buffer
	if err := r.md.Convert([]byte(content.Draft.BodyMarkdown), &body, parser.WithContext(pc)); err != nil {
		return "", fmt.Errorf("%w: convert markdown: %v", ErrRenderFailed, err)
	}

	data := layoutData{
		Subject:   content.Draft.Subject,
		Preheader: content.Draft.Preheader,
		Content:   template.HTML(sanitizer.EmailHTML(body.String())), //nolint:gosec // sanitized above
		Items:     make([]itemView, 0, len(content.Items)),
	}
	for _, it := range content.Items {
		data.Items = append(data.Items, itemView{
			Title:   it.Title,
			URL:     tr.link(it.URL),
			Summary: it.Summary,
		})
	}
	if tr != nil {
		data.PixelURL = tr.pixel()
	}

	var out bytes.Buffer
	if err := r.layout.Execute(&out, data); err != nil {
		return "", fmt.Errorf("%w: execute layout: %v", ErrRenderFailed, err)
	}
	return out.String(), nil
}

func (r *Renderer) tracker(opts Options) *tracking {
	if !opts.IncludeTracking || r.baseURL == "" || opts.LedgerEntryID == 0 {
		return nil
	}
	return &tracking{
		base:        r.baseURL,
		entryID:     opts.LedgerEntryID,
		recipientID: opts.RecipientID,
	}
}
