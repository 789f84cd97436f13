package render

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/dmitrymomot/dispatch/pkg/mailer"
)

var trackingKey = parser.NewContextKey()

// tracking builds per-send click and open URLs:
//
//	{base}/t/c/{sendID}?r={recipientID}&u={destination}
//	{base}/t/o/{sendID}.gif?r={recipientID}
type tracking struct {
	base        string
	entryID     int64
	recipientID int64
}

// link rewrites absolute http(s) destinations; anything else is returned as is.
// A nil tracking leaves every link untouched.
func (t *tracking) link(dest string) string {
	if t == nil {
		return dest
	}
	u, err := url.Parse(dest)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return dest
	}

	q := url.Values{}
	q.Set("r", strconv.FormatInt(t.recipientID, 10))
	q.Set("u", dest)
	return t.endpoint("c", "") + "?" + q.Encode()
}

func (t *tracking) pixel() string {
	q := url.Values{}
	q.Set("r", strconv.FormatInt(t.recipientID, 10))
	return t.endpoint("o", ".gif") + "?" + q.Encode()
}

func (t *tracking) endpoint(kind, suffix string) string {
	return strings.TrimRight(t.base, "/") + "/t/" + kind + "/" + strconv.FormatInt(t.entryID, 10) + suffix
}

// linkTracker rewrites link and button destinations when the parser context
// carries a tracking value.
type linkTracker struct{}

func (linkTracker) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	t, ok := pc.Get(trackingKey).(*tracking)
	if !ok || t == nil {
		return
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Link:
			n.Destination = []byte(t.link(string(n.Destination)))
		case *mailer.ButtonNode:
			n.URL = []byte(t.link(string(n.URL)))
		}
		return ast.WalkContinue, nil
	})
}

type trackingExtension struct{}

func (trackingExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(util.Prioritized(linkTracker{}, 100)))
}
