package mailer

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Button markdown syntax: [!button|Label](https://example.com)
const buttonPrefix = "[!button|"

// DefaultButtonStyle is inlined on every button since most email clients
// drop <style> blocks.
const DefaultButtonStyle = "display:inline-block;padding:12px 24px;border-radius:6px;" +
	"background:#111827;color:#ffffff;text-decoration:none;font-weight:600"

// KindButton is the AST node kind of ButtonNode.
var KindButton = ast.NewNodeKind("Button")

// ButtonNode is a call-to-action link. Its URL may be rewritten by AST
// transformers before rendering.
type ButtonNode struct {
	ast.BaseInline
	URL   []byte
	Label []byte
}

// Kind implements ast.Node.
func (n *ButtonNode) Kind() ast.NodeKind {
	return KindButton
}

// Dump implements ast.Node.
func (n *ButtonNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"URL":   string(n.URL),
		"Label": string(n.Label),
	}, nil)
}

type buttonParser struct{}

func (buttonParser) Trigger() []byte {
	return []byte{'['}
}

func (buttonParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	rest, ok := bytes.CutPrefix(line, []byte(buttonPrefix))
	if !ok {
		return nil
	}

	label, rest, ok := bytes.Cut(rest, []byte("]("))
	if !ok || len(label) == 0 {
		return nil
	}

	url, _, ok := bytes.Cut(rest, []byte(")"))
	if !ok || len(url) == 0 {
		return nil
	}

	block.Advance(len(buttonPrefix) + len(label) + 2 + len(url) + 1)

	return &ButtonNode{
		URL:   bytes.Clone(url),
		Label: bytes.Clone(label),
	}
}

type buttonRenderer struct {
	style string
}

func (r *buttonRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindButton, r.render)
}

func (r *buttonRenderer) render(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	n := node.(*ButtonNode)
	_, _ = w.WriteString(`<a href="`)
	if !html.IsDangerousURL(n.URL) {
		_, _ = w.Write(util.EscapeHTML(util.URLEscape(n.URL, true)))
	}
	_, _ = w.WriteString(`" class="btn"`)
	if r.style != "" {
		_, _ = w.WriteString(` style="`)
		_, _ = w.Write(util.EscapeHTML([]byte(r.style)))
		_, _ = w.WriteString(`"`)
	}
	_, _ = w.WriteString(`>`)
	_, _ = w.Write(util.EscapeHTML(n.Label))
	_, _ = w.WriteString(`</a>`)

	return ast.WalkContinue, nil
}

// ButtonOption configures the button extension.
type ButtonOption func(*buttonExtension)

// WithButtonStyle sets the inline style of rendered buttons. Empty disables it.
func WithButtonStyle(style string) ButtonOption {
	return func(e *buttonExtension) {
		e.style = style
	}
}

type buttonExtension struct {
	style string
}

func (e *buttonExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(buttonParser{}, 50),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&buttonRenderer{style: e.style}, 50),
	))
}

// NewButtonExtension returns the goldmark extension for button links.
func NewButtonExtension(opts ...ButtonOption) goldmark.Extender {
	e := &buttonExtension{style: DefaultButtonStyle}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
