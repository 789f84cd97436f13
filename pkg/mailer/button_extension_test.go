package mailer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
)

func convert(t *testing.T, md goldmark.Markdown, src string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, md.Convert([]byte(src), &buf))
	return buf.String()
}

func TestButtonExtension(t *testing.T) {
	t.Parallel()

	plain := goldmark.New(goldmark.WithExtensions(NewButtonExtension(WithButtonStyle(""))))
	styled := goldmark.New(goldmark.WithExtensions(NewButtonExtension()))

	tests := []struct {
		name     string
		md       goldmark.Markdown
		src      string
		contains []string
		excludes []string
	}{
		{
			name:     "renders button",
			md:       plain,
			src:      `[!button|Read more](https://example.com/post)`,
			contains: []string{`<a href="https://example.com/post" class="btn">Read more</a>`},
		},
		{
			name:     "inline style by default",
			md:       styled,
			src:      `[!button|Open](https://example.com)`,
			contains: []string{`style="display:inline-block;`},
		},
		{
			name:     "escapes label",
			md:       plain,
			src:      `[!button|<script>x</script>](https://example.com)`,
			contains: []string{"&lt;script&gt;"},
			excludes: []string{"<script>"},
		},
		{
			name:     "drops dangerous urls",
			md:       plain,
			src:      `[!button|Click](javascript:alert(1))`,
			contains: []string{`<a href="" class="btn">Click</a>`},
			excludes: []string{"javascript:"},
		},
		{
			name:     "regular links untouched",
			md:       plain,
			src:      `[Docs](https://example.com/docs)`,
			contains: []string{`<a href="https://example.com/docs">Docs</a>`},
			excludes: []string{`class="btn"`},
		},
		{
			name:     "incomplete syntax falls back to text",
			md:       plain,
			src:      `[!button|Broken](https://example.com`,
			excludes: []string{`class="btn"`},
		},
		{
			name: "surrounded by markdown",
			md:   plain,
			src:  "# This week\n\nNew issue is out:\n\n[!button|Read](https://example.com/7)\n\nThanks!",
			contains: []string{
				"<h1>This week</h1>",
				`<a href="https://example.com/7" class="btn">Read</a>`,
				"<p>Thanks!</p>",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := convert(t, tt.md, tt.src)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}
