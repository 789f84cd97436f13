package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		wantMeta map[string]any
		wantBody string
	}{
		{
			name:     "frontmatter and body",
			content:  "---\nSubject: Dispatch report\nPriority: 2\n---\nSent **{{.Sent}}** emails.\n",
			wantMeta: map[string]any{"Subject": "Dispatch report", "Priority": 2},
			wantBody: "Sent **{{.Sent}}** emails.\n",
		},
		{
			name:     "no frontmatter",
			content:  "Just a body",
			wantMeta: map[string]any{},
			wantBody: "Just a body",
		},
		{
			name:     "empty frontmatter",
			content:  "---\n\n---\nBody",
			wantMeta: map[string]any{},
			wantBody: "Body",
		},
		{
			name:     "windows line endings",
			content:  "---\r\nSubject: Hi\r\n---\r\nBody\r\n",
			wantMeta: map[string]any{"Subject": "Hi"},
			wantBody: "Body\r\n",
		},
		{
			name:     "empty body",
			content:  "---\nSubject: Hi\n---\n",
			wantMeta: map[string]any{"Subject": "Hi"},
			wantBody: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpl, err := ParseTemplate([]byte(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMeta, tmpl.Metadata)
			assert.Equal(t, tt.wantBody, tmpl.Body)
		})
	}
}

func TestParseTemplate_Invalid(t *testing.T) {
	t.Parallel()

	for name, content := range map[string]string{
		"missing closing delimiter": "---\nSubject: Hi\nBody",
		"nothing after opening":     "---\n",
		"invalid yaml":              "---\nSubject: [unclosed\n---\nBody",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseTemplate([]byte(content))
			require.ErrorIs(t, err, ErrInvalidFrontmatter)
		})
	}
}
