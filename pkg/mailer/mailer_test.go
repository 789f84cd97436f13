package mailer

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, email *Email) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func newTestMailer(sender Sender, cfg Config) *Mailer {
	if cfg.DefaultLayout == "" {
		cfg.DefaultLayout = "base.html"
	}
	return New(sender, NewRenderer(reportFS()), cfg)
}

func TestMailer_Send(t *testing.T) {
	t.Parallel()

	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(e *Email) bool {
		return e.To[0] == "ops@example.com" &&
			e.Subject == "Draft 3 dispatched" &&
			e.Tags["kind"] == "report"
	})).Return("msg_1", nil).Once()

	m := newTestMailer(sender, Config{})
	id, err := m.Send(context.Background(), SendParams{
		To:       "ops@example.com",
		Template: "report.md",
		Data:     map[string]any{"DraftID": 3, "Sent": 2, "Failed": 0},
		Tags:     Tags{"kind": "report"},
	})

	require.NoError(t, err)
	assert.Equal(t, "msg_1", id)
	sender.AssertExpectations(t)
}

func TestMailer_Send_SubjectResolution(t *testing.T) {
	t.Parallel()

	fs := reportFS()
	fs["nosubject.md"] = &fstest.MapFile{Data: []byte("Body only")}

	tests := []struct {
		name     string
		template string
		subject  string
		want     string
	}{
		{"explicit subject wins", "report.md", "Override {{.DraftID}}", "Override 3"},
		{"template metadata", "report.md", "", "Draft 3 dispatched"},
		{"fallback", "nosubject.md", "", "Notification"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender := &MockSender{}
			sender.On("Send", mock.Anything, mock.MatchedBy(func(e *Email) bool {
				return e.Subject == tt.want
			})).Return("id", nil).Once()

			m := New(sender, NewRenderer(fs), Config{DefaultLayout: "base.html", FallbackSubject: "Notification"})
			_, err := m.Send(context.Background(), SendParams{
				To:       "a@example.com",
				Template: tt.template,
				Subject:  tt.subject,
				Data:     map[string]any{"DraftID": 3, "Sent": 1, "Failed": 0},
			})
			require.NoError(t, err)
			sender.AssertExpectations(t)
		})
	}
}

func TestMailer_Send_Errors(t *testing.T) {
	t.Parallel()

	t.Run("no recipient", func(t *testing.T) {
		t.Parallel()
		sender := &MockSender{}
		_, err := newTestMailer(sender, Config{}).Send(context.Background(), SendParams{Template: "report.md"})
		require.ErrorIs(t, err, ErrNoRecipient)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("render failure", func(t *testing.T) {
		t.Parallel()
		sender := &MockSender{}
		_, err := newTestMailer(sender, Config{DefaultLayout: "missing.html"}).Send(context.Background(), SendParams{
			To:       "a@example.com",
			Template: "report.md",
			Data:     map[string]any{},
		})
		require.ErrorIs(t, err, ErrRenderFailed)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("bad subject template", func(t *testing.T) {
		t.Parallel()
		sender := &MockSender{}
		_, err := newTestMailer(sender, Config{}).Send(context.Background(), SendParams{
			To:       "a@example.com",
			Template: "report.md",
			Subject:  "{{.Broken",
			Data:     map[string]any{},
		})
		require.ErrorIs(t, err, ErrRenderFailed)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("sender failure", func(t *testing.T) {
		t.Parallel()
		providerErr := errors.New("provider down")
		sender := &MockSender{}
		sender.On("Send", mock.Anything, mock.Anything).Return("", providerErr).Once()

		_, err := newTestMailer(sender, Config{}).Send(context.Background(), SendParams{
			To:       "a@example.com",
			Template: "report.md",
			Data:     map[string]any{"DraftID": 1},
		})
		require.ErrorIs(t, err, ErrSendFailed)
		require.ErrorIs(t, err, providerErr)
		sender.AssertExpectations(t)
	})
}

func TestEmail_Validate(t *testing.T) {
	t.Parallel()

	var nilEmail *Email
	assert.ErrorIs(t, nilEmail.Validate(), ErrNoRecipient)
	assert.ErrorIs(t, (&Email{To: []string{"a@b.c"}}).Validate(), ErrNoSubject)
	assert.ErrorIs(t, (&Email{To: []string{"a@b.c"}, Subject: "s"}).Validate(), ErrNoContent)
	assert.NoError(t, (&Email{To: []string{"a@b.c"}, Subject: "s", Text: "t"}).Validate())
}

func TestAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a@example.com", Address("", "a@example.com"))
	assert.Equal(t, `"Ada Lovelace" <ada@example.com>`, Address("Ada Lovelace", "ada@example.com"))
}
