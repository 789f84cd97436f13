package resend

// Config holds Resend provider settings.
type Config struct {
	APIKey      string `env:"RESEND_API_KEY"`
	SenderEmail string `env:"RESEND_FROM_EMAIL"`
	SenderName  string `env:"RESEND_FROM_NAME"`
	// BaseURL points the client at another Resend-compatible API, e.g. a local twin.
	BaseURL string `env:"RESEND_BASE_URL"`
}
