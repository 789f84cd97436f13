// Package mailer renders markdown email templates and hands the result to a
// provider-specific Sender.
//
// Templates are markdown files with optional YAML frontmatter:
//
//	---
//	Subject: Draft {{.DraftID}} dispatched
//	---
//	Sent **{{.Sent}}** emails, {{.Failed}} failed.
//
//	[!button|Open status]({{.StatusURL}})
//
// The body is executed as a text/template, converted to HTML with goldmark
// (including the button extension) and wrapped in an html/template layout
// that receives .Content, .Metadata and .Data.
//
// Usage:
//
//	sender, err := resend.New(resend.Config{APIKey: key, SenderEmail: "news@example.com"})
//	if err != nil {
//		return err
//	}
//	m := mailer.New(sender, mailer.NewRenderer(templates.FS), mailer.Config{DefaultLayout: "base.html"})
//	id, err := m.Send(ctx, mailer.SendParams{To: "ops@example.com", Template: "report.md", Data: data})
//
// Senders return the provider message id. Callers that deliver prebuilt
// content, such as the newsletter worker, call Sender.Send directly.
package mailer
