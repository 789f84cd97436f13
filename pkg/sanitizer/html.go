// Package sanitizer cleans HTML with bluemonday policies.
package sanitizer

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	safePolicy   *bluemonday.Policy
	emailPolicy  *bluemonday.Policy
	initOnce     sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		safePolicy = bluemonday.NewPolicy()
		safePolicy.AllowStandardURLs()
		safePolicy.AllowElements(
			"p", "br",
			"strong", "b", "em", "i",
			"ul", "ol", "li",
			"code", "pre", "blockquote",
		)
		safePolicy.AllowAttrs("href").OnElements("a")
		safePolicy.RequireNoFollowOnLinks(true)

		// Newsletter bodies: user-generated content rules plus the inline
		// styles call-to-action buttons rely on.
		emailPolicy = bluemonday.UGCPolicy()
		emailPolicy.RequireNoFollowOnLinks(false)
		emailPolicy.AllowAttrs("class").OnElements("a")
		emailPolicy.AllowStyles(
			"display", "padding", "border-radius",
			"background", "background-color", "color",
			"text-decoration", "font-weight",
		).OnElements("a")
	})
}

// StripHTML removes every tag and returns the text content.
func StripHTML(s string) string {
	initPolicies()
	return strictPolicy.Sanitize(s)
}

// SanitizeHTML keeps basic formatting and links.
func SanitizeHTML(s string) string {
	initPolicies()
	return safePolicy.Sanitize(s)
}

// EmailHTML sanitizes a rendered newsletter body. It keeps headings,
// tables, images and styled links, and drops scripts, event handlers and
// dangerous URLs.
func EmailHTML(s string) string {
	initPolicies()
	return emailPolicy.Sanitize(s)
}

// SanitizeHTMLCustom applies policy; a nil policy returns s unchanged.
func SanitizeHTMLCustom(s string, policy *bluemonday.Policy) string {
	if policy == nil {
		return s
	}
	return policy.Sanitize(s)
}
