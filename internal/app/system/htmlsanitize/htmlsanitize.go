// Package htmlsanitize cleans HTML that users paste into runbook descriptions.
// Text without markup is left exactly as written.
package htmlsanitize

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	once   sync.Once
	policy *bluemonday.Policy
)

func ugc() *bluemonday.Policy {
	once.Do(func() {
		policy = bluemonday.UGCPolicy()
		policy.AllowAttrs("class").OnElements("pre", "code")
	})
	return policy
}

// markup matches an opening, closing or self-closing tag for a known HTML
// element, or a comment. Placeholders such as <name> and comparisons such as
// a<b are not tags.
var markup = regexp.MustCompile(`(?i)</?(?:a|abbr|b|blockquote|br|button|code|del|details|div|em|embed|form|h[1-6]|hr|i|iframe|img|input|kbd|li|link|meta|object|ol|p|pre|s|script|span|strong|style|sub|summary|sup|svg|table|tbody|td|textarea|th|thead|tr|u|ul)(?:\s[^<>]*)?/?>|<!--`)

// HasMarkup reports whether s contains HTML tags.
func HasMarkup(s string) bool {
	return markup.MatchString(s)
}

// Sanitize keeps formatting that is safe to render (paragraphs, lists,
// headings, code blocks, tables, http(s) links) and removes scripts, event
// handlers, iframes and styles.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc().Sanitize(s)
}

// Clean sanitizes s when it contains markup and returns it unchanged
// otherwise.
func Clean(s string) string {
	if !HasMarkup(s) {
		return s
	}
	return Sanitize(s)
}
