// Package security holds input-hygiene helpers for user-generated content.
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips dangerous markup from user-generated content before it is
// persisted. Post bodies keep basic formatting; titles and comments are
// reduced to plain text.
type Sanitizer struct {
	body  *bluemonday.Policy
	plain *bluemonday.Policy
}

// NewSanitizer builds the two policies once; bluemonday policies are safe for
// concurrent use, so one Sanitizer serves all requests.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		body:  bluemonday.UGCPolicy(),
		plain: bluemonday.StrictPolicy(),
	}
}

// Body sanitizes a post body, allowing the usual user-generated-content
// formatting tags but nothing executable.
func (s *Sanitizer) Body(input string) string {
	return strings.TrimSpace(s.body.Sanitize(input))
}

// Plain strips all markup. Used for titles, comments, and profile attributes.
func (s *Sanitizer) Plain(input string) string {
	return strings.TrimSpace(s.plain.Sanitize(input))
}
