// Package sanitizer strips markup from user-supplied profile text before it
// is stored, so a bio can never smuggle HTML into a page that renders it.
package sanitizer

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextPolicy reduces user input to plain text
type TextPolicy struct {
	policy *bluemonday.Policy
}

// NewTextPolicy creates a sanitizer that removes all HTML elements and
// attributes, keeping only their text content.
func NewTextPolicy() *TextPolicy {
	return &TextPolicy{policy: bluemonday.StrictPolicy()}
}

// Sanitize returns the plain-text rendition of the input, trimmed of
// surrounding whitespace.
func (p *TextPolicy) Sanitize(input string) string {
	return strings.TrimSpace(p.policy.Sanitize(input))
}
