package routing

import (
	"regexp"
	"strings"
)

var (
	leadingBOS       = regexp.MustCompile(`(?i)^<s>\s*`)
	trailingEOS      = regexp.MustCompile(`(?i)\s*</s>$`)
	leadingInstTag   = regexp.MustCompile(`(?i)^\[(?:\[B?_?INST\]\]|B?_?INST\])\s*`)
	trailingInstTag  = regexp.MustCompile(`(?i)\s*\[(?:\[/B?_?INST\]\]|/B?_?INST\])$`)
	chatMLDelimiters = regexp.MustCompile(`<\|im_(?:start|end)\|>`)
)

// Sanitize strips the model control tokens (Mistral/Llama instruction tags
// and ChatML delimiters) that some free models leak into their replies.
func Sanitize(content string) string {
	content = leadingBOS.ReplaceAllString(content, "")
	content = trailingEOS.ReplaceAllString(content, "")
	content = leadingInstTag.ReplaceAllString(content, "")
	content = trailingInstTag.ReplaceAllString(content, "")
	content = chatMLDelimiters.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}
