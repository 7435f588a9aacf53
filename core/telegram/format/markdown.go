// Package format prepares text for Telegram MarkdownV2 messages.
package format

import "strings"

// Characters that break MarkdownV2 parsing when left unescaped inside plain text.
const (
	structuralSpecials = "-."
	valueSpecials      = "_*[]()~`>#+=|{}!\\"
)

var (
	structuralReplacer = newEscaper(structuralSpecials)
	valueReplacer      = newEscaper(valueSpecials)
)

func newEscaper(chars string) *strings.Replacer {
	pairs := make([]string, 0, len(chars)*2)
	for _, r := range chars {
		pairs = append(pairs, string(r), `\`+string(r))
	}
	return strings.NewReplacer(pairs...)
}

// EscapeStructural escapes '-' and '.' in an already formatted message.
// It is applied to the whole body right before a formatted send.
func EscapeStructural(text string) string {
	return structuralReplacer.Replace(text)
}

// EscapeValue escapes user-supplied values interpolated into a formatted template.
// '-' and '.' are left for EscapeStructural so they are escaped exactly once.
func EscapeValue(text string) string {
	return valueReplacer.Replace(text)
}
