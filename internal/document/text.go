package document

import (
	"context"
	"strings"
	"unicode/utf8"
)

// PlainText passes text files through, normalising line endings.
type PlainText struct{}

// Extract returns the file contents as text.
func (PlainText) Extract(_ context.Context, name string, data []byte) (string, error) {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}
