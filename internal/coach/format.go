package coach

import "strings"

// FormatReply normalizes generated text to the two markup primitives the
// frontend understands: emphasis markers and line breaks.
func FormatReply(text string) string {
	text = strings.ReplaceAll(text, "\r\n", LineBreak)
	text = strings.TrimSpace(text)

	// Collapse runs of blank lines to a single blank line.
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	// An unbalanced emphasis marker renders as literal asterisks; drop all
	// markers rather than leak them.
	if strings.Count(text, Emphasis)%2 != 0 {
		text = strings.ReplaceAll(text, Emphasis, "")
	}

	return text
}
