package ui

import "github.com/muesli/reflow/wordwrap"

func wrapWords(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wordwrap.String(s, width)
}
