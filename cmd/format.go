package main

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// newPrinter returns a printer that groups digits for human output.
func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
