// Package translate formats user visible text in the host locale.
package translate

import (
	"log"
	"strconv"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("ubatch: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}

// Hex formats an address the way kernel diagnostics print them.
func Hex(value uint64) string {
	return printer.Sprintf("%#x", value)
}

// Int formats a count or code without locale digit grouping.
func Int(value int64) string {
	return strconv.FormatInt(value, 10)
}

// Uint formats an identifier without locale digit grouping.
func Uint(value uint64) string {
	return strconv.FormatUint(value, 10)
}
