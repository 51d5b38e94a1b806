package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatThousands renders 12500 as "12,500".
func FormatThousands(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}
