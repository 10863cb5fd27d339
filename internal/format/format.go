// Package format holds the display helpers shared by the page templates.
package format

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"bookworm/internal/entity"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer    = message.NewPrinter(language.AmericanEnglish)
	titleCaser = cases.Title(language.AmericanEnglish)

	emailRe     = regexp.MustCompile(`^[^` + space + `@]+@[^` + space + `@]+\.[^` + space + `@]+$`)
	slugStripRe = regexp.MustCompile(`[^\w` + space + `-]`)
	slugSepRe   = regexp.MustCompile(`[` + space + `_-]+`)
)

// space is a character-class body matching Unicode whitespace, including
// no-break and ideographic spaces.
const space = `\s\v\p{Z}\x{FEFF}`

// Currency renders an amount in US dollars, e.g. "$1,234.50".
func Currency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "$" + printer.Sprintf("%.2f", amount)
}

// Date renders t as "January 2, 2006". The zero time renders empty.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// DateTime renders t as "Jan 2, 2006, 03:04 PM".
func DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006, 03:04 PM")
}

// Truncate cuts text to n characters and marks the cut with "...".
func Truncate(text string, n int) string {
	if n < 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}

// Slug turns a title into a URL slug.
func Slug(title string) string {
	s := strings.ToLower(title)
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugSepRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// StatusLabel capitalizes an order status for display.
func StatusLabel(status entity.OrderStatus) string {
	return titleCaser.String(string(status))
}

// StatusClass returns the badge colour classes for an order status.
func StatusClass(status entity.OrderStatus) string {
	switch status {
	case entity.OrderPending:
		return "text-yellow-600 bg-yellow-100"
	case entity.OrderProcessing:
		return "text-blue-600 bg-blue-100"
	case entity.OrderShipped:
		return "text-purple-600 bg-purple-100"
	case entity.OrderDelivered:
		return "text-green-600 bg-green-100"
	case entity.OrderCancelled:
		return "text-red-600 bg-red-100"
	default:
		return "text-gray-600 bg-gray-100"
	}
}

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// Initial is the avatar letter for a user name, "U" when there is none.
func Initial(name string) string {
	for _, r := range strings.TrimSpace(name) {
		return string(unicode.ToUpper(r))
	}
	return "U"
}

// Plural picks singular or plural by n, e.g. Plural(1, "item", "items").
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
