package format

import (
	"testing"
	"time"

	"bookworm/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	tests := map[float64]string{
		0:       "$0.00",
		9.99:    "$9.99",
		1234.5:  "$1,234.50",
		1e6:     "$1,000,000.00",
		-12.5:   "-$12.50",
	}
	for in, want := range tests {
		assert.Equal(t, want, Currency(in), "Currency(%v)", in)
	}
}

func TestDates(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "March 5, 2024", Date(ts))
	assert.Equal(t, "Mar 5, 2024, 03:04 PM", DateTime(ts))
	assert.Equal(t, "", Date(time.Time{}))
	assert.Equal(t, "", DateTime(time.Time{}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exactly10!", Truncate("exactly10!", 10))
	assert.Equal(t, "The quick...", Truncate("The quick brown fox", 9))
	assert.Equal(t, "héll...", Truncate("héllo wörld", 4))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "the-lord-of-the-rings", Slug("The Lord of the Rings"))
	assert.Equal(t, "dont-panic", Slug("  Don't   Panic! "))
	assert.Equal(t, "snake-case-title", Slug("snake_case__title"))
	assert.Equal(t, "", Slug("!!!"))
	assert.Equal(t, "war-and-peace", Slug("War\u00a0and\u3000Peace"))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "Pending", StatusLabel(entity.OrderPending))
	assert.Equal(t, "Cancelled", StatusLabel(entity.OrderCancelled))
	assert.Equal(t, "text-purple-600 bg-purple-100", StatusClass(entity.OrderShipped))
	assert.Equal(t, "text-gray-600 bg-gray-100", StatusClass("lost"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("ann@example.com"))
	assert.False(t, IsValidEmail("ann@example"))
	assert.False(t, IsValidEmail("ann example@x.io"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("a\u00a0b@c.de"))
	assert.False(t, IsValidEmail("ann@exa\u2009mple.com"))
	assert.False(t, IsValidEmail("ann@example.com\ufeff"))
}

func TestInitial(t *testing.T) {
	assert.Equal(t, "A", Initial("ann"))
	assert.Equal(t, "É", Initial(" émile"))
	assert.Equal(t, "U", Initial("  "))
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "item", Plural(1, "item", "items"))
	assert.Equal(t, "items", Plural(3, "item", "items"))
}
