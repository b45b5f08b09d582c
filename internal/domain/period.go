package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Granularity is the calendar width of a period bucket
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// ParseGranularity accepts both the noun and the adverb form ("month", "monthly")
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "daily":
		return GranularityDay, nil
	case "week", "weekly":
		return GranularityWeek, nil
	case "month", "monthly":
		return GranularityMonth, nil
	case "year", "yearly":
		return GranularityYear, nil
	default:
		return "", InvalidRequestf("unknown granularity %q, expected day, week, month or year", s)
	}
}

// PeriodKey maps a date to its bucket key.
// Keys of one granularity sort lexicographically in chronological order.
// Weekly keys use the ISO week-year, which can differ from the calendar
// year in the first and last days of January and December.
func PeriodKey(date time.Time, g Granularity) string {
	switch g {
	case GranularityWeek:
		year, week := date.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case GranularityMonth:
		return fmt.Sprintf("%04d-%02d", date.Year(), int(date.Month()))
	case GranularityYear:
		return fmt.Sprintf("%04d", date.Year())
	default:
		return fmt.Sprintf("%04d-%02d-%02d", date.Year(), int(date.Month()), date.Day())
	}
}

// PeriodSnapshot is the cumulative portfolio valuation at the end of one period
type PeriodSnapshot struct {
	Date         string
	Invested     decimal.Decimal
	CurrentValue decimal.Decimal
	ProfitLoss   decimal.Decimal
	Count        int // active positions
}
