package ledger

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/numa-app/numa-core/internal/domain"
)

// ResolvePeriod turns a READ_QUERY entity's period string into a concrete
// date range anchored on today. Unknown names fall through to "today" so a
// malformed extraction never widens a query's scope.
func ResolvePeriod(name string, today civil.Date) Period {
	switch name {
	case "this_week":
		t := today.In(time.UTC)
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start := t.AddDate(0, 0, -(weekday - 1))
		return Period{Name: name, Start: civil.DateOf(start), End: today}
	case "this_month":
		t := today.In(time.UTC)
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{Name: name, Start: civil.DateOf(start), End: today}
	case "today", "":
		return Period{Name: "today", Start: today, End: today}
	default:
		return Period{Name: "today", Start: today, End: today}
	}
}

// ParseExplicitRange parses "YYYY-MM-DD..YYYY-MM-DD" into a Period.
func ParseExplicitRange(s string) (Period, error) {
	var startStr, endStr string
	if _, err := fmt.Sscanf(s, "%10s..%10s", &startStr, &endStr); err != nil {
		return Period{}, fmt.Errorf("ledger: invalid range %q: %w", s, err)
	}
	start, err := civil.ParseDate(startStr)
	if err != nil {
		return Period{}, fmt.Errorf("ledger: invalid range start %q: %w", startStr, err)
	}
	end, err := civil.ParseDate(endStr)
	if err != nil {
		return Period{}, fmt.Errorf("ledger: invalid range end %q: %w", endStr, err)
	}
	return Period{Start: start, End: end}, nil
}

// Matches reports whether t satisfies filter. Store implementations that
// cannot push the filter down to the query layer use this to filter
// in-process; the BigQuery store translates the same fields into SQL
// predicates instead.
func Matches(t *domain.Transaction, filter ListFilter) bool {
	if filter.Status != nil && t.Status != *filter.Status {
		return false
	}
	if filter.Type != nil && t.Type != *filter.Type {
		return false
	}
	if filter.Category != nil {
		if t.Category == nil || *t.Category != *filter.Category {
			return false
		}
	}
	if filter.Period != nil {
		d := civil.DateOf(t.CreatedAt)
		if d.Before(filter.Period.Start) || filter.Period.End.Before(d) {
			return false
		}
	}
	return true
}
