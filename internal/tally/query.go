package tally

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SearchQuery is a Gmail search expression plus the most messages to look at.
type SearchQuery struct {
	Filter string
	Cap    int
}

// NewSearchQuery validates cap >= 1.
func NewSearchQuery(filter string, cap int) (SearchQuery, error) {
	if cap < 1 {
		return SearchQuery{}, errors.Errorf("cap must be at least 1, got %d", cap)
	}
	return SearchQuery{Filter: strings.TrimSpace(filter), Cap: cap}, nil
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Bounds returns the unix seconds for Gmail's after:/before: operators. after
// is the start of Start's day and before is the start of the day following End,
// so End is included. Days are interpreted in loc.
func (r DateRange) Bounds(loc *time.Location) (after, before int64, err error) {
	if loc == nil {
		loc = time.Local
	}
	start := startOfDay(r.Start, loc)
	end := startOfDay(r.End, loc)
	if end.Before(start) {
		return 0, 0, errors.Errorf("end date %s is before start date %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return start.Unix(), end.AddDate(0, 0, 1).Unix(), nil
}

// BuildQuery renders the inbox search for r: inbox only, spam and trash
// excluded.
func BuildQuery(r DateRange, loc *time.Location) (string, error) {
	after, before, err := r.Bounds(loc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("in:inbox after:%d before:%d -in:spam -in:trash", after, before), nil
}

// DefaultRange is January 1 of the current year through today.
func DefaultRange(now time.Time) DateRange {
	return DateRange{
		Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()),
		End:   now,
	}
}

// ParseRange reads YYYY-MM-DD dates in loc.
func ParseRange(start, end string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.Local
	}
	s, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(start), loc)
	if err != nil {
		return DateRange{}, errors.Wrapf(err, "parse start date %q", start)
	}
	e, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(end), loc)
	if err != nil {
		return DateRange{}, errors.Wrapf(err, "parse end date %q", end)
	}
	return DateRange{Start: s, End: e}, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
