// Package expiry parses, validates and classifies dd/mm/yyyy expiry dates.
package expiry

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the only accepted textual form of an expiry date.
const Layout = "02/01/2006"

// SoonThreshold is the number of remaining days at or below which an item
// counts as expiring soon.
const SoonThreshold = 3

const day = 24 * time.Hour

// ErrInvalidDateFormat is returned for non-blank dates that are not a real
// calendar date in dd/mm/yyyy form.
var ErrInvalidDateFormat = errors.New("invalid date format, expected dd/mm/yyyy")

var datePattern = regexp.MustCompile(`^(0[1-9]|[12][0-9]|3[01])/(0[1-9]|1[0-2])/\d{4}$`)

// Kind is the classification of an expiry date relative to a reference time.
type Kind string

const (
	KindNoExpiry     Kind = "no_expiry"
	KindExpired      Kind = "expired"
	KindExpiringSoon Kind = "expiring_soon"
	KindValid        Kind = "valid"
)

// Status is the result of Classify. DaysLeft is only meaningful for
// KindExpiringSoon and KindValid.
type Status struct {
	Kind     Kind `json:"kind"`
	DaysLeft int  `json:"days_left"`
}

// IsExpired reports whether the item should be displayed as expired.
func (s Status) IsExpired() bool { return s.Kind == KindExpired }

// String renders the status the way list views show it.
func (s Status) String() string {
	switch s.Kind {
	case KindExpired:
		return "Expired"
	case KindExpiringSoon:
		return fmt.Sprintf("%d days left", s.DaysLeft)
	case KindValid:
		return fmt.Sprintf("Expires in %d days", s.DaysLeft)
	default:
		return "No expiry"
	}
}

// Mask keeps only the digits of text and inserts the dd/mm/yyyy separators
// after the second and fourth digit. It is meant to be applied on every
// keystroke and accepts partial input.
func Mask(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) > 4:
		return digits[:2] + "/" + digits[2:4] + "/" + digits[4:]
	case len(digits) > 2:
		return digits[:2] + "/" + digits[2:]
	default:
		return digits
	}
}

// IsBlank reports whether formatted means "no expiry tracked".
func IsBlank(formatted string) bool {
	return strings.TrimSpace(formatted) == ""
}

// Validate reports whether formatted is either blank or a real calendar date
// in dd/mm/yyyy form.
func Validate(formatted string) bool {
	if IsBlank(formatted) {
		return true
	}
	_, err := Parse(formatted, time.Local)
	return err == nil
}

// Parse converts a dd/mm/yyyy string into midnight of that day in loc.
func Parse(formatted string, loc *time.Location) (time.Time, error) {
	if !datePattern.MatchString(formatted) {
		return time.Time{}, ErrInvalidDateFormat
	}

	parts := strings.Split(formatted, "/")
	d, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	y, _ := strconv.Atoi(parts[2])

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	// time.Date normalises overflow (31/02 becomes 03/03), so a mismatch
	// means the components did not name a real day.
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, ErrInvalidDateFormat
	}
	return t, nil
}

// EndOfDay returns 23:59:59.999 wall-clock time of the expiry day in loc.
// Days with a DST transition are 23 or 25 hours long, so this is not
// midnight plus 24h.
func EndOfDay(formatted string, loc *time.Location) (time.Time, error) {
	t, err := Parse(formatted, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), loc), nil
}

// calendarDays counts whole calendar days from the date of from to the date
// of to, ignoring wall-clock time and DST.
func calendarDays(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / day)
}

// Remaining returns the exact duration between now and the end of the
// expiry day. It is negative once that instant has passed.
func Remaining(formatted string, now time.Time) (time.Duration, error) {
	end, err := EndOfDay(formatted, now.Location())
	if err != nil {
		return 0, err
	}
	return end.Sub(now), nil
}

// Classify places formatted relative to now. Whole days are counted up to
// the end of the expiry day, so the expiry date itself has zero days left
// and is reported as expired.
func Classify(formatted string, now time.Time) (Status, error) {
	if IsBlank(formatted) {
		return Status{Kind: KindNoExpiry}, nil
	}

	end, err := EndOfDay(formatted, now.Location())
	if err != nil {
		return Status{}, err
	}

	// now always lies before the end of its own day, so the number of whole
	// days left before end is the calendar distance between the two dates.
	daysLeft := calendarDays(now, end)

	switch {
	case daysLeft <= 0:
		return Status{Kind: KindExpired, DaysLeft: daysLeft}, nil
	case daysLeft <= SoonThreshold:
		return Status{Kind: KindExpiringSoon, DaysLeft: daysLeft}, nil
	default:
		return Status{Kind: KindValid, DaysLeft: daysLeft}, nil
	}
}

// Format renders t in dd/mm/yyyy form.
func Format(t time.Time) string {
	return t.Format(Layout)
}
