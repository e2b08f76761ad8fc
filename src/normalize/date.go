package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthAbbrev maps short month names to months. Italian and English tables
// are merged; the overlapping entries agree.
var monthAbbrev = map[string]time.Month{
	"gen": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "mag": time.May, "giu": time.June,
	"lug": time.July, "ago": time.August, "set": time.September,
	"ott": time.October, "nov": time.November, "dic": time.December,

	"jan": time.January, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "dec": time.December,
}

// dateLayouts are tried in order before the short-month fallback.
var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02-15:04:05",
	"2006-01-02",
	"02-01-2006", // statement default across the Italian brokers
	"02/01/2006",
	"02.01.2006",
}

var shortMonthRe = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3,})\.?\s*(\d{4})?$`)

// ParseDate parses ISO dates, day-month-year variants and localized
// short-month dates ("19 set", "19 set 2024"). yearHint supplies the year
// when the date token itself carries none; a zero hint falls back to the
// current year.
func ParseDate(raw string, yearHint int) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	m := shortMonthRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
	}

	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid day in date %q", raw)
	}

	monthKey := strings.ToLower(m[2])
	if len(monthKey) > 3 {
		monthKey = monthKey[:3]
	}
	month, ok := monthAbbrev[monthKey]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q in date %q", m[2], raw)
	}

	year := yearHint
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	if year == 0 {
		year = time.Now().Year()
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}
