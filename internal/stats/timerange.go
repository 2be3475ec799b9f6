package stats

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultRangeDays is the window used when a message names no period.
const DefaultRangeDays = 45

// Time range labels.
const (
	RangeToday       = "today"
	RangeYesterday   = "yesterday"
	RangeThisWeek    = "this_week"
	RangeLastWeek    = "last_week"
	RangeThisMonth   = "this_month"
	RangeLastMonth   = "last_month"
	RangeLastNDays   = "last_n_days"
	RangeLastNWeeks  = "last_n_weeks"
	RangeLastNMonths = "last_n_months"
	RangeDate        = "date"
	RangeDateSpan    = "date_range"
	RangeDefault     = "default_45_days"
)

// TimeRange is a half-open interval [Start, End) parsed from a message.
// Explicit is false only for the default window.
type TimeRange struct {
	Label    string    `json:"label"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Explicit bool      `json:"explicit"`
}

// StartISO formats the inclusive start as an RFC 3339 timestamp.
func (r TimeRange) StartISO() string { return r.Start.Format(time.RFC3339) }

// EndISO formats the exclusive end as an RFC 3339 timestamp.
func (r TimeRange) EndISO() string { return r.End.Format(time.RFC3339) }

var (
	lastNPattern     = regexp.MustCompile(`\b(?:last|past|previous)\s+(\d{1,4})\s+(days?|weeks?|months?)\b`)
	lastMonthPattern = regexp.MustCompile(`\b(?:last|previous|past)\s+month\b`)
	thisMonthPattern = regexp.MustCompile(`\b(?:this|current)\s+month\b`)
	lastWeekPattern  = regexp.MustCompile(`\b(?:last|previous|past)\s+week\b`)
	thisWeekPattern  = regexp.MustCompile(`\b(?:this|current)\s+week\b`)
	yesterdayPattern = regexp.MustCompile(`\byesterday\b`)
	todayPattern     = regexp.MustCompile(`\btoday\b`)

	isoDatePattern   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dmyDatePattern   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`)
	monthDatePattern = regexp.MustCompile(`\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ExtractTimeRange resolves the period a message refers to, relative to now
// and in now's location. Explicit dates win over relative phrases; two dates
// span from the earlier day to the end of the later one. "Last week" and
// "last N days|weeks|months" are rolling windows that end at now. Without a
// match the last DefaultRangeDays days are returned with Explicit=false.
func ExtractTimeRange(message string, now time.Time) TimeRange {
	text := strings.ToLower(message)
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	// End is exclusive; step past now so a transaction stamped now counts.
	rollingEnd := now.Add(time.Nanosecond)

	dates := findDates(text, now)
	if len(dates) >= 2 {
		first, second := dates[0], dates[1]
		if second.Before(first) {
			first, second = second, first
		}
		return TimeRange{Label: RangeDateSpan, Start: first, End: second.AddDate(0, 0, 1), Explicit: true}
	}
	if len(dates) == 1 {
		return TimeRange{Label: RangeDate, Start: dates[0], End: dates[0].AddDate(0, 0, 1), Explicit: true}
	}

	if m := lastNPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			switch {
			case strings.HasPrefix(m[2], "day"):
				return TimeRange{Label: RangeLastNDays, Start: now.AddDate(0, 0, -n), End: rollingEnd, Explicit: true}
			case strings.HasPrefix(m[2], "week"):
				return TimeRange{Label: RangeLastNWeeks, Start: now.AddDate(0, 0, -7*n), End: rollingEnd, Explicit: true}
			default:
				return TimeRange{Label: RangeLastNMonths, Start: now.AddDate(0, -n, 0), End: rollingEnd, Explicit: true}
			}
		}
	}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	switch {
	case lastMonthPattern.MatchString(text):
		return TimeRange{Label: RangeLastMonth, Start: monthStart.AddDate(0, -1, 0), End: monthStart, Explicit: true}
	case thisMonthPattern.MatchString(text):
		return TimeRange{Label: RangeThisMonth, Start: monthStart, End: monthStart.AddDate(0, 1, 0), Explicit: true}
	case lastWeekPattern.MatchString(text):
		return TimeRange{Label: RangeLastWeek, Start: now.AddDate(0, 0, -7), End: rollingEnd, Explicit: true}
	case thisWeekPattern.MatchString(text):
		monday := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
		return TimeRange{Label: RangeThisWeek, Start: monday, End: monday.AddDate(0, 0, 7), Explicit: true}
	case yesterdayPattern.MatchString(text):
		return TimeRange{Label: RangeYesterday, Start: today.AddDate(0, 0, -1), End: today, Explicit: true}
	case todayPattern.MatchString(text):
		return TimeRange{Label: RangeToday, Start: today, End: tomorrow, Explicit: true}
	}

	return DefaultTimeRange(now)
}

// DefaultTimeRange covers the last DefaultRangeDays calendar days including today.
func DefaultTimeRange(now time.Time) TimeRange {
	today := startOfDay(now)
	return TimeRange{
		Label:    RangeDefault,
		Start:    today.AddDate(0, 0, -(DefaultRangeDays - 1)),
		End:      today.AddDate(0, 0, 1),
		Explicit: false,
	}
}

// ParseDate parses a single explicit date in any supported format.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	dates := findDates(strings.ToLower(strings.TrimSpace(s)), now)
	if len(dates) != 1 {
		return time.Time{}, false
	}
	return dates[0], true
}

type datedMatch struct {
	pos  int
	date time.Time
}

// findDates returns valid calendar dates in order of appearance.
func findDates(text string, now time.Time) []time.Time {
	loc := now.Location()
	var found []datedMatch

	for _, m := range isoDatePattern.FindAllStringSubmatchIndex(text, -1) {
		y, _ := strconv.Atoi(text[m[2]:m[3]])
		mo, _ := strconv.Atoi(text[m[4]:m[5]])
		d, _ := strconv.Atoi(text[m[6]:m[7]])
		if date, ok := validDate(y, mo, d, loc); ok {
			found = append(found, datedMatch{pos: m[0], date: date})
		}
	}

	for _, m := range dmyDatePattern.FindAllStringSubmatchIndex(text, -1) {
		d, _ := strconv.Atoi(text[m[2]:m[3]])
		mo, _ := strconv.Atoi(text[m[4]:m[5]])
		y, _ := strconv.Atoi(text[m[6]:m[7]])
		if m[7]-m[6] == 2 {
			y += 2000
		}
		if date, ok := validDate(y, mo, d, loc); ok {
			found = append(found, datedMatch{pos: m[0], date: date})
		}
	}

	today := startOfDay(now)
	for _, m := range monthDatePattern.FindAllStringSubmatchIndex(text, -1) {
		mo := monthAbbrev[text[m[2]:m[2]+3]]
		d, _ := strconv.Atoi(text[m[4]:m[5]])
		y := now.Year()
		explicitYear := m[6] >= 0
		if explicitYear {
			y, _ = strconv.Atoi(text[m[6]:m[7]])
		}
		date, ok := validDate(y, int(mo), d, loc)
		if !ok {
			continue
		}
		// A bare "Dec 20" asked in January means last December.
		if !explicitYear && date.After(today) {
			date = date.AddDate(-1, 0, 0)
		}
		found = append(found, datedMatch{pos: m[0], date: date})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })
	dates := make([]time.Time, len(found))
	for i, f := range found {
		dates[i] = f.date
	}
	return dates
}

func validDate(y, m, d int, loc *time.Location) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	date := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if date.Year() != y || int(date.Month()) != m || date.Day() != d {
		return time.Time{}, false
	}
	return date, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
