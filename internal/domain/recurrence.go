package domain

import (
	"errors"
	"sort"
	"time"
)

type RecurrenceType string

const (
	RecurrenceTypeDaily   RecurrenceType = "daily"
	RecurrenceTypeWeekly  RecurrenceType = "weekly"
	RecurrenceTypeMonthly RecurrenceType = "monthly"
	RecurrenceTypeCustom  RecurrenceType = "custom"
)

type RecurrenceEndType string

const (
	RecurrenceEndTypeCount RecurrenceEndType = "count"
	RecurrenceEndTypeDate  RecurrenceEndType = "date"
)

// MaxOccurrences bounds every expansion regardless of the end condition.
// Hitting the cap truncates the result, it is not an error.
const MaxOccurrences = 365

// RecurrenceSpec describes how a booking repeats. Weekday codes are
// ISO-8601: 1 = Monday .. 7 = Sunday.
type RecurrenceSpec struct {
	Type       RecurrenceType
	Interval   int
	DaysOfWeek []int16
	DayOfMonth int
	EndType    RecurrenceEndType
	Count      int
	EndDate    time.Time
}

// Occurrence is one concrete instance generated from a recurrence rule.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

func (s RecurrenceSpec) validate() error {
	switch s.Type {
	case RecurrenceTypeDaily, RecurrenceTypeCustom:
	case RecurrenceTypeWeekly:
		for _, wd := range s.DaysOfWeek {
			if wd < 1 || wd > 7 {
				return errors.New("invalid weekday")
			}
		}
	case RecurrenceTypeMonthly:
		if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return errors.New("day_of_month must be between 1 and 31")
		}
	default:
		return errors.New("unsupported recurrence type")
	}
	if s.Interval < 1 {
		return errors.New("interval must be at least 1")
	}
	switch s.EndType {
	case RecurrenceEndTypeCount:
		if s.Count < 1 {
			return errors.New("count must be at least 1")
		}
	case RecurrenceEndTypeDate:
		if s.EndDate.IsZero() {
			return errors.New("end_date is required")
		}
	default:
		return errors.New("unsupported end type")
	}
	return nil
}

// Expand turns a recurrence rule into the ordered list of occurrences it
// produces, starting at the anchor. Every occurrence keeps the anchor's
// time of day and duration.
func Expand(anchor Occurrence, spec RecurrenceSpec) ([]Occurrence, error) {
	if !anchor.End.After(anchor.Start) {
		return nil, errors.New("anchor end must be after start")
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}

	duration := anchor.End.Sub(anchor.Start)

	var out []Occurrence
	switch spec.Type {
	case RecurrenceTypeDaily, RecurrenceTypeCustom:
		out = expandDaily(anchor.Start, duration, spec)
	case RecurrenceTypeWeekly:
		out = expandWeekly(anchor.Start, duration, spec)
	case RecurrenceTypeMonthly:
		out = expandMonthly(anchor.Start, duration, spec)
	}
	return out, nil
}

// ExpandWithin projects a rule onto [windowStart, windowEnd), keeping only
// occurrences that overlap the window. Backs the series preview that shows
// where a proposed rule would land before it is persisted.
func ExpandWithin(anchor Occurrence, spec RecurrenceSpec, windowStart, windowEnd time.Time) ([]Occurrence, error) {
	occs, err := Expand(anchor, spec)
	if err != nil {
		return nil, err
	}
	out := make([]Occurrence, 0, len(occs))
	for _, o := range occs {
		if o.Start.Before(windowEnd) && o.End.After(windowStart) {
			out = append(out, o)
		}
	}
	return out, nil
}

type expansionState struct {
	spec     RecurrenceSpec
	duration time.Duration
	out      []Occurrence
}

// emit appends one occurrence and reports whether expansion should
// continue. The end condition is checked before appending so endType=date
// never admits a start past the end date.
func (st *expansionState) emit(start time.Time) bool {
	if st.spec.EndType == RecurrenceEndTypeDate && start.After(st.spec.EndDate) {
		return false
	}
	st.out = append(st.out, Occurrence{Start: start, End: start.Add(st.duration)})
	if st.spec.EndType == RecurrenceEndTypeCount && len(st.out) >= st.spec.Count {
		return false
	}
	return len(st.out) < MaxOccurrences
}

func expandDaily(anchorStart time.Time, duration time.Duration, spec RecurrenceSpec) []Occurrence {
	st := &expansionState{spec: spec, duration: duration}
	for day := 0; ; day += spec.Interval {
		// AddDate keeps the wall clock, so occurrences stay at the
		// anchor's local time across DST changes.
		if !st.emit(anchorStart.AddDate(0, 0, day)) {
			break
		}
	}
	return st.out
}

func expandWeekly(anchorStart time.Time, duration time.Duration, spec RecurrenceSpec) []Occurrence {
	weekdays := normalizeWeekdays(spec.DaysOfWeek, anchorStart)
	weekMonday := mondayOf(anchorStart)

	st := &expansionState{spec: spec, duration: duration}
	for week := 0; ; week++ {
		blockMonday := weekMonday.AddDate(0, 0, week*spec.Interval*7)
		done := false
		for _, wd := range weekdays {
			start := blockMonday.AddDate(0, 0, weekdayOffsetFromMonday(wd))
			if start.Before(anchorStart) {
				continue
			}
			if !st.emit(start) {
				done = true
				break
			}
		}
		if done {
			break
		}
	}
	return st.out
}

func expandMonthly(anchorStart time.Time, duration time.Duration, spec RecurrenceSpec) []Occurrence {
	year, month := anchorStart.Year(), int(anchorStart.Month())
	loc := anchorStart.Location()

	st := &expansionState{spec: spec, duration: duration}
	for step := 0; ; step += spec.Interval {
		y := year + (month-1+step)/12
		m := time.Month((month-1+step)%12 + 1)
		day := spec.DayOfMonth
		if last := daysInMonth(y, m); day > last {
			// 31st of a 30-day month clamps to the month's last day.
			day = last
		}
		start := time.Date(y, m, day,
			anchorStart.Hour(), anchorStart.Minute(), anchorStart.Second(), anchorStart.Nanosecond(), loc)
		if start.Before(anchorStart) {
			continue
		}
		if !st.emit(start) {
			break
		}
	}
	return st.out
}

// normalizeWeekdays dedupes and sorts the weekday set into Monday-first
// date order, falling back to the anchor's own weekday when empty.
func normalizeWeekdays(weekdays []int16, anchorStart time.Time) []int16 {
	seen := make(map[int16]struct{}, len(weekdays))
	normalized := make([]int16, 0, len(weekdays))
	for _, wd := range weekdays {
		if _, ok := seen[wd]; ok {
			continue
		}
		seen[wd] = struct{}{}
		normalized = append(normalized, wd)
	}
	if len(normalized) == 0 {
		normalized = append(normalized, isoWeekday(anchorStart.Weekday()))
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i] < normalized[j] })
	return normalized
}

func isoWeekday(wd time.Weekday) int16 {
	if wd == time.Sunday {
		return 7
	}
	return int16(wd)
}

func mondayOf(t time.Time) time.Time {
	offset := int(isoWeekday(t.Weekday())) - 1
	return t.AddDate(0, 0, -offset)
}

func weekdayOffsetFromMonday(weekday int16) int {
	return int(weekday) - 1
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
