package domain

import (
	"testing"
	"time"
)

func TestExpand_Validation(t *testing.T) {
	anchor := Occurrence{
		Start: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
	}
	base := RecurrenceSpec{
		Type:     RecurrenceTypeDaily,
		Interval: 1,
		EndType:  RecurrenceEndTypeCount,
		Count:    3,
	}

	tests := []struct {
		name    string
		anchor  Occurrence
		spec    RecurrenceSpec
		wantErr string
	}{
		{
			name:    "anchor end before start",
			anchor:  Occurrence{Start: anchor.End, End: anchor.Start},
			spec:    base,
			wantErr: "anchor end must be after start",
		},
		{
			name:   "unsupported recurrence type",
			anchor: anchor,
			spec: func() RecurrenceSpec {
				s := base
				s.Type = "yearly"
				return s
			}(),
			wantErr: "unsupported recurrence type",
		},
		{
			name:   "zero interval",
			anchor: anchor,
			spec: func() RecurrenceSpec {
				s := base
				s.Interval = 0
				return s
			}(),
			wantErr: "interval must be at least 1",
		},
		{
			name:   "invalid weekday",
			anchor: anchor,
			spec: func() RecurrenceSpec {
				s := base
				s.Type = RecurrenceTypeWeekly
				s.DaysOfWeek = []int16{0}
				return s
			}(),
			wantErr: "invalid weekday",
		},
		{
			name:   "weekday out of range",
			anchor: anchor,
			spec: func() RecurrenceSpec {
				s := base
				s.Type = RecurrenceTypeWeekly
				s.DaysOfWeek = []int16{1, 8}
				return s
			}(),
			wantErr: "invalid weekday",
		},
		{
			name:   "day_of_month out of range",
			anchor: anchor,
			spec: func() RecurrenceSpec {
				s := base
				s.Type = RecurrenceTypeMonthly
				s.DayOfMonth = 32
				return s
			}(),
			wantErr: "day_of_month must be between 1 and 31",
		},
		{
			name:   "zero count",
			anchor: anchor,
			spec: func() RecurrenceSpec {
				s := base
				s.Count = 0
				return s
			}(),
			wantErr: "count must be at least 1",
		},
		{
			name:   "missing end date",
			anchor: anchor,
			spec: func() RecurrenceSpec {
				s := base
				s.EndType = RecurrenceEndTypeDate
				return s
			}(),
			wantErr: "end_date is required",
		},
		{
			name:   "unsupported end type",
			anchor: anchor,
			spec: func() RecurrenceSpec {
				s := base
				s.EndType = "forever"
				return s
			}(),
			wantErr: "unsupported end type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand(tt.anchor, tt.spec)
			if err == nil {
				t.Fatalf("expected error")
			}
			if err.Error() != tt.wantErr {
				t.Fatalf("error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestExpand_WeeklyTwoDaysCountBound(t *testing.T) {
	// Monday anchor, Monday+Wednesday rule, eight instances total.
	anchor := Occurrence{
		Start: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
	}
	occs, err := Expand(anchor, RecurrenceSpec{
		Type:       RecurrenceTypeWeekly,
		Interval:   1,
		DaysOfWeek: []int16{1, 3},
		EndType:    RecurrenceEndTypeCount,
		Count:      8,
	})
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(occs) != 8 {
		t.Fatalf("len(occs) = %d, want 8", len(occs))
	}

	wantDays := []int{5, 7, 12, 14, 19, 21, 26, 28}
	for i, o := range occs {
		if o.Start.Day() != wantDays[i] {
			t.Fatalf("occs[%d].Start = %v, want day %d", i, o.Start, wantDays[i])
		}
		if o.Start.Hour() != 9 {
			t.Fatalf("occs[%d] lost anchor time of day: %v", i, o.Start)
		}
		if o.End.Sub(o.Start) != time.Hour {
			t.Fatalf("occs[%d] duration = %v, want 1h", i, o.End.Sub(o.Start))
		}
		if i > 0 && !occs[i-1].Start.Before(o.Start) {
			t.Fatalf("occurrences not ascending at %d: %v then %v", i, occs[i-1].Start, o.Start)
		}
	}
	if !occs[0].Start.Equal(anchor.Start) {
		t.Fatalf("first occurrence = %v, want anchor %v", occs[0].Start, anchor.Start)
	}
}

func TestExpand_WeeklyEmptyWeekdaysFallsBackToAnchor(t *testing.T) {
	// Thursday anchor and no weekday set: the rule repeats on Thursdays.
	anchor := Occurrence{
		Start: time.Date(2026, 1, 8, 14, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 8, 15, 0, 0, 0, time.UTC),
	}
	occs, err := Expand(anchor, RecurrenceSpec{
		Type:     RecurrenceTypeWeekly,
		Interval: 1,
		EndType:  RecurrenceEndTypeCount,
		Count:    3,
	})
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(occs) != 3 {
		t.Fatalf("len(occs) = %d, want 3", len(occs))
	}
	for i, o := range occs {
		if o.Start.Weekday() != time.Thursday {
			t.Fatalf("occs[%d].Start weekday = %v, want Thursday", i, o.Start.Weekday())
		}
	}
}

func TestExpand_DailyIntervalStride(t *testing.T) {
	anchor := Occurrence{
		Start: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC),
	}
	occs, err := Expand(anchor, RecurrenceSpec{
		Type:     RecurrenceTypeDaily,
		Interval: 2,
		EndType:  RecurrenceEndTypeCount,
		Count:    5,
	})
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(occs) != 5 {
		t.Fatalf("len(occs) = %d, want 5", len(occs))
	}
	for i, o := range occs {
		want := anchor.Start.AddDate(0, 0, 2*i)
		if !o.Start.Equal(want) {
			t.Fatalf("occs[%d].Start = %v, want %v", i, o.Start, want)
		}
	}
}

func TestExpand_DateBoundIsInclusive(t *testing.T) {
	anchor := Occurrence{
		Start: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	occs, err := Expand(anchor, RecurrenceSpec{
		Type:     RecurrenceTypeDaily,
		Interval: 1,
		EndType:  RecurrenceEndTypeDate,
		// Exactly the start of the third instance: it still counts.
		EndDate: time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(occs) != 3 {
		t.Fatalf("len(occs) = %d, want 3", len(occs))
	}
	last := occs[len(occs)-1]
	if last.Start.After(time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("occurrence past end date: %v", last.Start)
	}
}

func TestExpand_MonthlyClampsShortMonths(t *testing.T) {
	anchor := Occurrence{
		Start: time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC),
	}
	occs, err := Expand(anchor, RecurrenceSpec{
		Type:       RecurrenceTypeMonthly,
		Interval:   1,
		DayOfMonth: 31,
		EndType:    RecurrenceEndTypeCount,
		Count:      4,
	})
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(occs) != 4 {
		t.Fatalf("len(occs) = %d, want 4", len(occs))
	}

	want := []time.Time{
		time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 30, 9, 0, 0, 0, time.UTC),
	}
	for i, o := range occs {
		if !o.Start.Equal(want[i]) {
			t.Fatalf("occs[%d].Start = %v, want %v", i, o.Start, want[i])
		}
	}
}

func TestExpand_CapTruncatesWithoutError(t *testing.T) {
	anchor := Occurrence{
		Start: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	occs, err := Expand(anchor, RecurrenceSpec{
		Type:     RecurrenceTypeDaily,
		Interval: 1,
		EndType:  RecurrenceEndTypeDate,
		EndDate:  anchor.Start.AddDate(10, 0, 0),
	})
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(occs) != MaxOccurrences {
		t.Fatalf("len(occs) = %d, want %d", len(occs), MaxOccurrences)
	}
}

func TestExpand_DSTMaintainsLocalHour(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}

	// Daily rule crossing the March 2026 spring-forward transition.
	anchor := Occurrence{
		Start: time.Date(2026, 3, 6, 9, 0, 0, 0, loc),
		End:   time.Date(2026, 3, 6, 10, 0, 0, 0, loc),
	}
	occs, err := Expand(anchor, RecurrenceSpec{
		Type:     RecurrenceTypeDaily,
		Interval: 1,
		EndType:  RecurrenceEndTypeCount,
		Count:    7,
	})
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	for i, o := range occs {
		if o.Start.In(loc).Hour() != 9 {
			t.Fatalf("occs[%d] local hour = %d, want 9 (%v)", i, o.Start.In(loc).Hour(), o.Start)
		}
	}
}

func TestExpandWithin_KeepsOverlapOnly(t *testing.T) {
	anchor := Occurrence{
		Start: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC),
	}
	spec := RecurrenceSpec{
		Type:     RecurrenceTypeDaily,
		Interval: 1,
		EndType:  RecurrenceEndTypeCount,
		Count:    10,
	}

	// Window straddling the second instance only.
	windowStart := time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2026, 1, 6, 10, 30, 0, 0, time.UTC)

	occs, err := ExpandWithin(anchor, spec, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("ExpandWithin error: %v", err)
	}
	if len(occs) != 1 {
		t.Fatalf("len(occs) = %d, want 1", len(occs))
	}
	if !occs[0].Start.Before(windowEnd) || !occs[0].End.After(windowStart) {
		t.Fatalf("occurrence does not overlap window: %v %v", occs[0].Start, occs[0].End)
	}
}
