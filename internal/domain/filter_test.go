package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseFilter_AllSentinelAndBlank(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	f, err := ParseFilter(RawFilter{
		SubmitterID: " ",
		Role:        "All",
		Category:    "ALL",
		Date:        "all",
		Status:      "",
	}, time.UTC, now)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if f.SubmitterID != "" || f.Role != "" || f.Category != "" || f.Status != "" || f.Day != nil {
		t.Fatalf("sentinels must be treated as absent, got %+v", f)
	}
}

func TestParseFilter_Errors(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		raw  RawFilter
		want error
	}{
		{"unknown category", RawFilter{Category: "Cold Food"}, ErrUnknownCategory},
		{"unknown status", RawFilter{Status: "Closed"}, ErrUnknownStatus},
		{"unknown role", RawFilter{Role: "driver"}, ErrUnknownRole},
		{"bad date", RawFilter{Date: "last-week"}, ErrUnknownDate},
		{"user without id", RawFilter{Role: "user"}, ErrMissingSubmitter},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseFilter(tc.raw, time.UTC, now); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v; want %v", err, tc.want)
			}
		})
	}
}

func TestParseFilter_DateKeywordsInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 21:30 UTC on June 10 is already June 11 in UTC+5.
	now := time.Date(2025, 6, 10, 21, 30, 0, 0, time.UTC)

	f, err := ParseFilter(RawFilter{Date: "Today"}, loc, now)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	start, end, ok := f.DayRange()
	if !ok {
		t.Fatalf("expected a day range")
	}
	if want := time.Date(2025, 6, 11, 0, 0, 0, 0, loc); !start.Equal(want) {
		t.Fatalf("today start = %v; want %v", start, want)
	}
	if !end.Equal(start.Add(24 * time.Hour)) {
		t.Fatalf("end = %v; want start+24h", end)
	}

	y, err := ParseFilter(RawFilter{Date: "yesterday"}, loc, now)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	ys, _, _ := y.DayRange()
	if want := time.Date(2025, 6, 10, 0, 0, 0, 0, loc); !ys.Equal(want) {
		t.Fatalf("yesterday start = %v; want %v", ys, want)
	}

	d, err := ParseFilter(RawFilter{Date: "2025-01-31"}, loc, now)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	ds, _, _ := d.DayRange()
	if want := time.Date(2025, 1, 31, 0, 0, 0, 0, loc); !ds.Equal(want) {
		t.Fatalf("explicit day start = %v; want %v", ds, want)
	}
}

func TestFilter_Match(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, loc)
	today := Complaint{SubmitterID: "42", Category: CategoryDelivery, Status: StatusPending, CreatedAt: now.Add(-time.Hour)}
	yesterday := Complaint{SubmitterID: "42", Category: CategoryDelivery, Status: StatusPending, CreatedAt: now.Add(-24 * time.Hour)}

	f, err := ParseFilter(RawFilter{Category: "Delivery Issue", Date: "today"}, loc, now)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if !f.Match(today) {
		t.Fatalf("today's delivery complaint should match")
	}
	if f.Match(yesterday) {
		t.Fatalf("yesterday's complaint must be excluded by date=today")
	}

	bySubmitter, _ := ParseFilter(RawFilter{SubmitterID: "7", Role: "user"}, loc, now)
	if bySubmitter.Match(today) {
		t.Fatalf("submitter filter should exclude other users")
	}

	byStatus, _ := ParseFilter(RawFilter{Status: "Resolved"}, loc, now)
	if byStatus.Match(today) {
		t.Fatalf("status filter should exclude pending complaint")
	}

	if !(Filter{}).Match(yesterday) {
		t.Fatalf("empty filter matches everything")
	}
}

func TestDayLabel(t *testing.T) {
	ts := time.Date(2025, 6, 10, 22, 0, 0, 0, time.UTC)
	if got := DayLabel(ts, time.UTC); got != "2025-06-10" {
		t.Fatalf("DayLabel UTC = %q", got)
	}
	if got := DayLabel(ts, time.FixedZone("UTC+3", 3*3600)); got != "2025-06-11" {
		t.Fatalf("DayLabel UTC+3 = %q", got)
	}
}
