package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AllSentinel is the filter value that means "no restriction" on any key.
const AllSentinel = "all"

// Role scopes a listing to a submitter or to the whole store.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Date filter keywords.
const (
	DateToday     = "today"
	DateYesterday = "yesterday"

	dayLayout = "2006-01-02"
)

var (
	// ErrUnknownRole is returned for a role filter outside {user, admin}.
	ErrUnknownRole = errors.New("unknown role")
	// ErrUnknownDate is returned for a date filter that is neither a keyword
	// nor a YYYY-MM-DD day.
	ErrUnknownDate = errors.New("date must be today, yesterday or YYYY-MM-DD")
	// ErrMissingSubmitter is returned when role=user is requested without a
	// submitter id.
	ErrMissingSubmitter = errors.New("submitter id required for role user")
)

// RawFilter is the untyped form of a listing filter, as received from a
// query string. Empty strings and the "All" sentinel mean absent.
type RawFilter struct {
	SubmitterID string `form:"user_id"`
	Role        string `form:"role"`
	Category    string `form:"category"`
	Date        string `form:"date"`
	Status      string `form:"status"`
}

// Filter is a validated, conjunctive listing filter. Zero-valued fields are
// absent. Day, when set, is local midnight of the selected calendar day in
// Location.
type Filter struct {
	SubmitterID string
	Role        Role
	Category    Category
	Status      Status
	Date        string
	Day         *time.Time
	Location    *time.Location
}

// ParseFilter validates raw and resolves date keywords against now in loc.
// A nil loc means time.Local.
func ParseFilter(raw RawFilter, loc *time.Location, now time.Time) (Filter, error) {
	if loc == nil {
		loc = time.Local
	}
	f := Filter{Location: loc}

	if v := present(raw.SubmitterID); v != "" {
		f.SubmitterID = v
	}

	if v := present(raw.Role); v != "" {
		switch Role(strings.ToLower(v)) {
		case RoleUser:
			f.Role = RoleUser
		case RoleAdmin:
			f.Role = RoleAdmin
		default:
			return Filter{}, fmt.Errorf("%w: %q", ErrUnknownRole, v)
		}
	}
	if f.Role == RoleUser && f.SubmitterID == "" {
		return Filter{}, ErrMissingSubmitter
	}

	if v := present(raw.Category); v != "" {
		c, err := ParseCategory(v)
		if err != nil {
			return Filter{}, err
		}
		f.Category = c
	}

	if v := present(raw.Status); v != "" {
		s, err := ParseStatus(v)
		if err != nil {
			return Filter{}, err
		}
		f.Status = s
	}

	if v := present(raw.Date); v != "" {
		today := startOfDay(now.In(loc))
		var day time.Time
		switch strings.ToLower(v) {
		case DateToday:
			day = today
		case DateYesterday:
			day = today.AddDate(0, 0, -1)
		default:
			d, err := time.ParseInLocation(dayLayout, v, loc)
			if err != nil {
				return Filter{}, fmt.Errorf("%w: %q", ErrUnknownDate, v)
			}
			day = d
		}
		f.Date = strings.ToLower(v)
		f.Day = &day
	}

	return f, nil
}

// DayRange returns the half-open instant range [start, end) covered by the
// selected calendar day. ok is false when no date filter is set.
func (f Filter) DayRange() (start, end time.Time, ok bool) {
	if f.Day == nil {
		return time.Time{}, time.Time{}, false
	}
	start = *f.Day
	return start, start.AddDate(0, 0, 1), true
}

// Match evaluates the filter against a single complaint in memory.
func (f Filter) Match(c Complaint) bool {
	if f.SubmitterID != "" && c.SubmitterID != f.SubmitterID {
		return false
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if start, end, ok := f.DayRange(); ok {
		if c.CreatedAt.Before(start) || !c.CreatedAt.Before(end) {
			return false
		}
	}
	return true
}

// DayLabel formats t as the calendar day it falls on in loc.
func DayLabel(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dayLayout)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// present trims v and maps the "All" sentinel to the empty string.
func present(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, AllSentinel) {
		return ""
	}
	return v
}
