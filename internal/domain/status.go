// Package domain defines the complaint model, its closed enumerations and the
// status transition table. The types are mapped with GORM (and BSON for the
// Mongo store) and are shared across the repository and service layers.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the closed classification label assigned once, at creation, by
// the classifier gateway.
type Category string

const (
	CategoryDelivery    Category = "Delivery Issue"
	CategoryFoodQuality Category = "Food Quality Issue"
	CategoryWrongItem   Category = "Wrong / Missing Item"
	CategoryPayment     Category = "Payment / Refund Issue"
	CategoryApp         Category = "App / Technical Issue"
)

var categories = []Category{
	CategoryDelivery,
	CategoryFoodQuality,
	CategoryWrongItem,
	CategoryPayment,
	CategoryApp,
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c is one of the closed set of categories.
func (c Category) Valid() bool {
	for _, k := range categories {
		if c == k {
			return true
		}
	}
	return false
}

// ParseCategory matches s against the category set, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, k := range categories {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Status is the lifecycle stage of a complaint.
type Status string

const (
	StatusPending      Status = "Pending"
	StatusVerified     Status = "Verified"
	StatusResolved     Status = "Resolved"
	StatusNotResponded Status = "Not Responded"
)

var statuses = []Status{
	StatusPending,
	StatusVerified,
	StatusResolved,
	StatusNotResponded,
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// Valid reports whether s is one of the four statuses.
func (s Status) Valid() bool {
	for _, k := range statuses {
		if s == k {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool { return s == StatusResolved }

// ParseStatus matches v against the status set, ignoring case and
// surrounding whitespace. "not_responded" is accepted as an alias.
func ParseStatus(v string) (Status, error) {
	v = strings.TrimSpace(v)
	alt := strings.ReplaceAll(v, "_", " ")
	for _, k := range statuses {
		if strings.EqualFold(v, string(k)) || strings.EqualFold(alt, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, v)
}

var (
	// ErrUnknownCategory is returned for a value outside the category set.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownStatus is returned for a value outside the status set.
	ErrUnknownStatus = errors.New("unknown status")
	// ErrInvalidTransition is returned when the transition table has no edge
	// from the current status to the requested one.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Transition is one edge of the status state machine.
type Transition struct {
	From Status `json:"from"`
	To   Status `json:"to"`
}

// transitions is the authoritative state machine. Resolved has no outgoing
// edges and Pending is never a target.
var transitions = []Transition{
	{From: StatusPending, To: StatusVerified},
	{From: StatusPending, To: StatusResolved},
	{From: StatusPending, To: StatusNotResponded},

	{From: StatusVerified, To: StatusVerified},
	{From: StatusVerified, To: StatusResolved},
	{From: StatusVerified, To: StatusNotResponded},

	{From: StatusNotResponded, To: StatusVerified},
	{From: StatusNotResponded, To: StatusResolved},
	{From: StatusNotResponded, To: StatusNotResponded},
}

var transitionSet = func() map[Transition]struct{} {
	m := make(map[Transition]struct{}, len(transitions))
	for _, t := range transitions {
		m[t] = struct{}{}
	}
	return m
}()

// CanTransition returns nil when from → to is an edge of the state machine,
// otherwise an error wrapping ErrInvalidTransition.
func CanTransition(from, to Status) error {
	if _, ok := transitionSet[Transition{From: from, To: to}]; ok {
		return nil
	}
	if from.Terminal() {
		return fmt.Errorf("%w: complaint is already %s", ErrInvalidTransition, from)
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s Status) []Status {
	var out []Status
	for _, t := range transitions {
		if t.From == s {
			out = append(out, t.To)
		}
	}
	return out
}

// Transitions returns a copy of the full state machine, for documentation
// endpoints.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}
