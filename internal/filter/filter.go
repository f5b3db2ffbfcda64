// Package filter derives the visible subset of the event list.
package filter

import (
	"fmt"
	"strings"
	"time"

	"eventplanner/internal/model"
)

// StatusAll is the selector value that matches every status.
const StatusAll = "all"

// Criteria combines the three independent match dimensions. Zero Start/End
// mean the bound is unset.
type Criteria struct {
	Search string
	Start  time.Time
	End    time.Time
	// Status is a model.Status value or StatusAll. Empty is treated as StatusAll.
	Status string
}

// ParseCriteria builds Criteria from raw query values. Dates use
// model.DateLayout; empty strings leave the bound unset.
func ParseCriteria(search, start, end, status string) (Criteria, error) {
	c := Criteria{Search: search, Status: status}

	var err error
	if c.Start, err = parseBound(start); err != nil {
		return Criteria{}, fmt.Errorf("filter: start: %w", err)
	}
	if c.End, err = parseBound(end); err != nil {
		return Criteria{}, fmt.Errorf("filter: end: %w", err)
	}

	if status != "" && status != StatusAll && !model.Status(status).Valid() {
		return Criteria{}, fmt.Errorf("filter: unknown status %q", status)
	}
	return c, nil
}

func parseBound(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(model.DateLayout, v)
}

// Apply returns the events matching c, in their original order.
func Apply(events []model.Event, c Criteria) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if Matches(ev, c) {
			out = append(out, ev)
		}
	}
	return out
}

// Matches reports whether a single event satisfies c.
func Matches(ev model.Event, c Criteria) bool {
	return matchesSearch(ev, strings.ToLower(c.Search)) &&
		matchesDate(ev, c.Start, c.End) &&
		matchesStatus(ev, c.Status)
}

// needle must already be lower-cased.
func matchesSearch(ev model.Event, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ev.Title), needle) ||
		strings.Contains(strings.ToLower(ev.Location), needle) ||
		strings.Contains(strings.ToLower(ev.Description), needle)
}

// An event whose date does not parse never satisfies a set bound.
func matchesDate(ev model.Event, start, end time.Time) bool {
	if start.IsZero() && end.IsZero() {
		return true
	}
	day, err := ev.Day()
	if err != nil {
		return false
	}
	if !start.IsZero() && day.Before(start) {
		return false
	}
	if !end.IsZero() && day.After(end) {
		return false
	}
	return true
}

func matchesStatus(ev model.Event, status string) bool {
	return status == "" || status == StatusAll || string(ev.Status) == status
}
