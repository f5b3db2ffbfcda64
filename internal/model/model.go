package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of Event.Date (an HTML date input value).
const DateLayout = "2006-01-02"

// Status is the attendance state of an event.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusAttending Status = "attending"
	StatusMaybe     Status = "maybe"
	StatusDeclined  Status = "declined"
)

// Statuses lists every valid Status in display order.
var Statuses = []Status{StatusUpcoming, StatusAttending, StatusMaybe, StatusDeclined}

func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusAttending, StatusMaybe, StatusDeclined:
		return true
	}
	return false
}

// ParseStatus accepts one of the four status names.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("model: unknown status %q", v)
	}
	return s, nil
}

// Event is a single planned event. The JSON shape is shared with the chat
// endpoint, so field names must stay as they are.
type Event struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Date        string `json:"date" yaml:"date"`
	Location    string `json:"location" yaml:"location"`
	Status      Status `json:"status" yaml:"status"`
	Description string `json:"description" yaml:"description"`
}

// Day parses Date as a calendar date in UTC.
func (e Event) Day() (time.Time, error) {
	return time.Parse(DateLayout, e.Date)
}

// Draft returns the editable fields of the event.
func (e Event) Draft() Draft {
	return Draft{
		Title:       e.Title,
		Date:        e.Date,
		Location:    e.Location,
		Status:      e.Status,
		Description: e.Description,
	}
}

// Draft is the in-progress form content before an event is created or an
// edit is committed.
type Draft struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Status      Status `json:"status"`
	Description string `json:"description"`
}

// EmptyDraft is the form after a reset.
func EmptyDraft() Draft {
	return Draft{Status: StatusUpcoming}
}

// Complete reports whether the draft has the fields required to commit it.
func (d Draft) Complete() bool {
	return d.Title != "" && d.Date != ""
}

// WithID builds an Event from the draft.
func (d Draft) WithID(id string) Event {
	return Event{
		ID:          id,
		Title:       d.Title,
		Date:        d.Date,
		Location:    d.Location,
		Status:      d.Status,
		Description: d.Description,
	}
}
