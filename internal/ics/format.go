package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "eventplanner/internal/log"
	"eventplanner/internal/model"
)

const productID = "-//eventplanner//EN"

// Format renders events as an iCalendar feed with one all-day VEVENT each.
// Events whose date does not parse are left out.
func Format(events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range events {
		day, err := e.Day()
		if err != nil {
			appLog.Debug("ics export: skipping event with bad date", "id", e.ID, "date", e.Date)
			continue
		}

		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(stamp)
		ve.SetAllDayStartAt(day)
		ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
		ve.SetSummary(e.Title)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if st, ok := icalStatus(e.Status); ok {
			ve.SetStatus(st)
		}
		ve.SetProperty(PropertyPlannerStatus, string(e.Status))
	}

	return cal.Serialize()
}

func icalStatus(s model.Status) (ical.ObjectStatus, bool) {
	switch s {
	case model.StatusAttending:
		return ical.ObjectStatusConfirmed, true
	case model.StatusMaybe:
		return ical.ObjectStatusTentative, true
	case model.StatusDeclined:
		return ical.ObjectStatusCancelled, true
	}
	return "", false
}

// plannerStatus picks the status for an imported event: the exact planner
// status when the feed carries one, otherwise a mapping of STATUS.
func plannerStatus(ev ParsedEvent) model.Status {
	if s := model.Status(ev.PlannerStatus); s.Valid() {
		return s
	}
	switch ev.Status {
	case "TENTATIVE":
		return model.StatusMaybe
	case "CANCELLED":
		return model.StatusDeclined
	}
	return model.StatusUpcoming
}
