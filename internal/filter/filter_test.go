package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner/internal/model"
)

func fixtures() []model.Event {
	return []model.Event{
		{ID: "1", Title: "Team Meeting", Date: "2024-06-15", Location: "Virtual", Status: model.StatusAttending, Description: "Quarterly planning session"},
		{ID: "2", Title: "Conference", Date: "2024-07-02", Location: "Berlin", Status: model.StatusMaybe, Description: "GopherCon EU"},
		{ID: "3", Title: "Dentist", Date: "2024-06-01", Location: "Main St", Status: model.StatusUpcoming, Description: "checkup"},
		{ID: "4", Title: "Board dinner", Date: "2024-06-30", Location: "Meeting Hall", Status: model.StatusDeclined, Description: ""},
		{ID: "5", Title: "Broken", Date: "not-a-date", Location: "", Status: model.StatusAttending, Description: "meeting notes"},
	}
}

func ids(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.ID)
	}
	return out
}

func mustCriteria(t *testing.T, search, start, end, status string) Criteria {
	t.Helper()
	c, err := ParseCriteria(search, start, end, status)
	require.NoError(t, err)
	return c
}

func TestTeamMeetingComposition(t *testing.T) {
	events := fixtures()

	c := mustCriteria(t, "meeting", "2024-06-01", "2024-06-30", "attending")
	assert.Equal(t, []string{"1"}, ids(Apply(events, c)))

	c.Status = string(model.StatusDeclined)
	// "Board dinner" matches search by location and is declined and in range.
	assert.Equal(t, []string{"4"}, ids(Apply(events, c)))
	assert.False(t, Matches(events[0], c))
}

func TestEmptyCriteriaMatchesAllInOrder(t *testing.T) {
	events := fixtures()
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(Apply(events, Criteria{})))
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(Apply(events, mustCriteria(t, "", "", "", "all"))))
}

func TestSearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	events := fixtures()
	assert.Equal(t, []string{"1", "4", "5"}, ids(Apply(events, Criteria{Search: "MEETING"})))
	assert.Equal(t, []string{"2"}, ids(Apply(events, Criteria{Search: "berlin"})))
	assert.Equal(t, []string{"2"}, ids(Apply(events, Criteria{Search: "gophercon"})))
	assert.Empty(t, Apply(events, Criteria{Search: "nothing like this"}))
}

func TestDateRangeIsInclusive(t *testing.T) {
	events := fixtures()

	c := mustCriteria(t, "", "2024-06-01", "2024-06-30", "")
	assert.Equal(t, []string{"1", "3", "4"}, ids(Apply(events, c)))

	c = mustCriteria(t, "", "2024-06-15", "", "")
	assert.Equal(t, []string{"1", "2", "4"}, ids(Apply(events, c)))

	c = mustCriteria(t, "", "", "2024-06-15", "")
	assert.Equal(t, []string{"1", "3"}, ids(Apply(events, c)))
}

func TestUnparseableEventDateOnlyFailsSetBounds(t *testing.T) {
	broken := fixtures()[4]
	assert.True(t, Matches(broken, Criteria{}))
	assert.False(t, Matches(broken, mustCriteria(t, "", "2000-01-01", "", "")))
}

func TestStatusSelector(t *testing.T) {
	events := fixtures()
	assert.Equal(t, []string{"1", "5"}, ids(Apply(events, mustCriteria(t, "", "", "", "attending"))))
	assert.Equal(t, []string{"3"}, ids(Apply(events, mustCriteria(t, "", "", "", "upcoming"))))
}

func TestParseCriteriaErrors(t *testing.T) {
	_, err := ParseCriteria("", "06/01/2024", "", "")
	assert.Error(t, err)
	_, err = ParseCriteria("", "", "2024-13-01", "")
	assert.Error(t, err)
	_, err = ParseCriteria("", "", "", "busy")
	assert.Error(t, err)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	events := fixtures()
	_ = Apply(events, Criteria{Search: "meeting", Status: "attending"})
	assert.Equal(t, fixtures(), events)
}

func TestMatchesAgreesWithApply(t *testing.T) {
	c := mustCriteria(t, "MEETING", "", "2024-06-30", "")
	for _, ev := range fixtures() {
		want := len(Apply([]model.Event{ev}, c)) == 1
		assert.Equal(t, want, Matches(ev, c), ev.ID)
	}
	assert.True(t, Matches(fixtures()[0], c))
	assert.False(t, Matches(fixtures()[4], c), "unparseable date fails a set bound")
}
