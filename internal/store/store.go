package store

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	appLog "eventplanner/internal/log"
	"eventplanner/internal/model"
	"eventplanner/internal/notify"
)

// Rejections. A rejected operation leaves the event list untouched.
var (
	ErrMissingFields = errors.New("store: title and date are required")
	ErrNotEditing    = errors.New("store: no event id to update")
	ErrNotFound      = errors.New("store: event not found")
	ErrInvalidStatus = errors.New("store: invalid status")
)

// Form is the add/edit form: the draft plus the id being edited, if any.
type Form struct {
	Draft     model.Draft `json:"draft"`
	EditingID string      `json:"editing_id,omitempty"`
}

// Editing reports whether the form is bound to an existing event.
func (f Form) Editing() bool {
	return f.EditingID != ""
}

// Store holds the event list and the form state. All methods are safe for
// concurrent use; mutations are serialized and each one publishes a fresh
// snapshot to subscribers.
type Store struct {
	mu        sync.RWMutex
	events    []model.Event
	form      Form
	origin    map[string]string // event id -> import source id
	newID     func() string
	snapshots *notify.Broadcaster[[]model.Event]
}

// Option customizes a Store.
type Option func(*Store)

// WithIDFunc overrides id generation (UUIDv4 by default).
func WithIDFunc(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// New builds a Store seeded with initial events. Seed entries without an id
// get one; entries with an empty status become upcoming.
func New(seed []model.Event, opts ...Option) *Store {
	s := &Store{
		form:      Form{Draft: model.EmptyDraft()},
		origin:    make(map[string]string),
		newID:     uuid.NewString,
		snapshots: notify.NewBroadcaster[[]model.Event](),
	}
	for _, o := range opts {
		o(s)
	}
	for _, ev := range seed {
		if ev.ID == "" || s.indexOf(ev.ID) >= 0 {
			ev.ID = s.freshID()
		}
		if ev.Status == "" {
			ev.Status = model.StatusUpcoming
		}
		s.events = append(s.events, ev)
	}
	return s
}

// Events returns a copy of the list in insertion order.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Get returns the event with the given id.
func (s *Store) Get(id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.events[i], true
	}
	return model.Event{}, false
}

// Len returns the number of events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Form returns the current form state.
func (s *Store) Form() Form {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.form
}

// Subscribe delivers the event list after every mutation.
func (s *Store) Subscribe() (<-chan []model.Event, func()) {
	return s.snapshots.Subscribe()
}

// SetDraft replaces the draft, keeping the editing id.
func (s *Store) SetDraft(d model.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Draft = d
}

// Reset clears the draft to empty values with status upcoming.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Draft = model.EmptyDraft()
}

// Cancel abandons the form: the draft is reset and any edit is dropped. The
// event list is unchanged, so nothing is published.
func (s *Store) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = Form{Draft: model.EmptyDraft()}
}

// Edit loads an existing event into the draft and marks it as being edited.
func (s *Store) Edit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.form = Form{Draft: s.events[i].Draft(), EditingID: id}
	return nil
}

// Create appends a new event built from d under a fresh id. The draft is
// reset unless an edit is in progress.
func (s *Store) Create(d model.Draft) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(d)
}

// Update replaces the event with the given id, preserving the id. If that
// event is the one being edited, the form is cleared.
func (s *Store) Update(id string, d model.Draft) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(id, d)
}

// Submit commits the draft: an update while editing, otherwise a create.
// The form is read and committed under one lock.
func (s *Store) Submit() (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.form.Editing() {
		return s.update(s.form.EditingID, s.form.Draft)
	}
	return s.create(s.form.Draft)
}

// create and update run under the write lock.
func (s *Store) create(d model.Draft) (model.Event, error) {
	d, err := validate(d)
	if err != nil {
		return model.Event{}, err
	}

	ev := d.WithID(s.freshID())
	s.events = append(s.events, ev)
	if !s.form.Editing() {
		s.form.Draft = model.EmptyDraft()
	}
	s.publish()

	appLog.Debug("store: event created", "id", ev.ID, "title", ev.Title, "date", ev.Date)
	return ev, nil
}

func (s *Store) update(id string, d model.Draft) (model.Event, error) {
	if id == "" {
		return model.Event{}, ErrNotEditing
	}
	d, err := validate(d)
	if err != nil {
		return model.Event{}, err
	}

	i := s.indexOf(id)
	if i < 0 {
		return model.Event{}, ErrNotFound
	}
	ev := d.WithID(id)
	s.events[i] = ev
	if s.form.EditingID == id {
		s.form = Form{Draft: model.EmptyDraft()}
	}
	s.publish()

	appLog.Debug("store: event updated", "id", id)
	return ev, nil
}

// Delete removes the event with the given id. Deleting the event being
// edited also clears the form.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.removeAt(i)
	s.publish()

	appLog.Debug("store: event deleted", "id", id)
	return nil
}

// ImportResult summarizes one Import call.
type ImportResult struct {
	Added   int
	Updated int
	Removed int
}

// Import merges events fetched from an external source. Events are matched
// by id: existing ones are replaced in place, new ones appended, and events
// previously imported from the same source but absent now are removed.
// Imported events must carry their own stable ids.
func (s *Store) Import(source string, events []model.Event) ImportResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res ImportResult
	seen := make(map[string]bool, len(events))

	for _, ev := range events {
		if ev.ID == "" || seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true
		if ev.Status == "" || !ev.Status.Valid() {
			ev.Status = model.StatusUpcoming
		}

		if i := s.indexOf(ev.ID); i >= 0 {
			if s.events[i] != ev {
				s.events[i] = ev
				res.Updated++
			}
		} else {
			s.events = append(s.events, ev)
			res.Added++
		}
		s.origin[ev.ID] = source
	}

	for i := len(s.events) - 1; i >= 0; i-- {
		id := s.events[i].ID
		if s.origin[id] == source && !seen[id] {
			s.removeAt(i)
			res.Removed++
		}
	}

	if res.Added+res.Updated+res.Removed > 0 {
		s.publish()
	}
	return res
}

func validate(d model.Draft) (model.Draft, error) {
	if !d.Complete() {
		return d, ErrMissingFields
	}
	if d.Status == "" {
		d.Status = model.StatusUpcoming
	}
	if !d.Status.Valid() {
		return d, ErrInvalidStatus
	}
	return d, nil
}

// removeAt deletes index i; caller holds the write lock.
func (s *Store) removeAt(i int) {
	id := s.events[i].ID
	s.events = append(s.events[:i], s.events[i+1:]...)
	delete(s.origin, id)
	if s.form.EditingID == id {
		s.form = Form{Draft: model.EmptyDraft()}
	}
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}

// freshID returns an id not used by any current event.
func (s *Store) freshID() string {
	for {
		id := s.newID()
		if id != "" && s.indexOf(id) < 0 {
			return id
		}
	}
}

func (s *Store) snapshot() []model.Event {
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// publish runs under the write lock so subscribers observe mutations in order.
func (s *Store) publish() {
	s.snapshots.Publish(s.snapshot())
}
