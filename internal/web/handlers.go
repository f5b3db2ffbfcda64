package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"eventplanner/internal/chat"
	"eventplanner/internal/filter"
	"eventplanner/internal/ics"
	appLog "eventplanner/internal/log"
	"eventplanner/internal/model"
	"eventplanner/internal/store"
)

// eventsResponse is the JSON shape of GET /api/events.
type eventsResponse struct {
	Events []model.Event `json:"events"`
	// Total is the size of the unfiltered list.
	Total int `json:"total"`
}

// submitResponse is returned by POST /api/draft/submit.
type submitResponse struct {
	Event model.Event `json:"event"`
	Form  store.Form  `json:"form"`
}

type chatPostRequest struct {
	Message string `json:"message"`
}

type chatLogResponse struct {
	Messages []chat.Message `json:"messages"`
}

// handleListEvents returns the filtered event list.
//
// GET /api/events?q=meeting&start=2024-06-01&end=2024-06-30&status=attending
//   - q:      case-insensitive text in title, location, or description
//   - start:  inclusive lower date bound (YYYY-MM-DD)
//   - end:    inclusive upper date bound (YYYY-MM-DD)
//   - status: upcoming | attending | maybe | declined | all (default)
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := filter.ParseCriteria(q.Get("q"), q.Get("start"), q.Get("end"), q.Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	all := s.store.Events()
	writeJSON(w, http.StatusOK, eventsResponse{
		Events: filter.Apply(all, c),
		Total:  len(all),
	})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	d, ok := decodeDraft(w, r)
	if !ok {
		return
	}
	ev, err := s.store.Create(d)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	appLog.Info("event created", "id", ev.ID, "title", ev.Title)
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	d, ok := decodeDraft(w, r)
	if !ok {
		return
	}
	ev, err := s.store.Update(r.PathValue("id"), d)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	appLog.Info("event updated", "id", ev.ID)
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(id); err != nil {
		writeStoreError(w, err)
		return
	}
	appLog.Info("event deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleEditEvent loads an event into the form.
func (s *Server) handleEditEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Edit(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Form())
}

func (s *Server) handleGetDraft(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Form())
}

func (s *Server) handleSetDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := decodeDraft(w, r)
	if !ok {
		return
	}
	s.store.SetDraft(d)
	writeJSON(w, http.StatusOK, s.store.Form())
}

func (s *Server) handleResetDraft(w http.ResponseWriter, _ *http.Request) {
	s.store.Reset()
	writeJSON(w, http.StatusOK, s.store.Form())
}

// handleCancelDraft drops the draft and any edit in progress.
func (s *Server) handleCancelDraft(w http.ResponseWriter, _ *http.Request) {
	s.store.Cancel()
	writeJSON(w, http.StatusOK, s.store.Form())
}

// handleSubmitDraft commits the form: update while editing, create otherwise.
func (s *Server) handleSubmitDraft(w http.ResponseWriter, _ *http.Request) {
	ev, err := s.store.Submit()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	appLog.Info("draft submitted", "id", ev.ID)
	writeJSON(w, http.StatusOK, submitResponse{Event: ev, Form: s.store.Form()})
}

func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	body := ics.Format(s.store.Events(), s.now().UTC())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=events.ics")
	if _, err := w.Write([]byte(body)); err != nil {
		appLog.Error("failed to write calendar response", err)
	}
}

func (s *Server) handleChatLog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, chatLogResponse{Messages: s.chat.Log().Messages()})
}

// handleChatPost appends the user's message and answers in the background;
// the reply shows up in GET /api/chat and on /ws.
func (s *Server) handleChatPost(w http.ResponseWriter, r *http.Request) {
	var req chatPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	msg, ok := s.chat.Post(s.baseCtx, req.Message)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "message is empty")
		return
	}
	writeJSON(w, http.StatusAccepted, msg)
}

func decodeDraft(w http.ResponseWriter, r *http.Request) (model.Draft, bool) {
	var d model.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return d, false
	}
	return d, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrMissingFields),
		errors.Is(err, store.ErrInvalidStatus),
		errors.Is(err, store.ErrNotEditing):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		appLog.Error("unexpected store error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
