package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner/internal/chat"
	"eventplanner/internal/model"
)

var meeting = model.Event{
	ID: "1", Title: "Team Meeting", Date: "2024-06-15", Location: "Virtual",
	Status: model.StatusAttending, Description: "Quarterly planning session",
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("When is the meeting?", []model.Event{meeting})
	assert.Contains(t, p, "- Title: Team Meeting, Date: 2024-06-15, Location: Virtual, Status: attending, Description: Quarterly planning session")
	assert.Contains(t, p, "User question: When is the meeting?")
	assert.True(t, strings.HasSuffix(p, "Answer:"))

	empty := BuildPrompt("anything?", nil)
	assert.Contains(t, empty, "Events:\nNo events provided.")
}

func TestCompleterSendsOpenAIRequest(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"June 15th."}}]}`))
	}))
	defer srv.Close()

	c := NewCompleter(Config{BaseURL: srv.URL + "/api/v1/", Model: "m", APIKey: "secret", Temperature: 0.3})
	reply, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "June 15th.", reply)
	assert.Equal(t, "m", got.Model)
	assert.Equal(t, float32(0.3), got.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[0].Role)
	assert.Equal(t, "prompt", got.Messages[0].Content)
}

func TestCompleterSendsZeroTemperature(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	_, err := NewCompleter(Config{BaseURL: srv.URL, Model: "m", APIKey: "k"}).Complete(context.Background(), "x")
	require.NoError(t, err)
	require.Contains(t, raw, "temperature")
	assert.InDelta(t, 0, raw["temperature"], 1e-6)
}

func TestCompleterErrors(t *testing.T) {
	_, err := NewCompleter(Config{}).Complete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit exceeded: free-models-per-day","type":"rate_limit_error","param":null,"code":429}}`))
	}))
	defer srv.Close()

	_, err = NewCompleter(Config{BaseURL: srv.URL, APIKey: "k"}).Complete(context.Background(), "x")
	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.HTTPStatusCode)
	assert.Equal(t, "Rate limit exceeded: free-models-per-day", apiErr.Message)

	status, detail := NewHandler(nil, "m").classify(err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, detail, "free-models-per-day")
}

func TestCompleterNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewCompleter(Config{BaseURL: srv.URL, APIKey: "k"}).Complete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoChoices)
}

type fakeCompletion struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompletion) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerReplies(t *testing.T) {
	fc := &fakeCompletion{reply: "You are attending one meeting."}
	h := NewHandler(fc, "m")

	reqBody, err := json.Marshal(chat.Request{Message: "what am I attending?", Events: []model.Event{meeting}})
	require.NoError(t, err)
	rec := post(t, h, string(reqBody))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chat.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "You are attending one meeting.", resp.Reply)
	assert.Contains(t, fc.prompt, "Title: Team Meeting")
}

func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrNoAPIKey, http.StatusInternalServerError},
		{&openai.APIError{HTTPStatusCode: 401, Message: "No auth credentials found"}, http.StatusUnauthorized},
		{&openai.APIError{HTTPStatusCode: 400, Message: "authentication failed"}, http.StatusUnauthorized},
		{fmt.Errorf("assistant: completion: %w", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}), http.StatusTooManyRequests},
		{&openai.APIError{HTTPStatusCode: 400, Message: "model not found: foo"}, http.StatusNotFound},
		{&openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, http.StatusServiceUnavailable},
		{errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable},
		{ErrNoChoices, http.StatusServiceUnavailable},
		{errors.New("weird"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		rec := post(t, NewHandler(&fakeCompletion{err: tc.err}, "m"), `{"message":"hi","events":[]}`)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())

		var resp detailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Detail)
	}
}

func TestHandlerRejectsBadInput(t *testing.T) {
	h := NewHandler(&fakeCompletion{}, "m")
	assert.Equal(t, http.StatusUnprocessableEntity, post(t, h, "{").Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandlerWorksWithChatWidget(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&fakeCompletion{reply: "pong"}, "m"))
	defer srv.Close()

	w := chat.NewWidget(chat.NewClient(srv.URL, 0), staticEvents{meeting})
	reply, ok := w.Submit(context.Background(), "ping")
	require.True(t, ok)
	assert.Equal(t, "pong", reply.Text)
}

type staticEvents []model.Event

func (s staticEvents) Events() []model.Event { return s }
