package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner/internal/model"
)

type staticEvents []model.Event

func (s staticEvents) Events() []model.Event { return s }

var sample = staticEvents{{
	ID: "1", Title: "Team Meeting", Date: "2024-06-15", Location: "Virtual",
	Status: model.StatusAttending, Description: "Quarterly planning session",
}}

func TestSubmitSendsEventsAndAppendsReply(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Response{Reply: "You have one meeting."})
	}))
	defer srv.Close()

	w := NewWidget(NewClient(srv.URL, 0), sample)
	reply, ok := w.Submit(context.Background(), "What is on my calendar?")
	require.True(t, ok)

	assert.Equal(t, "What is on my calendar?", got.Message)
	assert.Equal(t, []model.Event(sample), got.Events)

	msgs := w.Log().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "You: What is on my calendar?", msgs[0].Display())
	assert.Equal(t, "Bot: You have one meeting.", msgs[1].Display())
	assert.Equal(t, msgs[1], reply)
	assert.Equal(t, 1, reply.ReplyTo)
}

func TestNetworkFailureAppendsSingleErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	w := NewWidget(NewClient(url, time.Second), sample)
	_, ok := w.Submit(context.Background(), "hello")
	require.True(t, ok)

	msgs := w.Log().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, SenderUser, msgs[0].Sender)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, SenderBot, msgs[1].Sender)
	assert.Equal(t, ErrorReply, msgs[1].Text)
}

func TestServerErrorAndMalformedBodyAreFailures(t *testing.T) {
	for name, h := range map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"detail":"rate limit"}`, http.StatusTooManyRequests)
		},
		"json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			w := NewWidget(NewClient(srv.URL, 0), sample)
			reply, ok := w.Submit(context.Background(), "hi")
			require.True(t, ok)
			assert.Equal(t, ErrorReply, reply.Text)
			assert.Equal(t, 2, w.Log().Len())
		})
	}
}

func TestBlankInputIgnored(t *testing.T) {
	w := NewWidget(NewClient("http://127.0.0.1:1/chat", 0), sample)
	_, ok := w.Submit(context.Background(), "   ")
	assert.False(t, ok)
	_, ok = w.Post(context.Background(), "")
	assert.False(t, ok)
	assert.Zero(t, w.Log().Len())
}

type gatedAsker struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func (g *gatedAsker) Ask(_ context.Context, message string, _ []model.Event) (string, error) {
	g.mu.Lock()
	gate := g.gates[message]
	g.mu.Unlock()
	<-gate
	return "re: " + message, nil
}

func TestPostIsOptimisticAndRepliesArriveInCompletionOrder(t *testing.T) {
	asker := &gatedAsker{gates: map[string]chan struct{}{
		"slow": make(chan struct{}),
		"fast": make(chan struct{}),
	}}
	w := NewWidget(asker, sample)
	updates, cancel := w.Log().Subscribe()
	defer cancel()

	first, ok := w.Post(context.Background(), "slow")
	require.True(t, ok)
	second, ok := w.Post(context.Background(), "fast")
	require.True(t, ok)
	assert.Equal(t, 2, w.Log().Len(), "user messages are appended before any reply")

	close(asker.gates["fast"])
	waitForLen(t, updates, 3)
	close(asker.gates["slow"])
	waitForLen(t, updates, 4)

	msgs := w.Log().Messages()
	assert.Equal(t, "re: fast", msgs[2].Text)
	assert.Equal(t, second.Seq, msgs[2].ReplyTo)
	assert.Equal(t, "re: slow", msgs[3].Text)
	assert.Equal(t, first.Seq, msgs[3].ReplyTo)
}

func waitForLen(t *testing.T, updates <-chan []Message, n int) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msgs := <-updates:
			if len(msgs) >= n {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %d messages", n)
		}
	}
}

func TestClientDefaultsEndpoint(t *testing.T) {
	assert.Equal(t, DefaultEndpoint, NewClient("", 0).Endpoint())
}
