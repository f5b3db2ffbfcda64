package chat

import (
	"context"
	"strings"

	appLog "eventplanner/internal/log"
	"eventplanner/internal/model"
)

// ErrorReply is appended whenever the endpoint cannot produce a reply.
const ErrorReply = "Error getting response."

// Asker answers a question about a list of events. *Client implements it.
type Asker interface {
	Ask(ctx context.Context, message string, events []model.Event) (string, error)
}

// EventSource supplies the event list sent along with each question.
type EventSource interface {
	Events() []model.Event
}

// Widget is the chat front end: it owns the log and forwards questions.
type Widget struct {
	log    *Log
	asker  Asker
	events EventSource
}

func NewWidget(asker Asker, events EventSource) *Widget {
	return &Widget{
		log:    NewLog(),
		asker:  asker,
		events: events,
	}
}

// Log exposes the message log for reading and subscribing.
func (w *Widget) Log() *Log {
	return w.log
}

// Post appends the user's message right away and returns it. The question
// is then sent in the background; the reply (or ErrorReply) is appended
// when it arrives. Replies are appended in arrival order, which can differ
// from submission order. Blank input is ignored and ok is false.
func (w *Widget) Post(ctx context.Context, text string) (msg Message, ok bool) {
	if strings.TrimSpace(text) == "" {
		return Message{}, false
	}
	msg = w.log.Append(SenderUser, text, 0)
	events := w.events.Events()
	go w.answer(ctx, msg, events)
	return msg, true
}

// Submit is the blocking form of Post: it returns once the bot message has
// been appended.
func (w *Widget) Submit(ctx context.Context, text string) (reply Message, ok bool) {
	if strings.TrimSpace(text) == "" {
		return Message{}, false
	}
	msg := w.log.Append(SenderUser, text, 0)
	return w.answer(ctx, msg, w.events.Events()), true
}

func (w *Widget) answer(ctx context.Context, question Message, events []model.Event) Message {
	reply, err := w.asker.Ask(ctx, question.Text, events)
	if err != nil {
		appLog.Error("chat: request failed", err, "seq", question.Seq)
		return w.log.Append(SenderBot, ErrorReply, question.Seq)
	}
	appLog.Debug("chat: reply received", "seq", question.Seq, "chars", len(reply))
	return w.log.Append(SenderBot, reply, question.Seq)
}
