package chat

import (
	"sync"
	"time"

	"eventplanner/internal/notify"
)

// Sender tags who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry of the chat log.
type Message struct {
	Seq    int       `json:"seq"`
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
	// ReplyTo is the Seq of the user message a bot message answers.
	ReplyTo int `json:"reply_to,omitempty"`
}

// Display renders the message the way the widget shows it.
func (m Message) Display() string {
	if m.Sender == SenderUser {
		return "You: " + m.Text
	}
	return "Bot: " + m.Text
}

// Log is an append-only, in-memory list of messages.
type Log struct {
	mu       sync.RWMutex
	messages []Message
	now      func() time.Time
	updates  *notify.Broadcaster[[]Message]
}

func NewLog() *Log {
	return &Log{
		now:     time.Now,
		updates: notify.NewBroadcaster[[]Message](),
	}
}

// Append adds a message and returns it with Seq and At filled in.
// Seq starts at 1.
func (l *Log) Append(sender Sender, text string, replyTo int) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := Message{
		Seq:     len(l.messages) + 1,
		Sender:  sender,
		Text:    text,
		At:      l.now(),
		ReplyTo: replyTo,
	}
	l.messages = append(l.messages, m)
	l.updates.Publish(l.copyLocked())
	return m
}

// Messages returns a copy of the log.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyLocked()
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Subscribe delivers the whole log after every append.
func (l *Log) Subscribe() (<-chan []Message, func()) {
	return l.updates.Subscribe()
}

func (l *Log) copyLocked() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}
