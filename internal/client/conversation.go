package client

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// FallbackReply is appended once for every failed chat call.
const FallbackReply = "Sorry, I encountered an error. Please try again."

type Sender string

const (
	SenderAssistant Sender = "assistant"
	SenderStudent   Sender = "student"
)

type Message struct {
	ID     int64  `json:"id"`
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	if s == StateAwaitingResponse {
		return "awaiting-response"
	}
	return "idle"
}

// ChatSender is the part of the API a conversation needs.
type ChatSender interface {
	Chat(ctx context.Context, p ChatParams) (string, error)
}

func greeting(c Course) string {
	return fmt.Sprintf("Hi! I'm your AI homework helper for %s. What would you like to work on today?", c.Name)
}

// requestTag identifies the conversation a chat call was issued for.
type requestTag struct {
	courseID string
	epoch    uint64
}

// Conversation is the per-course message log. Selecting a course always
// resets it; replies to calls issued before the reset are dropped.
type Conversation struct {
	chat      ChatSender
	courses   *Registry
	documents *DocumentSelection
	userID    string
	now       func() time.Time

	mu     sync.Mutex
	course Course
	epoch  uint64
	state  State
	log    []Message
	lastID int64
}

type ConversationOption func(*Conversation)

// WithUserIdentifier lets the backend keep chat history for this user.
func WithUserIdentifier(id string) ConversationOption {
	return func(c *Conversation) { c.userID = id }
}

func withClock(now func() time.Time) ConversationOption {
	return func(c *Conversation) { c.now = now }
}

func NewConversation(chat ChatSender, courses *Registry, documents *DocumentSelection, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		chat:      chat,
		courses:   courses,
		documents: documents,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mu.Lock()
	c.reset(courses.Default())
	c.mu.Unlock()
	return c
}

// nextID must be called with mu held. Ids follow the millisecond clock but
// never repeat or go backwards.
func (c *Conversation) nextID() int64 {
	id := c.now().UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return id
}

func (c *Conversation) reset(course Course) {
	c.course = course
	c.epoch++
	c.state = StateIdle
	c.log = []Message{{ID: c.nextID(), Sender: SenderAssistant, Text: greeting(course)}}
}

// SelectCourse switches course and resets the log to a single greeting,
// whatever the current state. An unknown id changes nothing.
func (c *Conversation) SelectCourse(id string) error {
	course, ok := c.courses.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCourse, id)
	}
	c.mu.Lock()
	c.reset(course)
	c.mu.Unlock()
	return nil
}

func (c *Conversation) Course() Course {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.course
}

func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.log...)
}

// Send appends the student's message and blocks until the reply, or the
// fallback text, has been appended. It returns false without calling the
// backend when text is blank or a reply is already pending.
func (c *Conversation) Send(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	if c.state == StateAwaitingResponse {
		c.mu.Unlock()
		return false
	}
	c.log = append(c.log, Message{ID: c.nextID(), Sender: SenderStudent, Text: text})
	c.state = StateAwaitingResponse
	tag := requestTag{courseID: c.course.ID, epoch: c.epoch}
	params := ChatParams{
		Message:             text,
		CourseName:          c.course.Name,
		ConversationHistory: historyOf(c.log[1:]),
		DocumentFilenames:   c.documents.Filenames(),
		UserIdentifier:      c.userID,
	}
	c.mu.Unlock()

	reply, err := c.chat.Chat(ctx, params)
	if err != nil {
		log.Printf("Chat request failed: %v", err)
		reply = FallbackReply
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tag != (requestTag{courseID: c.course.ID, epoch: c.epoch}) {
		log.Printf("Discarding reply for course %q issued before a course switch", tag.courseID)
		return true
	}
	c.log = append(c.log, Message{ID: c.nextID(), Sender: SenderAssistant, Text: reply})
	c.state = StateIdle
	return true
}

// historyOf maps the log after the seed greeting to role/content pairs.
func historyOf(msgs []Message) []HistoryEntry {
	return lo.Map(msgs, func(m Message, _ int) HistoryEntry {
		role := "assistant"
		if m.Sender == SenderStudent {
			role = "user"
		}
		return HistoryEntry{Role: role, Content: m.Text}
	})
}
