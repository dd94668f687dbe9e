package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// NewUserIdentifier returns a fresh identifier for namespacing mistakes and
// study plans. It is not a credential.
func NewUserIdentifier() string {
	return "user_" + uuid.NewString()
}

type Mistake struct {
	ID         int64     `json:"id"`
	Course     string    `json:"course"`
	Topic      string    `json:"topic,omitempty"`
	Question   string    `json:"question"`
	Correction string    `json:"correction,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type PlanKind string

const (
	PlanText PlanKind = "text"
	PlanJSON PlanKind = "json"
)

// StudyPlan is either free text or a JSON object or array. Text travels as
// {"notes": text}; JSON travels verbatim.
type StudyPlan struct {
	Kind   PlanKind
	Text   string
	Object json.RawMessage
}

var errNotStructured = errors.New("study plan JSON must be an object or array")

func TextPlan(text string) StudyPlan {
	return StudyPlan{Kind: PlanText, Text: text}
}

func JSONPlan(obj json.RawMessage) (StudyPlan, error) {
	trimmed := bytes.TrimSpace(obj)
	if !isStructuredJSON(trimmed) {
		return StudyPlan{}, errNotStructured
	}
	return StudyPlan{Kind: PlanJSON, Object: json.RawMessage(trimmed)}, nil
}

func isStructuredJSON(raw []byte) bool {
	return (bytes.HasPrefix(raw, []byte("{")) || bytes.HasPrefix(raw, []byte("["))) && json.Valid(raw)
}

// StudyPlanFromEditor decides the plan kind for text typed by the student:
// a JSON object or array becomes a JSON plan, anything else is kept as text.
func StudyPlanFromEditor(text string) StudyPlan {
	if p, err := JSONPlan(json.RawMessage(text)); err == nil {
		return p
	}
	return TextPlan(text)
}

func (p StudyPlan) wire() (json.RawMessage, error) {
	if p.Kind == PlanJSON {
		return p.Object, nil
	}
	return json.Marshal(map[string]string{"notes": p.Text})
}

// EditorText is the plan as the student would edit it.
func (p StudyPlan) EditorText() string {
	if p.Kind == PlanText {
		return p.Text
	}
	var out bytes.Buffer
	if err := json.Indent(&out, p.Object, "", "  "); err != nil {
		return string(p.Object)
	}
	return out.String()
}

// planFromWire treats an object holding only a string "notes" field as a
// text plan.
func planFromWire(raw json.RawMessage) (*StudyPlan, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if bytes.HasPrefix(raw, []byte("[")) {
		if !json.Valid(raw) {
			return nil, fmt.Errorf("failed to decode study plan: %w", errNotStructured)
		}
		p := StudyPlan{Kind: PlanJSON, Object: raw}
		return &p, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode study plan: %w", err)
	}
	if notes, ok := fields["notes"]; ok && len(fields) == 1 {
		var text string
		if json.Unmarshal(notes, &text) == nil {
			p := TextPlan(text)
			return &p, nil
		}
	}
	p := StudyPlan{Kind: PlanJSON, Object: raw}
	return &p, nil
}

// Learning mirrors the student's mistakes and study plan.
type Learning struct {
	api    *API
	userID string

	mu       sync.Mutex
	mistakes []Mistake
}

func NewLearning(api *API, userIdentifier string) *Learning {
	return &Learning{api: api, userID: userIdentifier}
}

// ListMistakes refreshes the mirror, optionally filtered by course.
func (l *Learning) ListMistakes(ctx context.Context, course string) ([]Mistake, error) {
	list, err := l.api.ListMistakes(ctx, l.userID, strings.TrimSpace(course))
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.mistakes = list
	l.mu.Unlock()
	return append([]Mistake(nil), list...), nil
}

func (l *Learning) Mistakes() []Mistake {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Mistake(nil), l.mistakes...)
}

// DeleteMistake removes exactly id from the backend and from the mirror.
func (l *Learning) DeleteMistake(ctx context.Context, id int64) error {
	if err := l.api.DeleteMistake(ctx, l.userID, id); err != nil {
		return err
	}
	l.mu.Lock()
	l.mistakes = lo.Reject(l.mistakes, func(m Mistake, _ int) bool { return m.ID == id })
	l.mu.Unlock()
	return nil
}

// GetStudyPlan returns nil when no plan has been saved.
func (l *Learning) GetStudyPlan(ctx context.Context) (*StudyPlan, error) {
	raw, err := l.api.GetStudyPlan(ctx, l.userID)
	if err != nil {
		return nil, err
	}
	return planFromWire(raw)
}

func (l *Learning) SaveStudyPlan(ctx context.Context, plan StudyPlan) error {
	raw, err := plan.wire()
	if err != nil {
		return validationError("failed to encode study plan", err)
	}
	return l.api.SaveStudyPlan(ctx, l.userID, raw)
}

func (l *Learning) WeeklyReview(ctx context.Context, course string) (*WeeklyReview, error) {
	return l.api.WeeklyReview(ctx, l.userID, strings.TrimSpace(course))
}
