package client

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
)

// GenerationFailed is the result of a failed generation request.
const GenerationFailed = "Failed to generate."

type generateFunc func(ctx context.Context, p GenerateParams) (string, error)

// Slot is one generation panel: a loading flag and the latest result.
type Slot struct {
	name     string
	generate generateFunc

	mu      sync.Mutex
	loading bool
	result  string
}

// Submit runs the request and stores its result. It returns false, doing
// nothing, while an earlier submission of the same slot is still loading.
func (s *Slot) Submit(ctx context.Context, p GenerateParams) bool {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return false
	}
	s.loading = true
	s.mu.Unlock()

	text, err := s.generate(ctx, p)
	if err != nil {
		log.Printf("Error generating %s: %v", s.name, err)
		text = GenerationFailed
	}

	s.mu.Lock()
	s.result = text
	s.loading = false
	s.mu.Unlock()
	return true
}

func (s *Slot) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Slot) Result() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

type Generator interface {
	StudyGuide(ctx context.Context, p GenerateParams) (string, error)
	PracticeExam(ctx context.Context, p GenerateParams) (string, error)
}

// Generation holds independent study guide and practice exam slots; neither
// blocks the other.
type Generation struct {
	StudyGuide   *Slot
	PracticeExam *Slot
}

func NewGeneration(g Generator) *Generation {
	return &Generation{
		StudyGuide:   &Slot{name: "study guide", generate: g.StudyGuide},
		PracticeExam: &Slot{name: "practice exam", generate: g.PracticeExam},
	}
}

type WeeklyReview struct {
	ReviewPrompts []string `json:"review_prompts,omitempty"`
	FullText      string   `json:"full_text,omitempty"`
	Message       string   `json:"message,omitempty"`
}

// Render shows the review prompts first and then the full text. The
// message is shown only when there are no prompts.
func (w WeeklyReview) Render() string {
	var parts []string
	if len(w.ReviewPrompts) > 0 {
		var b strings.Builder
		for i, p := range w.ReviewPrompts {
			fmt.Fprintf(&b, "%d. %s\n", i+1, p)
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	if w.FullText != "" {
		parts = append(parts, w.FullText)
	}
	if len(w.ReviewPrompts) == 0 && w.Message != "" {
		parts = append(parts, w.Message)
	}
	return strings.Join(parts, "\n\n")
}
