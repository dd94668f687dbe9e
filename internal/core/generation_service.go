package core

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/llm"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/store"
)

const (
	generationMaxTokens = 2000
	reviewMaxTokens     = 800

	maxReviewMistakes  = 15
	maxReviewQuestions = 10

	noReviewDataMessage = "No mistakes or recent questions recorded yet. Keep practicing and check back next week!"
)

type GenerateRequest struct {
	CourseName        string
	Topic             string
	DocumentFilenames []string
}

// WeeklyReview fields are independently optional. Clients show prompts
// first, then full text, and message only when there are no prompts.
type WeeklyReview struct {
	ReviewPrompts []string `json:"review_prompts,omitempty"`
	FullText      string   `json:"full_text,omitempty"`
	Message       string   `json:"message,omitempty"`
}

type GenerationService struct {
	dbStore  *store.SQLiteStore
	rag      *RAGService
	provider llm.Provider
}

func NewGenerationService(db *store.SQLiteStore, rag *RAGService, provider llm.Provider) *GenerationService {
	return &GenerationService{dbStore: db, rag: rag, provider: provider}
}

func (s *GenerationService) StudyGuide(ctx context.Context, req GenerateRequest) (string, error) {
	return s.generate(ctx, req, studyGuidePrompt(req.CourseName, req.Topic))
}

func (s *GenerationService) PracticeExam(ctx context.Context, req GenerateRequest) (string, error) {
	return s.generate(ctx, req, practiceExamPrompt(req.CourseName, req.Topic))
}

func (s *GenerationService) generate(ctx context.Context, req GenerateRequest, prompt string) (string, error) {
	if docs := s.rag.DocumentContext(ctx, req.DocumentFilenames); docs != "" {
		prompt = docs + "\n\n" + prompt
	}
	text, err := llm.Complete(ctx, s.provider, generatorSystemPrompt, prompt, generationMaxTokens)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// WeeklyReview builds review prompts from the user's recorded mistakes and,
// when a course is given, their recent questions in that course.
func (s *GenerationService) WeeklyReview(ctx context.Context, identifier, course string) (*WeeklyReview, error) {
	user, err := s.dbStore.GetOrCreateUser(identifier)
	if err != nil {
		return nil, err
	}

	mistakes, err := s.dbStore.ListMistakes(user.ID, course)
	if err != nil {
		return nil, err
	}
	var questions []string
	if strings.TrimSpace(course) != "" {
		if questions, err = s.dbStore.GetRecentUserQuestions(user.ID, course, maxReviewQuestions); err != nil {
			log.Printf("Failed to load recent questions for weekly review: %v", err)
		}
	}

	if len(mistakes) == 0 && len(questions) == 0 {
		return &WeeklyReview{Message: noReviewDataMessage}, nil
	}

	text, err := llm.Complete(ctx, s.provider, reviewSystemPrompt, weeklyReviewPrompt(course, mistakes, questions), reviewMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("weekly review generation failed: %w", err)
	}
	text = strings.TrimSpace(text)
	return &WeeklyReview{ReviewPrompts: parseNumberedLines(text), FullText: text}, nil
}

func weeklyReviewPrompt(course string, mistakes []store.Mistake, questions []string) string {
	var b strings.Builder
	if c := strings.TrimSpace(course); c != "" {
		fmt.Fprintf(&b, "Course: %s\n\n", c)
	}
	if len(mistakes) > 0 {
		b.WriteString("Mistakes the student made recently:\n")
		for i, m := range mistakes {
			if i == maxReviewMistakes {
				break
			}
			fmt.Fprintf(&b, "- [%s", m.Course)
			if m.Topic != "" {
				fmt.Fprintf(&b, " / %s", m.Topic)
			}
			fmt.Fprintf(&b, "] %s", m.Question)
			if m.Correction != "" {
				fmt.Fprintf(&b, " (correction: %s)", m.Correction)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if len(questions) > 0 {
		b.WriteString("Questions the student asked recently:\n")
		for _, q := range questions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	}
	b.WriteString("Write the weekly review prompts now.")
	return b.String()
}

var numberedLine = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+(.+?)\s*$`)

// parseNumberedLines extracts list items; other lines are ignored.
func parseNumberedLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}
