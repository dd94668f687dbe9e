package core

import (
	"context"
	"log"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/files"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/store"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/utils"
)

const (
	NumRecentQuestions  = 20  // Past questions compared against the new one
	SimilarityThreshold = 0.5 // Minimum token overlap to surface a past question
)

// RAGService gathers the context a prompt is augmented with: text of the
// documents the student selected and the closest question they asked before.
type RAGService struct {
	dbStore   *store.SQLiteStore
	extractor *files.Extractor
}

func NewRAGService(db *store.SQLiteStore, extractor *files.Extractor) *RAGService {
	return &RAGService{dbStore: db, extractor: extractor}
}

// DocumentContext returns the prompt section for the selected documents, or
// "" when none are selected.
func (s *RAGService) DocumentContext(ctx context.Context, filenames []string) string {
	if s == nil || s.extractor == nil || len(filenames) == 0 {
		return ""
	}
	docs := s.extractor.Extract(ctx, filenames)
	for _, d := range docs {
		if d.Err != nil {
			log.Printf("Selected document %s unavailable: %v", d.Filename, d.Err)
		}
	}
	return s.extractor.BuildContext(docs)
}

// SimilarQuestion looks for a past question from the same user and course.
// A userID of 0 means the request was anonymous.
func (s *RAGService) SimilarQuestion(userID int64, course, question string) *utils.SimilarQuestion {
	if s == nil || s.dbStore == nil || userID == 0 {
		return nil
	}
	past, err := s.dbStore.GetRecentUserQuestions(userID, course, NumRecentQuestions)
	if err != nil {
		log.Printf("Failed to load past questions for user %d: %v", userID, err)
		return nil
	}
	return utils.FindSimilarQuestion(question, past, SimilarityThreshold)
}
