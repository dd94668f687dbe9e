package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/store"
)

var (
	ErrMistakeNotFound = errors.New("mistake not found")
	ErrInvalidPlan     = errors.New("plan must be a JSON object or text")
)

// LearningService namespaces mistakes and study plans by the client's user
// identifier.
type LearningService struct {
	dbStore *store.SQLiteStore
}

func NewLearningService(db *store.SQLiteStore) *LearningService {
	return &LearningService{dbStore: db}
}

func (s *LearningService) ListMistakes(identifier, course string) ([]store.Mistake, error) {
	user, err := s.dbStore.GetOrCreateUser(identifier)
	if err != nil {
		return nil, err
	}
	return s.dbStore.ListMistakes(user.ID, course)
}

func (s *LearningService) AddMistake(identifier string, m *store.Mistake) error {
	user, err := s.dbStore.GetOrCreateUser(identifier)
	if err != nil {
		return err
	}
	return s.dbStore.AddMistake(user.ID, m)
}

func (s *LearningService) DeleteMistake(identifier string, id int64) error {
	user, err := s.dbStore.GetOrCreateUser(identifier)
	if err != nil {
		return err
	}
	deleted, err := s.dbStore.DeleteMistake(id, user.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrMistakeNotFound
	}
	return nil
}

// GetStudyPlan returns nil when nothing has been saved.
func (s *LearningService) GetStudyPlan(identifier string) (*store.StudyPlan, error) {
	user, err := s.dbStore.GetOrCreateUser(identifier)
	if err != nil {
		return nil, err
	}
	return s.dbStore.GetStudyPlan(user.ID)
}

// SaveStudyPlan stores objects verbatim and wraps a bare JSON string as
// {"notes": text}.
func (s *LearningService) SaveStudyPlan(identifier string, plan json.RawMessage) error {
	normalized, err := normalizePlan(plan)
	if err != nil {
		return err
	}
	user, err := s.dbStore.GetOrCreateUser(identifier)
	if err != nil {
		return err
	}
	return s.dbStore.SaveStudyPlan(user.ID, normalized)
}

func normalizePlan(plan json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(plan))
	switch {
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
		if !json.Valid([]byte(trimmed)) {
			return nil, ErrInvalidPlan
		}
		return json.RawMessage(trimmed), nil
	case strings.HasPrefix(trimmed, `"`):
		var text string
		if err := json.Unmarshal([]byte(trimmed), &text); err != nil {
			return nil, ErrInvalidPlan
		}
		wrapped, err := json.Marshal(map[string]string{"notes": text})
		if err != nil {
			return nil, fmt.Errorf("failed to encode plan: %w", err)
		}
		return wrapped, nil
	default:
		return nil, ErrInvalidPlan
	}
}
