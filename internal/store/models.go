package store

import (
	"encoding/json"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	maxChatContentLen = 10000
	maxMistakeTextLen = 2000
)

// User is the namespace for a client-generated identifier. It is not an
// authenticated principal.
type User struct {
	ID         int64     `json:"id"`
	Identifier string    `json:"identifier"`
	CreatedAt  time.Time `json:"created_at"`
}

type ChatTurn struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Course    string    `json:"course"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Mistake struct {
	ID         int64     `json:"id"`
	Course     string    `json:"course"`
	Topic      string    `json:"topic"`
	Question   string    `json:"question"`
	Correction string    `json:"correction"`
	CreatedAt  time.Time `json:"created_at"`
}

type StudyPlan struct {
	Plan      json.RawMessage `json:"plan"`
	UpdatedAt time.Time       `json:"updated_at"`
}
