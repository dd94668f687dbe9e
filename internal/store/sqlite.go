package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var ErrEmptyIdentifier = errors.New("user identifier is required")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps SQLite writers from tripping over each other.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        identifier TEXT UNIQUE NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chat_history (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        course TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    CREATE INDEX IF NOT EXISTS idx_chat_user_course ON chat_history (user_id, course);

    CREATE TABLE IF NOT EXISTS mistakes (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        course TEXT NOT NULL,
        topic TEXT NOT NULL DEFAULT '',
        question TEXT NOT NULL,
        correction TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    CREATE INDEX IF NOT EXISTS idx_mistakes_user_course ON mistakes (user_id, course);

    CREATE TABLE IF NOT EXISTS study_plans (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER UNIQUE NOT NULL,
        plan_json TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods
func (s *SQLiteStore) GetOrCreateUser(identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrEmptyIdentifier
	}

	if _, err := s.db.Exec("INSERT OR IGNORE INTO users (identifier, created_at) VALUES (?, ?)", identifier, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	var user User
	err := s.db.QueryRow("SELECT id, identifier, created_at FROM users WHERE identifier = ?", identifier).Scan(&user.ID, &user.Identifier, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// Chat history methods
func (s *SQLiteStore) SaveChatTurn(userID int64, course, role, content string) error {
	stmt, err := s.db.Prepare("INSERT INTO chat_history (user_id, course, role, content, created_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chat turn insert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.Exec(userID, course, role, truncate(content, maxChatContentLen), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to execute chat turn insert: %w", err)
	}
	return nil
}

// GetRecentChatHistory returns the newest limit turns in chronological order.
func (s *SQLiteStore) GetRecentChatHistory(userID int64, course string, limit int) ([]ChatTurn, error) {
	query := `
        SELECT id, user_id, course, role, content, created_at
        FROM chat_history
        WHERE user_id = ? AND course = ?
        ORDER BY id DESC
        LIMIT ?
    `
	rows, err := s.db.Query(query, userID, course, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	var turns []ChatTurn
	for rows.Next() {
		var turn ChatTurn
		if err := rows.Scan(&turn.ID, &turn.UserID, &turn.Course, &turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat history row: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat history: %w", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// GetRecentUserQuestions returns the newest student questions, newest first.
func (s *SQLiteStore) GetRecentUserQuestions(userID int64, course string, limit int) ([]string, error) {
	query := `
        SELECT content FROM chat_history
        WHERE user_id = ? AND course = ? AND role = 'user'
        ORDER BY id DESC
        LIMIT ?
    `
	rows, err := s.db.Query(query, userID, course, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query user questions: %w", err)
	}
	defer rows.Close()

	var questions []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan user question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Mistake methods

// ListMistakes returns the user's mistakes, newest first. A non-empty course
// matches either exactly or as a case-insensitive substring.
func (s *SQLiteStore) ListMistakes(userID int64, course string) ([]Mistake, error) {
	query := "SELECT id, course, topic, question, correction, created_at FROM mistakes WHERE user_id = ?"
	args := []any{userID}
	if course = strings.TrimSpace(course); course != "" {
		query += " AND (course = ? OR instr(lower(course), lower(?)) > 0)"
		args = append(args, course, course)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mistakes: %w", err)
	}
	defer rows.Close()

	mistakes := []Mistake{}
	for rows.Next() {
		var m Mistake
		if err := rows.Scan(&m.ID, &m.Course, &m.Topic, &m.Question, &m.Correction, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mistake row: %w", err)
		}
		mistakes = append(mistakes, m)
	}
	return mistakes, rows.Err()
}

func (s *SQLiteStore) AddMistake(userID int64, m *Mistake) error {
	stmt, err := s.db.Prepare("INSERT INTO mistakes (user_id, course, topic, question, correction, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare mistake insert: %w", err)
	}
	defer stmt.Close()

	m.Question = truncate(m.Question, maxMistakeTextLen)
	m.Correction = truncate(m.Correction, maxMistakeTextLen)
	m.CreatedAt = time.Now().UTC()

	res, err := stmt.Exec(userID, m.Course, m.Topic, m.Question, m.Correction, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute mistake insert: %w", err)
	}
	m.ID, _ = res.LastInsertId()
	return nil
}

// DeleteMistake reports whether a mistake owned by userID was removed.
func (s *SQLiteStore) DeleteMistake(mistakeID, userID int64) (bool, error) {
	res, err := s.db.Exec("DELETE FROM mistakes WHERE id = ? AND user_id = ?", mistakeID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete mistake: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// Study plan methods

// GetStudyPlan returns nil when the user has never saved a plan.
func (s *SQLiteStore) GetStudyPlan(userID int64) (*StudyPlan, error) {
	var planJSON string
	var plan StudyPlan
	err := s.db.QueryRow("SELECT plan_json, updated_at FROM study_plans WHERE user_id = ?", userID).Scan(&planJSON, &plan.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query study plan: %w", err)
	}
	plan.Plan = json.RawMessage(planJSON)
	return &plan, nil
}

func (s *SQLiteStore) SaveStudyPlan(userID int64, plan json.RawMessage) error {
	if !json.Valid(plan) {
		return fmt.Errorf("study plan is not valid JSON")
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(`
        INSERT INTO study_plans (user_id, plan_json, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            plan_json = excluded.plan_json,
            updated_at = excluded.updated_at
    `, userID, string(plan), now, now)
	if err != nil {
		return fmt.Errorf("failed to save study plan: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
