package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/llm"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/store"
)

const (
	maxHistoryTurns = 20

	emptyReplyText = "I'm sorry, I couldn't generate a response at this time. Please try again."
)

// HistoryEntry is one prior turn as sent by the client.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message           string
	CourseName        string
	History           []HistoryEntry
	DocumentFilenames []string
	UserIdentifier    string
}

type ChatService struct {
	dbStore  *store.SQLiteStore
	rag      *RAGService
	provider llm.Provider
	solver   MathSolver
	debug    bool
}

func NewChatService(db *store.SQLiteStore, rag *RAGService, provider llm.Provider, solver MathSolver, debug bool) *ChatService {
	return &ChatService{
		dbStore:  db,
		rag:      rag,
		provider: provider,
		solver:   solver,
		debug:    debug,
	}
}

// GetOrCreateUser resolves a client identifier. Persistence is optional, so
// a nil store yields nil.
func (s *ChatService) GetOrCreateUser(identifier string) (*store.User, error) {
	if s.dbStore == nil || strings.TrimSpace(identifier) == "" {
		return nil, nil
	}
	return s.dbStore.GetOrCreateUser(identifier)
}

// Reply runs one tutoring turn: prompt assembly, an optional round of tool
// calls, and persistence of both turns when the request names a user.
func (s *ChatService) Reply(ctx context.Context, req ChatRequest) (string, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return "", fmt.Errorf("message cannot be empty")
	}

	var userID int64
	user, err := s.GetOrCreateUser(req.UserIdentifier)
	if err != nil {
		log.Printf("Failed to resolve user %q, continuing without history: %v", req.UserIdentifier, err)
	} else if user != nil {
		userID = user.ID
	}

	messages := s.buildMessages(ctx, userID, req, message)
	withTools := s.solver != nil && s.solver.Enabled()
	var tools []llm.Tool
	if withTools {
		tools = []llm.Tool{solveMathTool}
	}

	resp, err := s.provider.Complete(ctx, llm.Request{Messages: messages, Tools: tools})
	if err != nil {
		return "", fmt.Errorf("failed to get LLM completion: %w", err)
	}

	if len(resp.ToolCalls) > 0 {
		log.Printf("LLM requested %d tool call(s)", len(resp.ToolCalls))
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    s.runTool(ctx, call),
			})
		}
		resp, err = s.provider.Complete(ctx, llm.Request{Messages: messages, Tools: tools})
		if err != nil {
			return "", fmt.Errorf("failed to get LLM completion with tool results: %w", err)
		}
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		log.Println("LLM response was empty.")
		reply = emptyReplyText
	}

	if userID != 0 {
		s.saveTurns(userID, courseOrDefault(req.CourseName), message, reply)
	}
	return reply, nil
}

// Stream sends the message without tools or persistence and relays content
// deltas to onChunk.
func (s *ChatService) Stream(ctx context.Context, req ChatRequest, onChunk func(string) error) error {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	messages := []llm.Message{{Role: llm.RoleSystem, Content: streamSystemPrompt(req.CourseName)}}
	messages = append(messages, historyMessages(req.History, message)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})
	return s.provider.Stream(ctx, llm.Request{Messages: messages}, onChunk)
}

func (s *ChatService) buildMessages(ctx context.Context, userID int64, req ChatRequest, message string) []llm.Message {
	withTools := s.solver != nil && s.solver.Enabled()
	system := tutorSystemPrompt(req.CourseName, withTools)

	if similar := s.rag.SimilarQuestion(userID, courseOrDefault(req.CourseName), message); similar != nil {
		system += fmt.Sprintf("\n\nNote: %s The student previously asked: %q. "+
			"If it helps, connect this question to that one.", similar.Note, similar.Question)
	}

	history := req.History
	if len(history) == 0 && userID != 0 {
		history = s.storedHistory(userID, courseOrDefault(req.CourseName))
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	messages = append(messages, historyMessages(history, message)...)

	content := message
	if docs := s.rag.DocumentContext(ctx, req.DocumentFilenames); docs != "" {
		content = docs + "\n\nStudent question: " + message
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: content})

	if s.debug {
		log.Printf("Chat prompt: %d messages, %d history turns, %d document chars", len(messages), len(messages)-2, len(content)-len(message))
	}
	return messages
}

// historyMessages keeps well-formed user/assistant turns, drops a trailing
// copy of the current message and caps the result to the newest turns.
func historyMessages(history []HistoryEntry, message string) []llm.Message {
	var out []llm.Message
	for _, h := range history {
		content := strings.TrimSpace(h.Content)
		if content == "" {
			continue
		}
		switch h.Role {
		case store.RoleUser:
			out = append(out, llm.Message{Role: llm.RoleUser, Content: content})
		case store.RoleAssistant:
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: content})
		}
	}
	if n := len(out); n > 0 && out[n-1].Role == llm.RoleUser && out[n-1].Content == message {
		out = out[:n-1]
	}
	if len(out) > maxHistoryTurns {
		out = out[len(out)-maxHistoryTurns:]
	}
	return out
}

// storedHistory resumes a course conversation for callers that send no
// history of their own.
func (s *ChatService) storedHistory(userID int64, course string) []HistoryEntry {
	turns, err := s.dbStore.GetRecentChatHistory(userID, course, maxHistoryTurns)
	if err != nil {
		log.Printf("Failed to load chat history for user %d: %v", userID, err)
		return nil
	}
	history := make([]HistoryEntry, 0, len(turns))
	for _, t := range turns {
		history = append(history, HistoryEntry{Role: t.Role, Content: t.Content})
	}
	return history
}

func (s *ChatService) saveTurns(userID int64, course, question, reply string) {
	if err := s.dbStore.SaveChatTurn(userID, course, store.RoleUser, question); err != nil {
		log.Printf("Failed to store user turn for user %d: %v", userID, err)
		return
	}
	if err := s.dbStore.SaveChatTurn(userID, course, store.RoleAssistant, reply); err != nil {
		log.Printf("Failed to store assistant turn for user %d: %v", userID, err)
	}
}
