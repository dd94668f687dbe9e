package api

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/core"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/wolfram"
)

type ChatRequest struct {
	Message             string              `json:"message" validate:"notblank"`
	CourseName          string              `json:"course_name"`
	ConversationHistory []core.HistoryEntry `json:"conversation_history"`
	DocumentFilenames   []string            `json:"document_filenames"`
	UserIdentifier      string              `json:"user_identifier"`
}

func (r ChatRequest) toCore() core.ChatRequest {
	return core.ChatRequest{
		Message:           r.Message,
		CourseName:        r.CourseName,
		History:           r.ConversationHistory,
		DocumentFilenames: r.DocumentFilenames,
		UserIdentifier:    r.UserIdentifier,
	}
}

type ChatResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	log.Printf("Received chat request from %s for course %q (%d history turns, %d documents)",
		requester(r), req.CourseName, len(req.ConversationHistory), len(req.DocumentFilenames))

	reply, err := h.chatService.Reply(r.Context(), req.toCore())
	if err != nil {
		log.Printf("Error processing chat request: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to process chat request",
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: reply, Status: "success"})
}

// ChatStreamHandler relays completion chunks as Server-Sent Events and ends
// with a [DONE] event.
func (h *APIHandler) ChatStreamHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	log.Printf("Received streaming chat request from %s for course %q", requester(r), req.CourseName)
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	err := h.chatService.Stream(r.Context(), req.toCore(), func(chunk string) error {
		if err := writeEvent(w, chunk); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		log.Printf("Error in streaming completion: %v", err)
		_ = writeEvent(w, "Error: "+err.Error())
	}
	_ = writeEvent(w, "[DONE]")
	flusher.Flush()
}

// writeEvent splits multi-line data across data: fields so clients rejoin
// it with newlines.
func writeEvent(w http.ResponseWriter, data string) error {
	var b strings.Builder
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	_, err := fmt.Fprint(w, b.String())
	return err
}

type QueryResponse struct {
	*wolfram.Solution
	Source    string `json:"source"`
	Formatted string `json:"formatted"`
}

// QueryHandler answers a math question from the built-in worked solutions
// first and Wolfram Alpha second.
func (h *APIHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	if sol, ok := wolfram.LookupWorked(q); ok {
		writeJSON(w, http.StatusOK, QueryResponse{Solution: sol, Source: "built-in", Formatted: wolfram.FormatChatResponse(sol)})
		return
	}

	if h.solver != nil && h.solver.Enabled() {
		sol, err := h.solver.FetchWithSteps(r.Context(), q)
		if err == nil && (sol.Answer != "" || sol.Steps != "") {
			writeJSON(w, http.StatusOK, QueryResponse{Solution: sol, Source: "wolfram", Formatted: wolfram.FormatChatResponse(sol)})
			return
		}
		if err != nil {
			log.Printf("Wolfram Alpha lookup failed for %q: %v", q, err)
		}
	}
	writeError(w, http.StatusNotFound, "No solution found for "+q)
}
