package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/auth"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/core"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/files"
)

const serviceName = "AI Learning Helper Backend"

type contextKey string

const emailKey contextKey = "email"

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping() error
}

type APIHandler struct {
	db                Pinger
	chatService       *core.ChatService
	generationService *core.GenerationService
	learningService   *core.LearningService
	fileService       *files.Service
	solver            core.MathSolver
	tokens            *auth.TokenIssuer
	demo              auth.Credentials
}

type Deps struct {
	DB         Pinger
	Chat       *core.ChatService
	Generation *core.GenerationService
	Learning   *core.LearningService
	Files      *files.Service
	Solver     core.MathSolver
	Tokens     *auth.TokenIssuer
	Demo       auth.Credentials
}

func NewAPIHandler(d Deps) *APIHandler {
	return &APIHandler{
		db:                d.DB,
		chatService:       d.Chat,
		generationService: d.Generation,
		learningService:   d.Learning,
		fileService:       d.Files,
		solver:            d.Solver,
		tokens:            d.Tokens,
		demo:              d.Demo,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// EmailFromContext returns the authenticated email set by AuthMiddleware.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok
}

// requester names the caller for logs: the token email when auth is
// enforced, otherwise "anonymous".
func requester(r *http.Request) string {
	if email, ok := EmailFromContext(r.Context()); ok && email != "" {
		return email
	}
	return "anonymous"
}

func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		email, err := h.tokens.Validate(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), emailKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			log.Printf("Health check failed: database unreachable: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "service": serviceName})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := auth.Authenticate(h.demo, req.Email, req.Password); err != nil {
		if errors.Is(err, auth.ErrMissingCredentials) {
			writeError(w, http.StatusBadRequest, "Email and password are required")
			return
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokens.Generate(req.Email)
	if err != nil {
		log.Printf("Error generating JWT for %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, Email: req.Email})
}
