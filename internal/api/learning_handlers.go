package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/core"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/store"
)

func userIdentifier(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("user_identifier"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "user_identifier is required")
		return "", false
	}
	return id, true
}

func (h *APIHandler) ListMistakesHandler(w http.ResponseWriter, r *http.Request) {
	identifier, ok := userIdentifier(w, r)
	if !ok {
		return
	}
	mistakes, err := h.learningService.ListMistakes(identifier, r.URL.Query().Get("course"))
	if err != nil {
		log.Printf("Error listing mistakes: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list mistakes")
		return
	}
	if mistakes == nil {
		mistakes = []store.Mistake{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"mistakes": mistakes})
}

type AddMistakeRequest struct {
	UserIdentifier string `json:"user_identifier" validate:"notblank"`
	Course         string `json:"course"`
	Topic          string `json:"topic"`
	Question       string `json:"question" validate:"notblank"`
	Correction     string `json:"correction"`
}

func (h *APIHandler) AddMistakeHandler(w http.ResponseWriter, r *http.Request) {
	var req AddMistakeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	m := &store.Mistake{
		Course:     req.Course,
		Topic:      req.Topic,
		Question:   req.Question,
		Correction: req.Correction,
	}
	if err := h.learningService.AddMistake(req.UserIdentifier, m); err != nil {
		log.Printf("Error recording mistake: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to record mistake")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"mistake": m})
}

func (h *APIHandler) DeleteMistakeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "mistakeID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mistake ID")
		return
	}
	identifier, ok := userIdentifier(w, r)
	if !ok {
		return
	}

	if err := h.learningService.DeleteMistake(identifier, id); err != nil {
		if errors.Is(err, core.ErrMistakeNotFound) {
			writeError(w, http.StatusNotFound, "Mistake not found")
			return
		}
		log.Printf("Error deleting mistake %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete mistake")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type StudyPlanResponse struct {
	Plan      json.RawMessage `json:"plan"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

func (h *APIHandler) GetStudyPlanHandler(w http.ResponseWriter, r *http.Request) {
	identifier, ok := userIdentifier(w, r)
	if !ok {
		return
	}
	plan, err := h.learningService.GetStudyPlan(identifier)
	if err != nil {
		log.Printf("Error loading study plan: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load study plan")
		return
	}
	if plan == nil {
		writeJSON(w, http.StatusOK, StudyPlanResponse{Plan: json.RawMessage("null")})
		return
	}
	writeJSON(w, http.StatusOK, StudyPlanResponse{Plan: plan.Plan, UpdatedAt: &plan.UpdatedAt})
}

type SaveStudyPlanRequest struct {
	UserIdentifier string          `json:"user_identifier" validate:"notblank"`
	Plan           json.RawMessage `json:"plan" validate:"required"`
}

func (h *APIHandler) SaveStudyPlanHandler(w http.ResponseWriter, r *http.Request) {
	var req SaveStudyPlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.learningService.SaveStudyPlan(req.UserIdentifier, req.Plan); err != nil {
		if errors.Is(err, core.ErrInvalidPlan) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Error saving study plan: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save study plan")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
