package api

import (
	"log"
	"net/http"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/core"
)

type GenerateRequest struct {
	CourseName        string   `json:"course_name" validate:"notblank"`
	Topic             string   `json:"topic"`
	DocumentFilenames []string `json:"document_filenames"`
}

func (r GenerateRequest) toCore() core.GenerateRequest {
	return core.GenerateRequest{CourseName: r.CourseName, Topic: r.Topic, DocumentFilenames: r.DocumentFilenames}
}

func (h *APIHandler) StudyGuideHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	text, err := h.generationService.StudyGuide(r.Context(), req.toCore())
	if err != nil {
		log.Printf("Error generating study guide for %q: %v", req.CourseName, err)
		writeError(w, http.StatusInternalServerError, "Failed to generate study guide")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"study_guide": text})
}

func (h *APIHandler) PracticeExamHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	text, err := h.generationService.PracticeExam(r.Context(), req.toCore())
	if err != nil {
		log.Printf("Error generating practice exam for %q: %v", req.CourseName, err)
		writeError(w, http.StatusInternalServerError, "Failed to generate practice exam")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"practice_exam": text})
}

type WeeklyReviewRequest struct {
	UserIdentifier string `json:"user_identifier" validate:"notblank"`
	Course         string `json:"course"`
}

func (h *APIHandler) WeeklyReviewHandler(w http.ResponseWriter, r *http.Request) {
	var req WeeklyReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	review, err := h.generationService.WeeklyReview(r.Context(), req.UserIdentifier, req.Course)
	if err != nil {
		log.Printf("Error generating weekly review: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate weekly review")
		return
	}
	writeJSON(w, http.StatusOK, review)
}
