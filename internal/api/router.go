package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	CORSOrigins  []string
	AuthRequired bool
}

func NewRouter(apiHandler *APIHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", apiHandler.HealthHandler)
		r.Post("/login", apiHandler.LoginHandler)

		r.Group(func(r chi.Router) {
			if opts.AuthRequired {
				r.Use(apiHandler.AuthMiddleware)
			}

			// LLM proxy
			r.Post("/chat", apiHandler.ChatHandler)
			r.Post("/chat/stream", apiHandler.ChatStreamHandler)
			r.Post("/generate-study-guide", apiHandler.StudyGuideHandler)
			r.Post("/generate-practice-exam", apiHandler.PracticeExamHandler)
			r.Post("/weekly-review", apiHandler.WeeklyReviewHandler)
			r.Get("/query", apiHandler.QueryHandler)

			// Mistakes and study plan
			r.Get("/mistakes", apiHandler.ListMistakesHandler)
			r.Post("/mistakes", apiHandler.AddMistakeHandler)
			r.Delete("/mistakes/{mistakeID}", apiHandler.DeleteMistakeHandler)
			r.Get("/study-plan", apiHandler.GetStudyPlanHandler)
			r.Post("/study-plan", apiHandler.SaveStudyPlanHandler)

			// Files
			r.Post("/upload", apiHandler.UploadHandler)
			r.Get("/files", apiHandler.ListFilesHandler)
			r.Delete("/files/{filename}", apiHandler.DeleteFileHandler)
		})
	})

	return r
}
