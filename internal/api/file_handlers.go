package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/files"
)

type UploadResponse struct {
	Success bool `json:"success"`
	*files.Uploaded
}

func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	// Leave headroom for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, files.MaxUploadSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large (max 16MB)")
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	uploaded, err := h.fileService.Upload(r.Context(), header.Filename, data)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, UploadResponse{Success: true, Uploaded: uploaded})
	case errors.Is(err, files.ErrDisallowedType), errors.Is(err, files.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "File type not allowed")
	case errors.Is(err, files.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "File too large (max 16MB)")
	default:
		log.Printf("Error storing upload %q: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, "Failed to store file")
	}
}

func (h *APIHandler) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.fileService.List(r.Context())
	if err != nil {
		log.Printf("Error listing files: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}
	if list == nil {
		list = []files.FileInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": list})
}

func (h *APIHandler) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if err := h.fileService.Delete(r.Context(), name); err != nil {
		if errors.Is(err, files.ErrNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		log.Printf("Error deleting file %q: %v", name, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "filename": name})
}
