package http

import (
	"encoding/json"
	"log"
	"net/http"

	"sheets-quiz-service/internal/app"
	"sheets-quiz-service/internal/domain"
)

// QuizHandler serves the REST surface: quiz content on GET, result acceptance
// on POST.
type QuizHandler struct {
	service *app.QuizService
}

func NewQuizHandler(service *app.QuizService) *QuizHandler {
	return &QuizHandler{service: service}
}

type errorResponse struct {
	Error string `json:"error"`
}

type restrictedResponse struct {
	Error            string `json:"error"`
	IsRestricted     bool   `json:"isRestricted"`
	AlreadyCompleted bool   `json:"alreadyCompleted,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// ServeQuiz routes /api/quiz by method.
func (h *QuizHandler) ServeQuiz(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getQuiz(w, r)
	case http.MethodPost:
		h.postResult(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

func (h *QuizHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	content, admission, err := h.service.GetQuiz(r.Context(), email)
	if err != nil {
		log.Printf("fetch quiz failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if !admission.Allowed {
		writeJSON(w, http.StatusForbidden, restrictedResponse{
			Error:            admission.Reason,
			IsRestricted:     admission.Restricted,
			AlreadyCompleted: admission.AlreadyCompleted,
		})
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (h *QuizHandler) postResult(w http.ResponseWriter, r *http.Request) {
	var result domain.QuizResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid result payload"})
		return
	}

	admission, err := h.service.SubmitResult(r.Context(), result)
	if err != nil {
		log.Printf("save result failed for %s: %v", result.UserEmail, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if !admission.Allowed {
		writeJSON(w, http.StatusForbidden, restrictedResponse{
			Error:            admission.Reason,
			IsRestricted:     admission.Restricted,
			AlreadyCompleted: admission.AlreadyCompleted,
		})
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
