package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	app_errors "ryan-quiz/backend/internal/errors"
	"ryan-quiz/backend/internal/interfaces"
	"ryan-quiz/backend/internal/model"
	"ryan-quiz/backend/internal/service"
)

const maxBodyBytes = 16 << 10

// SessionResponse is a session as sent to clients, with its derived phase.
type SessionResponse struct {
	*model.Session
	Phase model.Phase `json:"phase" example:"asking"`
}

// SubmitResponse is the session after a submission plus what it appended.
type SubmitResponse struct {
	Session  SessionResponse `json:"session"`
	Appended []model.Message `json:"appended"`
}

func newSessionResponse(s *model.Session) SessionResponse {
	return SessionResponse{Session: s, Phase: s.State.Phase()}
}

// SessionHandler serves the personality test sessions.
type SessionHandler struct {
	service interfaces.ConversationService
}

func NewSessionHandler(svc interfaces.ConversationService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// ListQuestions godoc
// @Summary      List questions
// @Description  Returns the personality test questions in the order they are asked.
// @Tags         Questions
// @Produce      json
// @Success      200  {object}  QuestionsResponse
// @Router       /v1/questions [get]
func (h *SessionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, QuestionsResponse{Questions: h.service.Questions()})
}

// CreateSession godoc
// @Summary      Create a session
// @Description  Starts a new conversation holding only the welcome message.
// @Tags         Sessions
// @Produce      json
// @Success      201  {object}  SessionResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /v1/sessions [post]
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.CreateSession(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newSessionResponse(session))
}

// GetSession godoc
// @Summary      Get a session
// @Description  Returns the full message history and state of a session.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {object}  SessionResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID} [get]
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newSessionResponse(session))
}

// DeleteSession godoc
// @Summary      Delete a session
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID} [delete]
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// SubmitMessage godoc
// @Summary      Send a message
// @Description  Submits user text to a session. "start" or "begin" enters the personality test; otherwise the
// @Description  reply is resolved before responding, from the model or, during the test, a canned fallback.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string                  true  "Session ID"
// @Param        message    body  service.SubmitRequest   true  "Message text"
// @Success      200  {object}  SubmitResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /v1/sessions/{sessionID}/messages [post]
func (h *SessionHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request body", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, err)
		return
	}

	res, err := h.service.Submit(r.Context(), chi.URLParam(r, "sessionID"), req.Text)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SubmitResponse{
		Session:  newSessionResponse(res.Session),
		Appended: res.Appended,
	})
}
