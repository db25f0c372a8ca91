package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/scene-engine/internal/logger"
	"github.com/jwebster45206/scene-engine/internal/session"
	"github.com/jwebster45206/scene-engine/pkg/state"
)

type CreateGameRequest struct {
	Player string `json:"player"`
}

type ChooseRequest struct {
	Index *int `json:"index"`
}

type GotoRequest struct {
	To string `json:"to"`
}

// GameResponse is the body returned by every game endpoint.
type GameResponse struct {
	ID           uuid.UUID         `json:"id"`
	Player       string            `json:"player"`
	View         state.View        `json:"view"`
	RuntimeError *RuntimeErrorBody `json:"runtime_error,omitempty"`
}

// RuntimeErrorBody describes a hook or template that failed during the action.
type RuntimeErrorBody struct {
	Scene      string `json:"scene"`
	Source     string `json:"source"`
	Expression string `json:"expression"`
	Message    string `json:"message"`
}

// GameHandler exposes server-side sessions.
//
//	POST   /v1/games
//	GET    /v1/games/{id}
//	DELETE /v1/games/{id}
//	POST   /v1/games/{id}/choose
//	POST   /v1/games/{id}/goto
//	GET    /v1/games/{id}/events  (delegated to events, when set)
type GameHandler struct {
	sessions *session.Manager
	events   http.Handler
	logger   *slog.Logger
}

func NewGameHandler(sessions *session.Manager, events http.Handler, logger *slog.Logger) *GameHandler {
	return &GameHandler{sessions: sessions, events: events, logger: logger}
}

func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 2 || pathParts[0] != "v1" || pathParts[1] != "games" {
		writeError(w, h.logger, http.StatusNotFound, "Not found.")
		return
	}

	if len(pathParts) == 2 {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	id, err := uuid.Parse(pathParts[2])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid game ID format.")
		return
	}

	switch {
	case len(pathParts) == 4 && pathParts[3] == "events":
		if h.events == nil {
			writeError(w, h.logger, http.StatusNotFound, "Event streaming is disabled.")
			return
		}
		h.events.ServeHTTP(w, r)
	case len(pathParts) == 3 && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case len(pathParts) == 3 && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case len(pathParts) == 4 && pathParts[3] == "choose" && r.Method == http.MethodPost:
		h.handleChoose(w, r, id)
	case len(pathParts) == 4 && pathParts[3] == "goto" && r.Method == http.MethodPost:
		h.handleGoto(w, r, id)
	case len(pathParts) <= 4:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed.")
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found.")
	}
}

func (h *GameHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("Invalid create request", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body.")
			return
		}
	}

	snap, err := h.sessions.Create(r.Context(), req.Player)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toGameResponse(snap))
}

func (h *GameHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	snap, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toGameResponse(snap))
}

func (h *GameHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		h.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) handleChoose(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req ChooseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body.")
		return
	}
	if req.Index == nil {
		writeError(w, h.logger, http.StatusBadRequest, "Field 'index' is required.")
		return
	}

	snap, err := h.sessions.Choose(r.Context(), id, *req.Index)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toGameResponse(snap))
}

func (h *GameHandler) handleGoto(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req GotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body.")
		return
	}
	if req.To == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Field 'to' is required.")
		return
	}

	snap, err := h.sessions.Navigate(r.Context(), id, req.To)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toGameResponse(snap))
}

func (h *GameHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "Game not found.")
	case errors.Is(err, state.ErrUnknownOption):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, state.ErrOptionUnavailable):
		writeError(w, h.logger, http.StatusConflict, err.Error())
	default:
		logger.WithError(h.logger, err).Error("Game action failed")
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error.")
	}
}

func toGameResponse(snap *session.Snapshot) GameResponse {
	resp := GameResponse{ID: snap.ID, Player: snap.Player, View: snap.View}
	if snap.Error != nil {
		resp.RuntimeError = &RuntimeErrorBody{
			Scene:      snap.Error.Scene,
			Source:     snap.Error.Source,
			Expression: snap.Error.Expression,
		}
		if snap.Error.Err != nil {
			resp.RuntimeError.Message = snap.Error.Err.Error()
		}
	}
	return resp
}
