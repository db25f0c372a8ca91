package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/scene-engine/internal/content"
)

// SceneHandler serves scene documents to remote players.
// GET /api/scene/{namespace}/{name}
type SceneHandler struct {
	source content.Source
	logger *slog.Logger
}

func NewSceneHandler(source content.Source, logger *slog.Logger) *SceneHandler {
	return &SceneHandler{source: source, logger: logger}
}

func (h *SceneHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, content.ScenePath)
	if !content.ValidID(id) {
		writeJSON(w, h.logger, http.StatusOK, content.SceneResponse{Exists: false})
		return
	}

	s, err := h.source.Fetch(r.Context(), id)
	if errors.Is(err, content.ErrNotFound) {
		h.logger.Debug("Scene not found", "scene_id", id)
		writeJSON(w, h.logger, http.StatusOK, content.SceneResponse{Exists: false})
		return
	}
	if err != nil {
		h.logger.Error("Failed to load scene", "scene_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load scene")
		return
	}

	doc, err := json.Marshal(s)
	if err != nil {
		h.logger.Error("Failed to marshal scene", "scene_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to encode scene")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, content.SceneResponse{Exists: true, Scene: doc})
}
