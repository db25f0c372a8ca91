package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/scene-engine/pkg/scene"
)

// ScenePath is where the content endpoint is mounted.
const ScenePath = "/api/scene/"

// SceneResponse is the content endpoint's body.
type SceneResponse struct {
	Exists bool            `json:"exists"`
	Scene  json.RawMessage `json:"scene,omitempty"`
}

// HTTPSource fetches scenes from a remote content endpoint.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

var _ Source = (*HTTPSource)(nil)

func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (h *HTTPSource) Fetch(ctx context.Context, id string) (scene.Scene, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+ScenePath+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scene: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content server returned status %d", resp.StatusCode)
	}
	var body SceneResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !body.Exists {
		return nil, ErrNotFound
	}
	return scene.Parse(body.Scene)
}
