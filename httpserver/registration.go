package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/nildb-agentkit/interfaces"
)

// RegistrationHandler answers POST /api/config with a fixed node list, the way
// the public registration service does for a configured organization.
type RegistrationHandler struct {
	nodes []interfaces.NodeConfig
	log   *slog.Logger
}

func NewRegistrationHandler(nodes []interfaces.NodeConfig, log *slog.Logger) *RegistrationHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RegistrationHandler{nodes: nodes, log: log}
}

func (h *RegistrationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/config", h.HandleConfig)
}

// HandleConfig returns {"nodes": [{"url", "did"}, ...]} for any organization DID.
func (h *RegistrationHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrgDID string `json:"org_did"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.OrgDID == "" {
		http.Error(w, "Missing org_did", http.StatusBadRequest)
		return
	}

	h.log.Info("Registration requested", slog.String("org", req.OrgDID), slog.Int("nodes", len(h.nodes)))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"nodes": h.nodes}); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
