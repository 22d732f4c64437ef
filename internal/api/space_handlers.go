package api

import (
	"net/http"

	"github.com/cosmoexplorer/backend/internal/pkg/logger"
)

// ISSNow handles GET /api/iss-now, proxying the live ISS position.
func (h *Handlers) ISSNow(w http.ResponseWriter, r *http.Request) {
	pos, err := h.iss.FetchPosition(r.Context())
	if err != nil {
		logger.Error("ISS position fetch failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Unable to fetch ISS position right now.")
		return
	}
	respondJSON(w, http.StatusOK, pos)
}

// News handles GET /api/news, serving the cached astronomy headlines.
func (h *Handlers) News(w http.ResponseWriter, r *http.Request) {
	items, err := h.news.Headlines(r.Context())
	if err != nil {
		logger.Error("news fetch failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Unable to fetch news right now.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}
