package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bibliobalance/internal/catalog"
)

// CatalogHandler proxies book lookups to Open Library.
type CatalogHandler struct {
	client *catalog.Client
	logger *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(client *catalog.Client, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{client: client, logger: logger}
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	books, err := h.client.Search(r.Context(), r.URL.Query().Get("q"), limitParam(r))
	if err != nil {
		respondServiceError(w, h.logger, "Catalog search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *CatalogHandler) Genres(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.client.Genres())
}

func (h *CatalogHandler) ByGenre(w http.ResponseWriter, r *http.Request) {
	books, err := h.client.ByGenre(r.Context(), chi.URLParam(r, "genre"), limitParam(r))
	if err != nil {
		respondServiceError(w, h.logger, "Catalog genre lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *CatalogHandler) Popular(w http.ResponseWriter, r *http.Request) {
	books, err := h.client.Popular(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, "Catalog popular lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// limitParam reads ?limit=; the catalog client applies the default and cap.
func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
