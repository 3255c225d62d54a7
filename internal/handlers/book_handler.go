package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"bibliobalance/internal/catalog"
	"bibliobalance/internal/models"
	"bibliobalance/internal/service"
)

// BookHandler serves the signed-in user's library.
type BookHandler struct {
	bookService *service.BookService
	logger      *zap.Logger
}

// NewBookHandler creates a new book handler
func NewBookHandler(bookService *service.BookService, logger *zap.Logger) *BookHandler {
	return &BookHandler{bookService: bookService, logger: logger}
}

// List returns every book, or only those with the requested ?status=.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := SessionFromContext(r.Context()).UserID

	var (
		books []models.Book
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		books, err = h.bookService.ListByStatus(r.Context(), userID, models.BookStatus(status))
	} else {
		books, err = h.bookService.List(r.Context(), userID)
	}
	if err != nil {
		respondServiceError(w, h.logger, "Failed to list books", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(books))
}

func (h *BookHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.ListFavorites(r.Context(), SessionFromContext(r.Context()).UserID)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to list favorite books", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(books))
}

// Exists reports whether a book with ?title= and ?author= is in the library.
func (h *BookHandler) Exists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exists, err := h.bookService.Exists(r.Context(), SessionFromContext(r.Context()).UserID, q.Get("title"), q.Get("author"))
	if err != nil {
		respondServiceError(w, h.logger, "Failed to check book", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.Get(r.Context(), SessionFromContext(r.Context()).UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, "Failed to load book", err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var nb models.NewBook
	if err := readJSON(w, r, &nb); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	book, err := h.bookService.Create(r.Context(), SessionFromContext(r.Context()).UserID, nb)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to create book", err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// AddFromCatalog adds a catalog search hit to the library as want-to-read.
func (h *BookHandler) AddFromCatalog(w http.ResponseWriter, r *http.Request) {
	var hit catalog.Book
	if err := readJSON(w, r, &hit); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	book, err := h.bookService.AddFromCatalog(r.Context(), SessionFromContext(r.Context()).UserID, hit.NewBook())
	if err != nil {
		respondServiceError(w, h.logger, "Failed to add catalog book", err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// Update applies a partial update. Only allow-listed keys are read from the
// body; anything else is ignored.
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if err := readJSON(w, r, &raw); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	update, err := models.ParseBookUpdate(raw)
	if err != nil {
		respondServiceError(w, h.logger, "Invalid book update", err)
		return
	}

	book, err := h.bookService.Update(r.Context(), SessionFromContext(r.Context()).UserID, chi.URLParam(r, "id"), update)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to update book", err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type progressRequest struct {
	CurrentPage int `json:"currentPage"`
	PageCount   int `json:"pageCount"`
}

func (h *BookHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := readJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	book, err := h.bookService.UpdateProgress(r.Context(), SessionFromContext(r.Context()).UserID, chi.URLParam(r, "id"), req.CurrentPage, req.PageCount)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to update progress", err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type favoriteRequest struct {
	IsFavorite *bool `json:"isFavorite"`
}

func (h *BookHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := readJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}
	if req.IsFavorite == nil {
		respondWithFields(w, http.StatusUnprocessableEntity, "isFavorite is required", map[string]string{"isFavorite": "isFavorite is required"})
		return
	}

	book, err := h.bookService.ToggleFavorite(r.Context(), SessionFromContext(r.Context()).UserID, chi.URLParam(r, "id"), *req.IsFavorite)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to update favorite", err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.bookService.Delete(r.Context(), SessionFromContext(r.Context()).UserID, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, h.logger, "Failed to delete book", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
