package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"bibliobalance/internal/models"
	"bibliobalance/internal/service"
	"bibliobalance/internal/validation"
)

// StatsHandler serves reading statistics and challenges.
type StatsHandler struct {
	statsService *service.StatsService
	logger       *zap.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *service.StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{statsService: statsService, logger: logger}
}

// Get returns the user's stats, recomputed from the library.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.statsService.GetStats(r.Context(), SessionFromContext(r.Context()).UserID)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to load reading stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Update stores the client-tracked fields (reading time, streak).
func (h *StatsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var u models.ReadingStatsUpdate
	if err := readJSON(w, r, &u); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	st, err := h.statsService.UpdateExternalStats(r.Context(), SessionFromContext(r.Context()).UserID, u)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to update reading stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *StatsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID := SessionFromContext(r.Context()).UserID
	if err := h.statsService.Refresh(r.Context(), userID); err != nil {
		respondServiceError(w, h.logger, "Failed to refresh reading stats", err)
		return
	}

	st, err := h.statsService.GetStats(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to load reading stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *StatsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	months, err := h.statsService.MonthlyBreakdown(r.Context(), SessionFromContext(r.Context()).UserID, year)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to build monthly breakdown", err)
		return
	}
	writeJSON(w, http.StatusOK, months)
}

func (h *StatsHandler) Genres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.statsService.GenreDistribution(r.Context(), SessionFromContext(r.Context()).UserID)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to build genre distribution", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(genres))
}

// Challenge returns the challenge for ?year=, creating the default one when
// the user has none.
func (h *StatsHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	c, err := h.statsService.GetOrCreateChallenge(r.Context(), SessionFromContext(r.Context()).UserID, year)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to load reading challenge", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *StatsHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.statsService.ListChallenges(r.Context(), SessionFromContext(r.Context()).UserID)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to list reading challenges", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(challenges))
}

func (h *StatsHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var nc models.NewChallenge
	if err := readJSON(w, r, &nc); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	c, err := h.statsService.CreateChallenge(r.Context(), SessionFromContext(r.Context()).UserID, nc)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to create reading challenge", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type targetRequest struct {
	Target int `json:"target"`
}

// UpdateTarget changes the target of the current year's challenge.
func (h *StatsHandler) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := readJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	c, err := h.statsService.UpdateChallengeTarget(r.Context(), SessionFromContext(r.Context()).UserID, req.Target)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to update challenge target", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// yearParam reads ?year=. A missing year is 0, meaning the current year.
func yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		verr := validation.NewError("year", "year must be a four digit year")
		respondWithFields(w, http.StatusUnprocessableEntity, verr.Error(), verr.Fields())
		return 0, false
	}
	return year, true
}
