package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"bibliobalance/internal/catalog"
	"bibliobalance/internal/models"
	"bibliobalance/internal/service"
	"bibliobalance/internal/validation"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// readJSON decodes a request body into dst. Bodies are capped at maxBodyBytes.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func respondWithError(w http.ResponseWriter, logger *zap.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			logger.Error(logMsg, zap.Error(err))
		} else {
			logger.Debug(logMsg, zap.Error(err))
		}
	}
	writeJSON(w, status, errorResponse{Error: userMsg})
}

func respondWithFields(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	writeJSON(w, status, errorResponse{Error: msg, Fields: fields})
}

// respondServiceError maps a service or catalog error onto an HTTP status.
// Anything unrecognised is logged and reported as a generic 500.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, logMsg string, err error) {
	var reqErr *validation.RequestValidationError
	var fieldErr validation.ValidationError
	var updateErr *models.FieldError

	switch {
	case errors.As(err, &reqErr):
		respondWithFields(w, http.StatusUnprocessableEntity, reqErr.Error(), reqErr.Fields())
	case errors.As(err, &fieldErr):
		respondWithFields(w, http.StatusUnprocessableEntity, fieldErr.Message, map[string]string{fieldErr.Field: fieldErr.Message})
	case errors.As(err, &updateErr):
		respondWithFields(w, http.StatusBadRequest, updateErr.Error(), map[string]string{updateErr.Field: updateErr.Message})
	case errors.Is(err, service.ErrInvalidTarget):
		respondWithFields(w, http.StatusUnprocessableEntity, err.Error(), map[string]string{"target": err.Error()})
	case errors.Is(err, service.ErrBookNotFound), errors.Is(err, service.ErrProfileNotFound):
		respondWithError(w, logger, http.StatusNotFound, err.Error(), logMsg, nil)
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrBookExists),
		errors.Is(err, service.ErrChallengeExists):
		respondWithError(w, logger, http.StatusConflict, err.Error(), logMsg, nil)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		respondWithError(w, logger, http.StatusUnauthorized, err.Error(), logMsg, nil)
	case errors.Is(err, catalog.ErrEmptyQuery):
		respondWithFields(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, catalog.ErrUnavailable):
		respondWithError(w, logger, http.StatusBadGateway, "Book catalog is unavailable", logMsg, err)
	case errors.Is(err, context.Canceled):
		respondWithError(w, logger, statusClientClosedRequest, ErrRequestCanceled, logMsg, err)
	default:
		respondWithError(w, logger, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}
