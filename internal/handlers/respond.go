package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"geminichat-backend/internal/middleware"
	"geminichat-backend/internal/models"
	"geminichat-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: middleware.GetRequestID(r),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: middleware.GetRequestID(r),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation   *services.ValidationError
		conflict     *services.ConflictError
		notFound     *services.NotFoundError
		unauthorized *services.UnauthorizedError
		rateLimited  *services.RateLimitError
		unavailable  *services.UnavailableError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validation.Fields, r))
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", conflict.Message, r))
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFound.Message, r))
	case errors.As(err, &unauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthorized.Message, r))
	case errors.As(err, &rateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", rateLimited.Message, r))
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("SERVICE_UNAVAILABLE", unavailable.Message, r))
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled service error")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
