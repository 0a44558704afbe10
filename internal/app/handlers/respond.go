package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/linemk/shop-backend/internal/service"
)

var validate = validator.New()

// ErrorResponse — тело ответа с ошибкой
type ErrorResponse struct {
	Message   string `json:"message"`
	Available *int   `json:"available,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Message: msg})
}

// writeServiceError переводит вид ошибки сервиса в код ответа.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var stockErr *service.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		available := stockErr.Available
		writeJSON(w, logger, http.StatusUnprocessableEntity, ErrorResponse{Message: "Insufficient stock", Available: &available})
	case errors.Is(err, service.ErrProductInactive):
		writeError(w, logger, http.StatusNotFound, "Product not found")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, logger, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrEmptyCart):
		writeError(w, logger, http.StatusBadRequest, "Cart empty")
	case errors.Is(err, service.ErrValidation):
		writeError(w, logger, http.StatusBadRequest, "validation error")
	case errors.Is(err, service.ErrLockTimeout):
		writeError(w, logger, http.StatusConflict, "Resource is busy, please try again")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, logger, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, logger, http.StatusUnprocessableEntity, "The email has already been taken")
	default:
		writeError(w, logger, http.StatusInternalServerError, "internal server error")
	}
}

// decodeAndValidate читает JSON-тело и проверяет теги validate.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logger.Error("invalid request: decoding error", slog.Any("error", err))
		writeError(w, logger, http.StatusBadRequest, "invalid request")
		return false
	}
	if err := validate.Struct(req); err != nil {
		logger.Error("invalid request: validation error", slog.Any("error", err))
		writeError(w, logger, http.StatusBadRequest, "validation error")
		return false
	}
	return true
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func pageQuery(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

// PageMeta — параметры страницы в ответах со списками
type PageMeta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

type PageResponse[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}
