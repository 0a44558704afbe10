package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/shop-backend/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shop-backend/internal/service"
)

type AddToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

type UpdateCartRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type UpdateCartResponse struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type CartResponse struct {
	Items    []CartItemResponse `json:"items"`
	Subtotal string             `json:"subtotal"`
}

// CartHandler обрабатывает GET /cart
func CartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		view, err := cartService.View(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		resp := CartResponse{Items: make([]CartItemResponse, 0, len(view.Lines)), Subtotal: view.Subtotal.StringFixed(2)}
		for _, line := range view.Lines {
			resp.Items = append(resp.Items, toCartItemResponse(line))
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

// AddToCartHandler обрабатывает POST /cart/add
func AddToCartHandler(log *slog.Logger, reservations service.ReservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req AddToCartRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		line, err := reservations.Reserve(r.Context(), userID, req.ProductID, req.Quantity)
		if err != nil {
			logger.Warn("failed to add to cart", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toCartItemResponse(line))
	}
}

// RemoveFromCartHandler обрабатывает DELETE /cart/remove/{id}
func RemoveFromCartHandler(log *slog.Logger, reservations service.ReservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveFromCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		itemID, ok := idParam(r, "id")
		if !ok {
			writeError(w, logger, http.StatusNotFound, "Not found")
			return
		}

		if err := reservations.Release(r.Context(), userID, itemID); err != nil {
			logger.Warn("failed to remove from cart", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// UpdateCartHandler обрабатывает PATCH /cart/update/{id}; количество меньше 1 удаляет строку
func UpdateCartHandler(log *slog.Logger, reservations service.ReservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		itemID, ok := idParam(r, "id")
		if !ok {
			writeError(w, logger, http.StatusNotFound, "Not found")
			return
		}

		var req UpdateCartRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		res, err := reservations.Adjust(r.Context(), userID, itemID, *req.Quantity)
		if err != nil {
			logger.Warn("failed to update cart", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}
		if res.Removed {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, logger, http.StatusOK, UpdateCartResponse{ID: res.Item.ID, Quantity: res.Item.Quantity})
	}
}
