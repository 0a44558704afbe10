package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/shop-backend/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shop-backend/internal/service"
)

// CheckoutHandler обрабатывает POST /checkout
func CheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		order, err := checkoutService.Checkout(r.Context(), userID)
		if err != nil {
			logger.Warn("checkout failed", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, toOrderResponse(order))
	}
}
