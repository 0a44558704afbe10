package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/shop-backend/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shop-backend/internal/service"
)

// PingHandler обрабатывает GET /ping
func PingHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, http.StatusOK, map[string]bool{"ok": true})
	}
}

// ProductsHandler обрабатывает GET /products?page=&per_page=
func ProductsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProductsHandler"
		logger := log.With(slog.String("op", op))

		page, err := catalog.ListProducts(r.Context(), pageQuery(r, "page"), pageQuery(r, "per_page"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, PageResponse[ProductResponse]{
			Data: toProductResponses(page.Products),
			Meta: PageMeta{Page: page.Page, PerPage: page.PerPage, Total: page.Total},
		})
	}
}

// OrdersHandler обрабатывает GET /orders?page=
func OrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		page, err := orderService.History(r.Context(), userID, pageQuery(r, "page"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		data := make([]OrderResponse, 0, len(page.Orders))
		for _, o := range page.Orders {
			data = append(data, toOrderResponse(o))
		}
		writeJSON(w, logger, http.StatusOK, PageResponse[OrderResponse]{
			Data: data,
			Meta: PageMeta{Page: page.Page, PerPage: page.PerPage, Total: page.Total},
		})
	}
}

type ToggleFavoriteResponse struct {
	Favorited bool `json:"favorited"`
}

// FavoritesHandler обрабатывает GET /favorites?page=
func FavoritesHandler(log *slog.Logger, favorites service.FavoriteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.FavoritesHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		page, err := favorites.List(r.Context(), userID, pageQuery(r, "page"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, PageResponse[ProductResponse]{
			Data: toProductResponses(page.Products),
			Meta: PageMeta{Page: page.Page, PerPage: page.PerPage, Total: page.Total},
		})
	}
}

// ToggleFavoriteHandler обрабатывает POST /favorites/toggle/{productId}
func ToggleFavoriteHandler(log *slog.Logger, favorites service.FavoriteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ToggleFavoriteHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		productID, ok := idParam(r, "productId")
		if !ok {
			writeError(w, logger, http.StatusNotFound, "Product not found")
			return
		}

		favorited, err := favorites.Toggle(r.Context(), userID, productID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, ToggleFavoriteResponse{Favorited: favorited})
	}
}
