package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/linemk/shop-backend/internal/app"
	"github.com/linemk/shop-backend/internal/app/handlers"
	"github.com/linemk/shop-backend/internal/cache"
	"github.com/linemk/shop-backend/internal/config"
	"github.com/linemk/shop-backend/internal/events"
	"github.com/linemk/shop-backend/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shop-backend/internal/lib/logger"
	"github.com/linemk/shop-backend/internal/lib/logger/handlers/urllog"
	"github.com/linemk/shop-backend/internal/lib/metrics"
	"github.com/linemk/shop-backend/internal/service"
	"github.com/linemk/shop-backend/internal/storage"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	// локальный .env не обязателен
	_ = godotenv.Load()

	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(ctx, log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error("failed to close app", slog.Any("error", err))
		}
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	// кэш каталога и отзыв токенов живут в redis, без него работают заглушки
	var (
		catalogCache service.CatalogCache = cache.NoopCatalogCache{}
		denylist     interface {
			service.TokenRevoker
			jwtmiddleware.RevocationChecker
		} = cache.NoopTokenDenylist{}
	)
	if application.Redis != nil {
		catalogCache = cache.NewCatalogCache(application.Redis, cfg.Redis.CatalogTTL)
		denylist = cache.NewTokenDenylist(application.Redis)
	}

	g, gctx := errgroup.WithContext(ctx)

	// продюсер останавливается только после того, как сервер дождался всех запросов
	producerCtx, stopProducer := context.WithCancel(context.Background())
	defer stopProducer()

	var publisher service.OrderPublisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(log, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Buffer)
		producer.Start(producerCtx)
		g.Go(func() error {
			producer.Wait()
			log.Info("event producer stopped")
			return nil
		})
		publisher = producer
	} else {
		log.Warn("kafka brokers are not configured, order events are disabled")
	}

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	favoriteRepo := storage.NewFavoriteRepository(application.DB)

	tokenTTL := time.Duration(cfg.JWT.TokenTTL) * time.Minute
	authService := service.NewAuthService(log, userRepo, denylist, tokenTTL)
	profileService := service.NewProfileService(log, userRepo)
	catalogService := service.NewCatalogService(log, productRepo, catalogCache)
	reservationService := service.NewReservationService(log, application.DB, productRepo, cartRepo, catalogCache, m)
	checkoutService := service.NewCheckoutService(log, application.DB, cartRepo, orderRepo, publisher, m)
	cartService := service.NewCartService(log, cartRepo)
	orderService := service.NewOrderService(log, orderRepo)
	favoriteService := service.NewFavoriteService(log, productRepo, favoriteRepo)

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Get("/ping", handlers.PingHandler(log))
	router.Post("/register", handlers.RegisterHandler(log, authService))
	router.Post("/login", handlers.LoginHandler(log, authService))
	router.Get("/products", handlers.ProductsHandler(log, catalogService))
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware(log, denylist))

		r.Post("/logout", handlers.LogoutHandler(log, authService))
		r.Get("/profile", handlers.ProfileHandler(log, profileService))
		r.Put("/profile", handlers.UpdateProfileHandler(log, profileService))

		// корзина: каждая операция сразу резервирует или возвращает остаток
		r.Get("/cart", handlers.CartHandler(log, cartService))
		r.Post("/cart/add", handlers.AddToCartHandler(log, reservationService))
		r.Delete("/cart/remove/{id}", handlers.RemoveFromCartHandler(log, reservationService))
		r.Patch("/cart/update/{id}", handlers.UpdateCartHandler(log, reservationService))
		r.Post("/checkout", handlers.CheckoutHandler(log, checkoutService))

		r.Get("/orders", handlers.OrdersHandler(log, orderService))
		r.Get("/favorites", handlers.FavoritesHandler(log, favoriteService))
		r.Post("/favorites/toggle/{productId}", handlers.ToggleFavoriteHandler(log, favoriteService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	g.Go(func() error {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "server error")
		}
		return nil
	})

	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopProducer()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", slog.Any("error", err))
		_ = application.Close()
		os.Exit(1)
	}
	log.Info("server gracefully stopped")
}
