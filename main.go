package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/fakhrymubarak/weather-forecast-app/internal/config"
	"github.com/fakhrymubarak/weather-forecast-app/internal/handler"
	"github.com/fakhrymubarak/weather-forecast-app/internal/metrics"
	"github.com/fakhrymubarak/weather-forecast-app/internal/middleware"
	"github.com/fakhrymubarak/weather-forecast-app/internal/redis"
	"github.com/fakhrymubarak/weather-forecast-app/internal/repository"
	"github.com/fakhrymubarak/weather-forecast-app/internal/service"
)

const metricsNamespace = "weather_app"

type app struct {
	controller *service.Controller
	metrics    *metrics.Collector
	router     http.Handler
}

// newPublisher returns the Redis state publisher, or nil when Redis is disabled or unreachable.
func newPublisher(ctx context.Context, logger *zap.SugaredLogger) service.StatePublisher {
	if !config.IsRedisEnabled() {
		logger.Infow("Redis state publishing disabled")
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, config.GetRedisPublishTimeout())
	defer cancel()
	if err := redis.Ping(pingCtx); err != nil {
		logger.Warnw("Redis unreachable, state publishing disabled", "addr", config.GetRedisAddr(), "error", err)
		return nil
	}
	return redis.NewStatePublisherFromConfig()
}

func newApp(logger *zap.SugaredLogger, publisher service.StatePublisher, repoOpts ...repository.Option) *app {
	m := metrics.NewCollector(metricsNamespace)

	opts := append([]repository.Option{
		repository.WithMetrics(m),
		repository.WithLogger(logger),
	}, repoOpts...)
	weatherRepo := repository.NewWeatherRepository(opts...)

	ctrlOpts := service.DefaultOptions()
	ctrlOpts.Publisher = publisher
	ctrlOpts.Metrics = m
	ctrlOpts.Logger = logger
	ctrl := service.NewController(weatherRepo, ctrlOpts)

	weatherHandler := handler.NewWeatherHandler(ctrl, logger)
	return &app{
		controller: ctrl,
		metrics:    m,
		router:     newRouter(weatherHandler, m, logger),
	}
}

func newRouter(h *handler.WeatherHandler, m *metrics.Collector, logger *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	return r
}

// loadDefaultCity fetches the startup forecast. Failures are already reflected in the state.
func loadDefaultCity(ctrl *service.Controller, logger *zap.SugaredLogger) {
	city := config.GetDefaultCity()
	if err := ctrl.FetchDefault(context.Background(), city); err != nil && !errors.Is(err, service.ErrSuperseded) {
		logger.Warnw("Default city forecast failed", "city", city, "error", err)
	}
}

func main() {
	logger := config.GetLogger()
	defer func() { _ = logger.Sync() }()

	if config.GetWeatherAPIKey() == "" {
		logger.Warnw("WEATHERAPI_KEY is not set, provider requests will fail")
	}

	a := newApp(logger, newPublisher(context.Background(), logger))
	defer a.controller.Close()
	go loadDefaultCity(a.controller, logger)

	port := config.GetServerPort()
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: config.GetServerTimeout("read_header_timeout"),
		ReadTimeout:       config.GetServerTimeout("read_timeout"),
		WriteTimeout:      config.GetServerTimeout("write_timeout"),
		IdleTimeout:       config.GetServerTimeout("idle_timeout"),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infow("Weather forecast server started", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Infow("Shutting down", "signal", sig.String())
	case err := <-serverErr:
		logger.Errorw("Server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorw("Shutdown error", "error", err)
	}
}
