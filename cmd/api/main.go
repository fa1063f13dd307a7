package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medagenda/or-assistant/internal/api/router"
	appconfig "github.com/medagenda/or-assistant/internal/config"
	"github.com/medagenda/or-assistant/internal/conversation"
	"github.com/medagenda/or-assistant/internal/directory"
	"github.com/medagenda/or-assistant/internal/http/handlers"
	"github.com/medagenda/or-assistant/internal/observability/metrics"
	"github.com/medagenda/or-assistant/internal/reservation"
	"github.com/medagenda/or-assistant/internal/schedule"
	"github.com/medagenda/or-assistant/internal/session"
	"github.com/medagenda/or-assistant/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting or-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	// Catalog reads and reservation-sheet reads share one HTTP client and
	// one TTL cache.
	sheets := directory.NewSheetClient(cfg.SheetsFetchTimeout, logger)
	cache := directory.NewCache(cfg.SheetsCacheTTL)
	catalogs := directory.NewService(sheets, cache, directory.URLs{
		Doctors:    cfg.SheetDoctorsURL,
		Rooms:      cfg.SheetRoomsURL,
		Procedures: cfg.SheetProceduresURL,
	}, logger)

	local := reservation.NewLocalStore(cfg.LocalReservationsFile)
	remote := reservation.NewRemoteClient(cfg.BookingEndpoint, cfg.BookingWriteTimeout, cfg.BookingCancelTimeout, logger)
	reservations := reservation.NewRepository(sheets, cache, cfg.SheetReservationsURL, catalogs, local, remote, loc, logger)

	scheduler := schedule.NewService(reservations, loc, cfg.SlotBufferMin)
	sessions := buildSessionStore(cfg, logger)

	convMetrics := metrics.NewConversationMetrics(prometheus.DefaultRegisterer)

	engine := conversation.NewEngine(conversation.Config{
		Directory:    catalogs,
		Scheduler:    scheduler,
		Reservations: reservations,
		Sessions:     sessions,
		Location:     loc,
		Year:         cfg.CurrentYear,
		Logger:       logger,
		Metrics:      convMetrics,
	})

	whatsapp := handlers.NewWhatsAppHandler(engine, cfg.TwilioWebhookSecret, logger, convMetrics)

	r := router.New(&router.Config{
		Logger:          logger,
		WhatsAppHandler: whatsapp,
		MetricsHandler:  promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// buildSessionStore picks the session backend: Redis when configured, the
// in-process map otherwise.
func buildSessionStore(cfg *appconfig.Config, logger *logging.Logger) session.Store {
	if cfg.SessionBackend != "redis" {
		logger.Info("using in-memory session store")
		return session.NewMemoryStore()
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	logger.Info("using redis session store", "addr", cfg.RedisAddr)
	return session.NewRedisStore(redis.NewClient(opts), cfg.SessionTTL)
}
