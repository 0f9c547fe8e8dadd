package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventboard/project/internal/app/boardweb"
	"github.com/eventboard/project/internal/app/eventstore"
	"github.com/eventboard/project/internal/board"
	"github.com/eventboard/project/internal/platform/dbpool"
	"github.com/eventboard/project/internal/platform/env"
	"github.com/eventboard/project/internal/platform/logging"
	"github.com/eventboard/project/internal/platform/metrics"
	"github.com/eventboard/project/internal/platform/natsutil"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

func main() {
	if err := env.Load(); err != nil {
		panic(err)
	}
	logger, err := logging.New(env.String("LOG_LEVEL", "info"))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := env.String("BOARD_ADDR", env.DefaultBoardAddr)
	uiOrigin := env.String("UI_ORIGIN", "")
	shutdownTimeout := env.Duration("SHUTDOWN_TIMEOUT", 10*time.Second)

	loc := env.Location("BOARD_TIMEZONE")
	locale, err := language.Parse(env.String("BOARD_LOCALE", env.DefaultLocale))
	if err != nil {
		logger.Warn("invalid BOARD_LOCALE, using default", zap.Error(err))
		locale = language.MustParse(env.DefaultLocale)
	}
	engine := board.NewEngine(loc, locale)

	pool, err := dbpool.New(runCtx, env.String("DATABASE_URL", env.DefaultDatabaseURL))
	if err != nil {
		logger.Fatal("postgres pool", zap.Error(err))
	}
	defer pool.Close()

	repository := eventstore.NewPostgresRepository(pool)
	if err := dbpool.WaitReady(runCtx, pool, logger, 30*time.Second, repository); err != nil {
		logger.Fatal("postgres not ready", zap.Error(err))
	}

	client, err := natsutil.ConnectJetStreamWithRetry(env.String("NATS_URL", env.DefaultNATSURL), env.Duration("NATS_CONNECT_TIMEOUT", 20*time.Second))
	if err != nil {
		logger.Fatal("nats connect", zap.Error(err))
	}
	defer client.Close()

	publisher := natsutil.JetStreamPublisher{JS: client.JS}
	store := eventstore.NewStore(repository, publisher.Publish, natsutil.JetStreamFeed{JS: client.JS}, logger.Named("eventstore"))
	metrics.Default.MustRegister(metrics.NewGaugeFunc(metrics.Opts{
		Name: "eventboard_store_subscribers",
		Help: "Snapshot subscribers attached to the shared change feed.",
	}, func() float64 {
		return float64(store.Subscribers())
	}))

	handler := boardweb.NewHandler(store, repository, engine, logger.Named("boardweb"), uiOrigin)
	handler.Ready = func(ctx context.Context) error {
		if err := client.Connected(); err != nil {
			return err
		}
		return dbpool.Ping(ctx, pool)
	}

	scheduler := cron.New(cron.WithLocation(loc))
	if _, err := scheduler.AddFunc("0 0 * * *", func() {
		refreshed := handler.RefreshAll()
		logger.Info("midnight refresh", zap.Int("sessions", refreshed))
	}); err != nil {
		logger.Fatal("schedule midnight refresh", zap.Error(err))
	}
	scheduler.Start()

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Keep WriteTimeout unset for long-lived SSE streams.
		IdleTimeout: 120 * time.Second,
	}

	logger.Info("event board listening",
		zap.String("addr", addr),
		zap.String("timezone", loc.String()),
		zap.String("locale", locale.String()),
	)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Fatal("http server", zap.Error(err))
	case <-runCtx.Done():
	}

	<-scheduler.Stop().Done()
	handler.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
