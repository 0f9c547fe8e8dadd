package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventboard/project/internal/app/changelog"
	"github.com/eventboard/project/internal/platform/dbpool"
	"github.com/eventboard/project/internal/platform/env"
	"github.com/eventboard/project/internal/platform/logging"
	"github.com/eventboard/project/internal/platform/metrics"
	"github.com/eventboard/project/internal/platform/natsutil"
	"github.com/eventboard/project/internal/sharding"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var changesTotal = metrics.NewCounterVec(metrics.Opts{
	Name: "eventboard_changes_total",
	Help: "Change notifications handled by the change sink, by outcome.",
}, []string{"outcome"})

func init() {
	metrics.Default.MustRegister(changesTotal)
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.DefaultHandler())
	logger.Info("change sink metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("change sink metrics server failed", zap.Error(err))
	}
}

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

	pool, err := dbpool.New(runCtx, env.String("DATABASE_URL", env.DefaultDatabaseURL))
	if err != nil {
		logger.Fatal("postgres pool", zap.Error(err))
	}
	defer pool.Close()

	repository := changelog.NewPostgresRepository(pool)
	if err := dbpool.WaitReady(runCtx, pool, logger, 30*time.Second, repository); err != nil {
		logger.Fatal("postgres not ready", zap.Error(err))
	}
	service := changelog.NewService(repository)

	if addr := env.String("CHANGE_SINK_METRICS_ADDR", ":9102"); addr != "" {
		go serveMetrics(addr, logger)
	}

	natsURL := env.String("NATS_URL", env.DefaultNATSURL)
	client, err := natsutil.ConnectJetStreamWithRetry(natsURL, env.Duration("NATS_CONNECT_TIMEOUT", 20*time.Second))
	if err != nil {
		logger.Fatal("nats connect", zap.Error(err))
	}
	defer client.Close()

	sub, err := client.JS.QueueSubscribe(sharding.ChangePrefix+".>", "change-sink", func(msg *nats.Msg) {
		var streamSeq uint64
		if meta, metaErr := msg.Metadata(); metaErr == nil {
			streamSeq = meta.Sequence.Stream
		}

		recordCtx, cancel := context.WithTimeout(runCtx, 3*time.Second)
		defer cancel()
		if err := service.Handle(recordCtx, msg.Data, streamSeq); err != nil {
			if errors.Is(err, changelog.ErrInvalidChangePayload) || errors.Is(err, changelog.ErrUnsupportedAction) {
				logger.Warn("discarding change", zap.String("subject", msg.Subject), zap.Error(err))
				changesTotal.WithLabelValues("discarded").Inc()
				_ = msg.Term()
				return
			}
			logger.Error("change persistence failed", zap.Uint64("seq", streamSeq), zap.Error(err))
			changesTotal.WithLabelValues("retried").Inc()
			_ = msg.Nak()
			return
		}

		changesTotal.WithLabelValues("recorded").Inc()
		_ = msg.Ack()
	}, nats.ManualAck())
	if err != nil {
		logger.Fatal("subscribe", zap.Error(err))
	}
	defer sub.Unsubscribe()

	logger.Info("change sink listening", zap.String("subject", sub.Subject))
	<-runCtx.Done()
	logger.Info("change sink stopping")
}
