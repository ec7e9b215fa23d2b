package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"custodyprofile/internal/events"
	eventsconsumer "custodyprofile/internal/events/consumer"
	jwttoken "custodyprofile/internal/jwt_token"
	"custodyprofile/internal/platform/config"
	"custodyprofile/internal/platform/httpserver"
	kafkaconsumer "custodyprofile/internal/platform/kafka/consumer"
	kafkaproducer "custodyprofile/internal/platform/kafka/producer"
	"custodyprofile/internal/platform/logger"
	"custodyprofile/internal/platform/metrics"
	platformredis "custodyprofile/internal/platform/redis"
	"custodyprofile/internal/prisonersearch"
	profilehandler "custodyprofile/internal/profile/handler"
	profileservice "custodyprofile/internal/profile/service"
	"custodyprofile/internal/refdata"
	refdatahandler "custodyprofile/internal/refdata/handler"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("service exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	m := metrics.New()
	searchClient := prisonersearch.New(cfg.PrisonerSearch.BaseURL, cfg.PrisonerSearch.Timeout)

	// Reference data, optionally cached in Redis.
	var refStore refdata.Store = refdata.NewPostgresStore(db)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		refStore = refdata.NewCachedStore(refStore, redisClient.Client, config.RefDataCacheTTL, log)
	}
	refService := refdata.NewService(refStore)

	// Outbound events.
	producer, err := kafkaproducer.New(cfg.Kafka.Brokers, cfg.Kafka.EventTopic, log)
	if err != nil {
		return err
	}
	defer producer.Close()
	if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
		log.Warn("topic bootstrap failed, continuing", "error", err)
	}

	notifier := events.NewFanout(
		events.NewDomainListener(producer, cfg.Server.BaseURL, log, m),
		events.NewTelemetryListener(events.NewLogSink(log), searchClient, log, m),
	)

	profile := profileservice.NewService(
		newProfilePostgresTx(db),
		refService,
		searchClient,
		notifier,
		m,
		log,
	)

	// Inbound merge events.
	router := eventsconsumer.NewRouter(log)
	router.Register(eventsconsumer.TypePrisonerMerged, eventsconsumer.NewMergeHandler(profile, log))
	consumer, err := kafkaconsumer.New(
		cfg.Kafka.Brokers,
		cfg.Kafka.ConsumerGroup,
		[]string{cfg.Kafka.OffenderEventsTopic},
		router,
		log,
	)
	if err != nil {
		return err
	}
	defer consumer.Close()

	// HTTP surface.
	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey)
	r := chi.NewRouter()
	profilehandler.New(profile, log, m, jwtService).Register(r)
	refdatahandler.New(refService, log, m, jwtService).Register(r)
	r.Handle("/metrics", promhttp.Handler())
	srv := httpserver.New(cfg.Server.Addr, r)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting custody-profile API", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting offender-events consumer",
			"topic", cfg.Kafka.OffenderEventsTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		err := consumer.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
