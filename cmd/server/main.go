// Command server runs the gatehouse visitor management API.
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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	activityhandler "gatehouse/internal/activity/handler"
	activityservice "gatehouse/internal/activity/service"
	activitystore "gatehouse/internal/activity/store"
	alerthandler "gatehouse/internal/alert/handler"
	alertservice "gatehouse/internal/alert/service"
	alertstore "gatehouse/internal/alert/store"
	"gatehouse/internal/broadcast"
	broadcasthandler "gatehouse/internal/broadcast/handler"
	"gatehouse/internal/emergency"
	emergencyhandler "gatehouse/internal/emergency/handler"
	"gatehouse/internal/occupancy"
	occupancyhandler "gatehouse/internal/occupancy/handler"
	"gatehouse/internal/overstay"
	"gatehouse/internal/platform/config"
	"gatehouse/internal/platform/httpserver"
	"gatehouse/internal/platform/kafka/producer"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/platform/metrics"
	platformpg "gatehouse/internal/platform/postgres"
	platformredis "gatehouse/internal/platform/redis"
	screeninghandler "gatehouse/internal/screening/handler"
	screeningservice "gatehouse/internal/screening/service"
	screeningstore "gatehouse/internal/screening/store"
	httptransport "gatehouse/internal/transport/http"
	visitorhandler "gatehouse/internal/visitor/handler"
	visitorservice "gatehouse/internal/visitor/service"
	accesspointstore "gatehouse/internal/visitor/store/accesspoint"
	visitorstore "gatehouse/internal/visitor/store/visitor"
	"gatehouse/pkg/platform/tx"
)

const shutdownGrace = 10 * time.Second

func main() {
	_ = godotenv.Load()

	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	mx := metrics.New()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		db        *sql.DB
		visitors  visitorservice.Store
		apStore   occupancy.Store
		apCreator occupancyhandler.Creator
		overdue   overstay.VisitorSource
		truth     occupancy.GroundTruth
		acts      activityservice.Store
		banned    screeningservice.Store
		alerts    alertservice.Store
		runner    tx.Runner
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = platformpg.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := platformpg.Migrate(ctx, db); err != nil {
			return err
		}

		vs := visitorstore.NewPostgres(db)
		aps := accesspointstore.NewPostgres(db)
		visitors, overdue, truth = vs, vs, vs
		apStore, apCreator = aps, aps
		acts = activitystore.NewPostgres(db)
		banned = screeningstore.NewPostgres(db)
		alerts = alertstore.NewPostgres(db)
		runner = tx.NewSQLRunner(db)
		log.Info("using postgres stores")
	} else {
		vs := visitorstore.NewInMemory()
		aps := accesspointstore.NewInMemory()
		visitors, overdue, truth = vs, vs, vs
		apStore, apCreator = aps, aps
		acts = activitystore.NewInMemory()
		banned = screeningstore.NewInMemory()
		alerts = alertstore.NewInMemory()
		runner = tx.NewNoopRunner()
		log.Info("using in-memory stores")
	}

	// Broadcaster: Redis rooms when configured, in-process otherwise.
	var caster broadcast.Broadcaster
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		caster = broadcast.NewRedis(redisClient.Client,
			broadcast.WithRedisLogger(log),
			broadcast.WithRedisMetrics(mx),
		)
		log.Info("using redis broadcaster")
	} else {
		caster = broadcast.NewMemory(
			broadcast.WithLogger(log),
			broadcast.WithMetrics(mx),
		)
	}
	defer caster.Close()

	// Services.
	activityOpts := []activityservice.Option{activityservice.WithLogger(log)}
	if cfg.KafkaBrokers != "" {
		mirror, err := producer.New(cfg.KafkaBrokers, cfg.KafkaActivityTopic, log)
		if err != nil {
			return err
		}
		defer mirror.Close()
		activityOpts = append(activityOpts, activityservice.WithMirror(mirror))
		log.Info("activity mirror enabled", "topic", cfg.KafkaActivityTopic)
	}
	activitySvc := activityservice.New(acts, activityOpts...)
	alertSvc := alertservice.New(alerts, alertservice.WithLogger(log))
	screeningSvc := screeningservice.New(banned, screeningservice.WithLogger(log))
	tracker := occupancy.New(apStore, truth,
		occupancy.WithLogger(log),
		occupancy.WithMetrics(mx),
	)
	lifecycle := visitorservice.New(visitors, tracker, screeningSvc, activitySvc, alertSvc, runner,
		visitorservice.WithLogger(log),
		visitorservice.WithMetrics(mx),
		visitorservice.WithBroadcaster(caster),
		visitorservice.WithBadgeAttempts(cfg.BadgeMaxAttempts),
	)
	emergencySvc := emergency.New(activitySvc, alertSvc,
		emergency.WithLogger(log),
		emergency.WithBroadcaster(caster),
	)
	monitor := overstay.New(overdue, lifecycle, cfg.OverstaySweepInterval, overstay.WithLogger(log))
	reconciler := occupancy.NewReconciler(tracker, cfg.OccupancyReconcileInterval, log)

	// Health probes cover the configured backends only.
	var checks []httptransport.HealthCheck
	if db != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: db.PingContext})
	}
	if redisClient != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: redisClient.Health})
	}

	router := httptransport.NewRouter(log, checks,
		visitorhandler.New(lifecycle, log),
		occupancyhandler.New(tracker, apCreator, log),
		screeninghandler.New(screeningSvc, log),
		activityhandler.New(activitySvc, log),
		alerthandler.New(alertSvc, log),
		emergencyhandler.New(emergencySvc, log),
		broadcasthandler.New(caster, log),
	)
	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return ignoreCanceled(monitor.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(reconciler.Run(gctx)) })

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
