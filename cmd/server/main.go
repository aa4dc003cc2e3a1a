package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/LinkGate/config"
	apprepository "github.com/sifan077/LinkGate/internal/app/repository"
	appserver "github.com/sifan077/LinkGate/internal/app/server"
	appservice "github.com/sifan077/LinkGate/internal/app/service"
	"github.com/sifan077/LinkGate/internal/auth"
	"github.com/sifan077/LinkGate/internal/infra/database"
	"github.com/sifan077/LinkGate/internal/infra/logger"
	infraNATS "github.com/sifan077/LinkGate/internal/infra/nats"
	infraPrometheus "github.com/sifan077/LinkGate/internal/infra/prometheus"
	infraRedis "github.com/sifan077/LinkGate/internal/infra/redis"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.MustInit(logger.FromApp(cfg.App, "linkgate"))
	defer func() { _ = logger.Sync() }()

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.App.Env),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.Bool("prometheus_enabled", cfg.Prometheus.Enabled),
	)

	store, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()

	var counterRepo apprepository.CounterRepository
	if store.Pool != nil {
		counterRepo = apprepository.NewPgxCounterRepository(store.Pool)
	} else {
		counterRepo = apprepository.NewGormCounterRepository(store.DB)
	}

	var linkRepo apprepository.LinkRepository = apprepository.NewLinkRepository(store.DB)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = infraRedis.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		linkRepo = apprepository.NewCachedLinkRepository(linkRepo, redisClient, cfg.Redis.CacheTTL, log)
	}

	eventRepo := apprepository.NewClickEventRepository(store.DB)
	var sink appservice.EventSink = appservice.NewDirectSink(eventRepo)
	if cfg.NATS.Enabled {
		natsConn, js, err := infraNATS.Connect(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer drain(natsConn, log)
		log.Info("Connected to NATS successfully", zap.String("url", natsConn.ConnectedUrl()))

		consumer := appservice.NewEventConsumer(js, log, eventRepo)
		if err := consumer.Start(ctx); err != nil {
			log.Fatal("Failed to start click consumer", zap.Error(err))
		}
		defer consumer.Stop()
		sink = appservice.NewEventPublisher(js)
	}

	timeout := cfg.Resolver.IncrementTimeout
	counters := appservice.NewCounterService(counterRepo, timeout, log)
	defer counters.Wait()
	events := appservice.NewEventRecorder(sink, timeout, log)
	defer events.Wait()

	var filter *appservice.CodeFilter
	if cfg.Resolver.BloomEnabled {
		filter = appservice.NewCodeFilter(cfg.Resolver.BloomCapacity, cfg.Resolver.BloomFPRate)
		n, err := filter.Warm(ctx, linkRepo)
		if err != nil {
			log.Fatal("Failed to warm code filter", zap.Error(err))
		}
		log.Info("Code filter warmed", zap.Int("codes", n))
	}

	unlockers := appservice.NewUnlockerService(apprepository.NewUnlockerRepository(store.DB), cfg.Quota.MaxUnlockers)
	sequences := appservice.NewSequenceService(apprepository.NewSequenceRepository(store.DB), cfg.Quota.MaxSequences)

	challenges := appservice.NewChallengeService(ctx, appservice.ChallengeDeps{
		Unlockers: unlockers,
		Sequences: sequences,
		Counters:  counters,
		Events:    events,
		Config: appservice.ChallengeConfig{
			SessionTTL:    cfg.Challenge.SessionTTL,
			MaxSessions:   cfg.Challenge.MaxSessions,
			SweepInterval: cfg.Challenge.SweepInterval,
		},
		Logger: log,
	})
	challenges.Start()
	defer challenges.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:   log,
		Config:   cfg,
		Redis:    redisClient,
		Verifier: auth.NewVerifier(cfg.App.JWTSecret, cfg.App.JWTIssuer),
		Resolver: appservice.NewResolver(appservice.ResolverDeps{
			Links:    linkRepo,
			Counters: counters,
			Events:   events,
			Filter:   filter,
			Logger:   log,
		}),
		Links: appservice.NewLinkService(appservice.LinkServiceDeps{
			Links:    linkRepo,
			Events:   eventRepo,
			Filter:   filter,
			MaxLinks: cfg.Quota.MaxLinks,
			Logger:   log,
		}),
		Counters:  counters,
		Unlockers: unlockers,
		Sequences: sequences,
		Cards: appservice.NewBioCardService(appservice.BioCardDeps{
			Cards:          apprepository.NewBioCardRepository(store.DB),
			Counters:       counters,
			Events:         events,
			MaxCards:       cfg.Quota.MaxCards,
			MaxLinks:       cfg.Quota.MaxCardLinks,
			MaxSocialLinks: cfg.Quota.MaxSocialLinks,
			Logger:         log,
		}),
		Challenges: challenges,
	})

	if cfg.Prometheus.Enabled {
		promServer := infraPrometheus.NewServer(cfg.Prometheus, nil, log)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.String("addr", promServer.Addr))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	}

	listenErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.HTTP.Addr))
		listenErr <- server.Listen(cfg.HTTP.Addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			log.Error("Fiber server exited", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shut down HTTP server", zap.Error(err))
	}
}

func drain(conn *nats.Conn, log *zap.Logger) {
	if err := conn.Drain(); err != nil {
		log.Warn("Failed to drain NATS connection", zap.Error(err))
	}
}
