package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	scoring_app "github.com/wyfcoding/riskscoring/internal/scoring/application"
	scoring_domain "github.com/wyfcoding/riskscoring/internal/scoring/domain"
	"github.com/wyfcoding/riskscoring/internal/scoring/infrastructure/messaging"
	scoring_mysql "github.com/wyfcoding/riskscoring/internal/scoring/infrastructure/persistence/mysql"
	scoring_http "github.com/wyfcoding/riskscoring/internal/scoring/interfaces/http"
	simulation_app "github.com/wyfcoding/riskscoring/internal/simulation/application"
	simulation_domain "github.com/wyfcoding/riskscoring/internal/simulation/domain"
	simulation_mysql "github.com/wyfcoding/riskscoring/internal/simulation/infrastructure/persistence/mysql"
	simulation_http "github.com/wyfcoding/riskscoring/internal/simulation/interfaces/http"
	"github.com/wyfcoding/riskscoring/pkg/cache"
	"github.com/wyfcoding/riskscoring/pkg/config"
	"github.com/wyfcoding/riskscoring/pkg/db"
	"github.com/wyfcoding/riskscoring/pkg/logger"
	"github.com/wyfcoding/riskscoring/pkg/metrics"
	"github.com/wyfcoding/riskscoring/pkg/middleware"
	"github.com/wyfcoding/riskscoring/pkg/mq"
	"golang.org/x/sync/errgroup"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/riskscoring/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	log := logger.Get()

	// 3. Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New("engine")
		if err := m.Register(); err != nil {
			panic(fmt.Sprintf("register metrics failed: %v", err))
		}
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			panic(fmt.Sprintf("start metrics server failed: %v", err))
		}
	}

	// 4. Database
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		panic(fmt.Sprintf("connect db failed: %v", err))
	}
	defer database.Close()

	// Auto Migrate
	if err := database.AutoMigrate(
		&scoring_domain.Company{},
		&scoring_domain.RiskCategory{},
		&scoring_domain.RiskEntity{},
		&scoring_domain.RiskEvent{},
		&scoring_domain.CompanyRelation{},
		&simulation_domain.ScenarioRecord{},
	); err != nil {
		panic(fmt.Sprintf("migrate db failed: %v", err))
	}

	// 5. Cache（可选，连不上时降级为无缓存运行）
	var redisCache *cache.RedisCache
	rc, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.Warn("redis unavailable, simulation cache disabled", "error", err)
	} else {
		redisCache = rc
		defer redisCache.Close()
	}

	// 6. Messaging（可选，未配置 broker 时事件仅落日志）
	var publisher scoring_domain.EventPublisher = messaging.NopEventPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			panic(fmt.Sprintf("create kafka producer failed: %v", err))
		}
		defer producer.Close()
		publisher = messaging.NewKafkaEventPublisher(producer)
	}

	// 7. Infrastructure & Domain
	graphRepo := scoring_mysql.NewGraphRepository(database)
	scenarioRepo := simulation_mysql.NewScenarioRepository(database)

	matcher := scoring_domain.NewKeywordMatcher()
	scorer := scoring_domain.NewSignalScorer(matcher, cfg.Scoring.DecayHalfLifeDays)
	aggregator := scoring_domain.NewHierarchyAggregator()
	engine := simulation_domain.NewCascadeEngine(graphRepo, simulation_domain.CascadeConfig{
		Tier1Multiplier:     cfg.Simulation.Tier1Multiplier,
		Tier2Multiplier:     cfg.Simulation.Tier2Multiplier,
		Tier3Multiplier:     cfg.Simulation.Tier3Multiplier,
		MaxDepth:            cfg.Simulation.MaxDepth,
		BasePropagationRate: cfg.Simulation.BasePropagationRate,
	})

	// 8. Application
	scoringService := scoring_app.NewScoringService(graphRepo, matcher, scorer, aggregator, publisher, m, log)

	var resultCache simulation_app.ResultCache
	if redisCache != nil {
		resultCache = redisCache
	}
	simulationService := simulation_app.NewSimulationService(
		engine,
		scenarioRepo,
		resultCache,
		time.Duration(cfg.Scoring.SimulationCacheTTL)*time.Second,
		m,
		log,
	)

	// 9. Interfaces
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.GinRecoveryMiddleware())
	r.Use(middleware.GinLoggingMiddleware())
	r.Use(middleware.GinCORSMiddleware())
	if m != nil {
		r.Use(middleware.GinMetricsMiddleware(m))
	}

	scoring_http.NewScoringHandler(scoringService).RegisterRoutes(r)
	simulation_http.NewSimulationHandler(simulationService).RegisterRoutes(r)

	sys := r.Group("/sys")
	{
		sys.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		sys.GET("/ready", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "READY"}) })
	}
	pp := r.Group("/debug/pprof")
	{
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
	}

	// 10. Start
	g, ctx := errgroup.WithContext(context.Background())

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 11. Graceful Shutdown
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
