package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"songshare/internal/cache"
	"songshare/internal/catalog"
	"songshare/internal/config"
	"songshare/internal/httpapi"
	"songshare/internal/keepalive"
	"songshare/internal/profile"
	"songshare/internal/recommend"
	"songshare/internal/rerank"
	"songshare/internal/search"
	"songshare/internal/songindex"
)

func main() {
	// Load .env file for local development
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := rerank.VerifyWeightShapes(); err != nil {
		slog.Error("reranker neural head failed shape verification", "error", err)
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, mongoDB, err := connectMongo(rootCtx, cfg.MongodbURL)
	if err != nil {
		slog.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	var sharedCache cache.Cache
	if cfg.ValkeyURL != "" {
		sharedCache, err = cache.NewMultiLevelCache(cfg.ValkeyURL, 5000)
		if err != nil {
			slog.Warn("valkey cache unavailable, smart search will run single-instance only", "error", err)
			sharedCache = nil
		} else {
			defer sharedCache.Close()
		}
	}

	primaryAdapter := catalog.NewPrimaryAdapter(cfg.PrimaryCatalogClientID, cfg.PrimaryCatalogClientSecret, cfg.PrimaryCatalogTokenURL, cfg.PrimaryCatalogBaseURL)
	broadAdapter := catalog.NewBroadSearchAdapter(cfg.BroadCatalogClientID, cfg.BroadCatalogClientSecret, cfg.BroadCatalogTokenURL, cfg.BroadCatalogBaseURL)
	fallbackAdapter := catalog.NewFallbackAdapter(cfg.FallbackCatalogBaseURL, cfg.FallbackCatalogAPIKey)

	index := songindex.New(50000)
	var engine *search.Engine
	if sharedCache != nil {
		engine = search.NewWithSharedCache(index, primaryAdapter, fallbackAdapter, broadAdapter, sharedCache)
	} else {
		engine = search.New(index, primaryAdapter, fallbackAdapter, broadAdapter)
	}

	store := profile.NewMongoStore(mongoDB)
	reranker := rerank.New(store)
	recGen := recommend.New(store, engine, reranker, primaryAdapter)

	config.StartRankingConfigWatcher(rootCtx, 30*time.Second)

	srv := httpapi.NewServer(engine, reranker, recGen, store, primaryAdapter, httpapi.NewDevTokenVerifier())
	router := gin.New()
	router.Use(gin.Recovery())
	srv.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.KeepaliveURL != "" {
		worker := keepalive.New(cfg.KeepaliveURL, cfg.KeepaliveIntervalMs, cfg.KeepaliveTimeoutMs)
		if err := worker.Validate(); err != nil {
			slog.Error("keepalive worker misconfigured", "error", err)
			os.Exit(1)
		}
		go worker.Run(rootCtx)
	} else {
		slog.Info("keepalive disabled: KEEPALIVE_URL not set")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	slog.Info("songshare-core started", "port", cfg.Port, "ginMode", cfg.GinMode)

	select {
	case <-rootCtx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("graceful shutdown error", "error", err)
	}
	slog.Info("songshare-core stopped")
}

func connectMongo(ctx context.Context, mongoURL string) (*mongo.Client, *mongo.Database, error) {
	clientOptions := options.Client().
		ApplyURI(mongoURL).
		SetMaxPoolSize(20).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, nil, err
	}
	return client, client.Database("songshare"), nil
}
