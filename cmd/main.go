package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"cafe-pos-service/internal/access"
	"cafe-pos-service/internal/admin"
	"cafe-pos-service/internal/api"
	"cafe-pos-service/internal/assets"
	"cafe-pos-service/internal/config"
	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/identity"
	"cafe-pos-service/internal/logx"
	"cafe-pos-service/internal/pos"
	"cafe-pos-service/internal/store"
	"cafe-pos-service/internal/textgen"
)

const (
	defaultAppName = "CafePOSService"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logx.Info().Msg("no .env file found, relying on system environment")
	}

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("error loading configuration")
	}
	logx.Init(logx.Options{Production: cfg.IsProduction(), Level: cfg.LogLevel})
	logx.Info().Str("service", defaultAppName).Str("app_env", cfg.AppEnv).Str("log_level", cfg.LogLevel).Msg("starting service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Database Connection ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialize database connection")
	}
	if err := db.PingContext(ctx); err != nil {
		logx.Fatal().Err(err).Msg("failed to ping database")
	}
	dbStore := store.NewPostgresStore(db)
	if err := dbStore.EnsureSchema(ctx); err != nil {
		logx.Fatal().Err(err).Msg("failed to apply database schema")
	}
	if seeded, err := dbStore.SeedDefaultCategories(ctx, cfg.POS.DefaultCategories); err != nil {
		logx.Error().Err(err).Msg("failed to seed default categories")
	} else if seeded {
		logx.Info().Strs("categories", cfg.POS.DefaultCategories).Msg("default categories seeded")
	}
	logx.Info().Msg("database connection established")

	// --- Live catalog ---
	listener := pq.NewListener(cfg.Postgres.DSN(), 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logx.Warn().Err(err).Int("event", int(ev)).Msg("catalog listener event")
		}
	})
	if err := listener.Listen(store.ChangeChannel); err != nil {
		logx.Fatal().Err(err).Str("channel", store.ChangeChannel).Msg("failed to listen for catalog changes")
	}
	watcher := store.NewWatcher(dbStore, listener.Notify)
	catalog := pos.NewCatalog()
	onLoadError := func(err error) {
		logx.Error().Err(store.AsAppError(err)).Msg("failed to load catalog snapshot")
	}
	unsubscribeProducts := watcher.SubscribeProducts(ctx, catalog.ReplaceProducts, onLoadError)
	defer unsubscribeProducts()
	onCategoryError := func(err error) {
		onLoadError(err)
		if catalog.FallbackCategories(cfg.POS.DefaultCategories) {
			logx.Warn().Strs("categories", cfg.POS.DefaultCategories).Msg("showing default categories until the category snapshot loads")
		}
	}
	unsubscribeCategories := watcher.SubscribeCategories(ctx, catalog.ReplaceCategories, onCategoryError)
	defer unsubscribeCategories()
	go watcher.Run(ctx)

	// --- Redis ---
	redisClient, err := cfg.Redis.NewClient(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// --- Identity and access ---
	var providerOpts []identity.Option
	if cfg.Firebase.Enabled() {
		verifier, err := identity.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsJSON)
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to initialize Google sign-in")
		}
		providerOpts = append(providerOpts, identity.WithGoogle(verifier, cfg.Auth.AuthorizedDomains))
	} else {
		logx.Warn().Msg("FIREBASE_PROJECT_ID not set, Google sign-in is disabled")
	}
	provider := identity.NewProvider(
		dbStore,
		identity.NewPasswordHasher(cfg.Auth.BcryptCost),
		identity.NewTokenManager(identity.TokenConfig{SecretKey: cfg.Auth.JWTSecret, TTL: cfg.Auth.SessionTTL, Issuer: cfg.Auth.Issuer}),
		identity.NewRedisRevoker(redisClient, cfg.Redis.Prefix),
		providerOpts...,
	)
	gate := access.NewGate(provider, access.NewRedisGateStore(redisClient, cfg.Redis.Prefix), access.NewPolicy(cfg.Auth.AdminEmails), cfg.Auth.AdminGateTTL)

	terminals := pos.NewRegistry()
	unsubscribeTerminals := provider.SubscribeSessionChanges(terminals.OnSessionChange)
	defer unsubscribeTerminals()
	unsubscribeGate := provider.SubscribeSessionChanges(gate.OnSessionChange)
	defer unsubscribeGate()

	// --- Management ---
	var uploader assets.Uploader = assets.Disabled{}
	if cfg.Cloudinary.Enabled() {
		cld, err := assets.NewCloudinary(assets.Config{
			CloudName:    cfg.Cloudinary.CloudName,
			UploadPreset: cfg.Cloudinary.UploadPreset,
			APIURL:       cfg.Cloudinary.APIURL,
			Timeout:      cfg.Cloudinary.Timeout,
		})
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to initialize Cloudinary")
		}
		uploader = cld
	}
	var writer textgen.Generator = textgen.Disabled{}
	gemini, err := textgen.NewGemini(ctx, textgen.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	})
	switch {
	case err == nil:
		writer = gemini
	case errors.Is(err, errx.ErrGenerationDisabled):
		logx.Warn().Msg("GEMINI_API_KEY not set, description suggestions are disabled")
	default:
		logx.Error().Err(err).Msg("failed to initialize Gemini, description suggestions are disabled")
	}
	adminService := admin.NewService(dbStore, dbStore, uploader, writer)

	// --- Initialize API Handlers ---
	httpAPIHandler := api.NewHTTPHandler(api.Deps{
		Catalog:         catalog,
		Terminals:       terminals,
		Sessions:        provider,
		Gate:            gate,
		Admin:           adminService,
		DefaultCategory: cfg.POS.DefaultCategory,
		QRBaseURL:       cfg.POS.QRBaseURL,
		MaxUploadBytes:  cfg.HttpServer.MaxUploadMB << 20,
	})
	grpcAPIHandler := api.NewGRPCHandler(catalog)

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter)
	registerHealthCheck(httpRouter, db, redisClient, catalog)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logx.Info().Str("port", cfg.HttpServer.Port).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server ListenAndServe error")
		}
		logx.Info().Msg("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := setupGRPCServer(grpcAPIHandler, provider)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		logx.Fatal().Err(err).Str("port", cfg.GrpcServer.Port).Msg("failed to listen for gRPC")
	}

	go func() {
		logx.Info().Str("port", cfg.GrpcServer.Port).Msg("gRPC server listening")
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logx.Fatal().Err(err).Msg("gRPC server Serve error")
		}
		logx.Info().Msg("gRPC server has stopped")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(cancel, httpServer, grpcServer, listener, redisClient, dbStore, shutdownComplete)

	<-shutdownComplete
	logx.Info().Msg("service shutdown sequence finished")
}

func setupBaseMiddleware(router *chi.Mux) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logx.RequestLogger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
}

func registerHealthCheck(router *chi.Mux, db *sql.DB, rdb *redis.Client, catalog *pos.Catalog) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "healthy"
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
			logx.Warn().Err(err).Msg("health check DB ping failed")
		}
		redisStatus := "healthy"
		if err := rdb.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
			logx.Warn().Err(err).Msg("health check Redis ping failed")
		}

		catalogUpdated := ""
		if t := catalog.UpdatedAt(); !t.IsZero() {
			catalogUpdated = t.UTC().Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":             "healthy",
			"serviceName":        defaultAppName,
			"timestamp":          time.Now().UTC().Format(time.RFC3339),
			"database":           dbStatus,
			"redis":              redisStatus,
			"catalog_updated_at": catalogUpdated,
		})
	})
}

func setupGRPCServer(grpcAPIHandler *api.GRPCHandler, sessions api.SessionResolver) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(api.UnaryLogger, api.UnaryAuth(sessions)))

	api.RegisterCatalogServer(s, grpcAPIHandler)
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	reflection.Register(s)
	logx.Info().Str("service", api.CatalogServiceName).Msg("gRPC services registered")

	return s
}

func waitForShutdown(
	cancel context.CancelFunc,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	listener *pq.Listener,
	redisClient *redis.Client,
	dbStore *store.PostgresStore,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logx.Info().Str("signal", receivedSignal.String()).Msg("starting graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logx.Warn().Err(err).Msg("HTTP server graceful shutdown failed")
	} else {
		logx.Info().Msg("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		logx.Info().Msg("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		logx.Warn().Err(shutdownCtx.Err()).Msg("gRPC server graceful shutdown timed out, forcing stop")
		grpcServer.Stop()
	}

	// stops the watcher before its event channel goes away
	cancel()
	if err := listener.Close(); err != nil {
		logx.Warn().Err(err).Msg("error closing catalog listener")
	}
	if err := redisClient.Close(); err != nil {
		logx.Warn().Err(err).Msg("error closing redis client")
	}
	if err := dbStore.Close(); err != nil {
		logx.Warn().Err(err).Msg("error closing database connection")
	}

	logx.Info().Msg("graceful shutdown sequence completed")
}
