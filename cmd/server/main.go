package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ayush/pdf-chat/backend/internal/auth"
	"github.com/ayush/pdf-chat/backend/internal/billing"
	"github.com/ayush/pdf-chat/backend/internal/chat"
	"github.com/ayush/pdf-chat/backend/internal/config"
	"github.com/ayush/pdf-chat/backend/internal/document"
	"github.com/ayush/pdf-chat/backend/internal/httputil"
	"github.com/ayush/pdf-chat/backend/internal/logger"
	"github.com/ayush/pdf-chat/backend/internal/middleware"
	"github.com/ayush/pdf-chat/backend/internal/settings"
	"github.com/ayush/pdf-chat/backend/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	lg, err := logger.New(cfg.LogLevel, cfg.Env, cfg.LogDir)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	warnings, err := cfg.Validate()
	if err != nil {
		lg.Fatal("invalid config", zap.Error(err))
	}
	for _, w := range warnings {
		lg.Warn("config", zap.String("warning", w))
	}

	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		lg.Fatal("postgres connect", zap.Error(err))
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	pgStore.SealKeysWith(store.NewSecretBox(cfg.SettingsSecret))
	if err := pgStore.Migrate(ctx); err != nil {
		lg.Fatal("postgres migrate", zap.Error(err))
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		lg.Fatal("mongo connect", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		lg.Fatal("mongo indexes", zap.Error(err))
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		lg.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)

	var usage billing.UsageStore = store.NewRedisUsageStore(rdb)
	if cfg.UsageBackend == "memory" {
		usage = store.NewMemoryUsageStore()
	}

	// ── MinIO ────────────────────────────────────────────────
	minioStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		lg.Fatal("minio connect", zap.Error(err))
	}

	// ── Billing ──────────────────────────────────────────────
	catalog := billing.NewCatalog(cfg.StripePricePremium, cfg.StripePricePro)
	evaluator := billing.NewEvaluator(catalog)
	tracker := billing.NewTracker(usage, pgStore, evaluator, lg.Named("usage"))

	var provider billing.Provider
	if cfg.StripeSecretKey != "" {
		provider = billing.NewStripeProvider(cfg.StripeSecretKey)
	}
	stripeBilling := billing.NewStripeBilling(provider, pgStore, catalog, cfg.StripeWebhookSecret, lg.Named("stripe"))

	// ── Chat ─────────────────────────────────────────────────
	openai := chat.NewOpenAIClient(cfg.OpenAIBaseURL)
	answers := chat.NewOrchestrator(
		chat.NewHeuristicResponder(cfg.HeuristicDelayMin, cfg.HeuristicDelayMax),
		chat.NewModelResponder(openai),
	)
	chatService := chat.NewService(mongoStore, minioStore, document.NewExtractor(), pgStore, tracker, answers, chat.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		DefaultModel:   cfg.DefaultModel,
		ServerAPIKey:   cfg.OpenAIAPIKey,
	}, lg.Named("chat"))

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(pgStore, sessions, lg.Named("auth"))
	chatHandler := chat.NewHandler(chatService, lg.Named("chat"))
	billingHandler := billing.NewHandler(stripeBilling, tracker, pgStore, evaluator, cfg.FrontendURL, lg.Named("billing"))
	settingsHandler := settings.NewHandler(pgStore, openai, lg.Named("settings"))
	requireAuth := middleware.RequireAuth(sessions)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(lg.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth routes (public)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(requireAuth).Get("/me", authHandler.Me)
	})

	r.Get("/api/plans", billingHandler.Plans)
	r.Post("/api/billing/webhook", billingHandler.Webhook)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/api/documents", func(r chi.Router) {
			r.Post("/", chatHandler.Upload)
			r.Get("/", chatHandler.GetDocument)
			r.Delete("/", chatHandler.DeleteDocument)
			r.Get("/pdf", chatHandler.DownloadPDF)
		})

		r.Route("/api/chat", func(r chi.Router) {
			r.Post("/", chatHandler.Ask)
			r.Get("/history", chatHandler.History)
			r.Get("/export", chatHandler.Export)
			r.Get("/suggestions", chatHandler.Suggestions)
			r.Get("/status", chatHandler.Status)
		})

		r.Route("/api/billing", func(r chi.Router) {
			r.Get("/status", billingHandler.Status)
			r.Post("/checkout", billingHandler.Checkout)
			r.Post("/portal", billingHandler.Portal)
		})

		r.Route("/api/settings", func(r chi.Router) {
			r.Get("/", settingsHandler.Get)
			r.Put("/", settingsHandler.Update)
			r.Post("/verify", settingsHandler.Verify)
		})
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		lg.Info("backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		lg.Error("shutdown", zap.Error(err))
	}
}
