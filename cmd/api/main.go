package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/axoncore/axoncore/internal/api"
	"github.com/axoncore/axoncore/internal/assistants"
	"github.com/axoncore/axoncore/internal/auth"
	"github.com/axoncore/axoncore/internal/billing"
	"github.com/axoncore/axoncore/internal/config"
	"github.com/axoncore/axoncore/internal/conversation"
	"github.com/axoncore/axoncore/internal/database"
	"github.com/axoncore/axoncore/internal/events"
	"github.com/axoncore/axoncore/internal/ledger"
	"github.com/axoncore/axoncore/internal/middleware"
	iredis "github.com/axoncore/axoncore/internal/redis"
	"github.com/axoncore/axoncore/internal/server"
	"github.com/axoncore/axoncore/internal/usage"
	"github.com/axoncore/axoncore/internal/usagelog"
)

const (
	chatTemperature = 0.7
	historyTTL      = 24 * time.Hour
	authRateLimit   = 10
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// PostgreSQL
	if cfg.DB.MigrationsPath != "" {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
	}
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var (
		natsClient   *events.Client
		usagePub     conversation.UsagePublisher = events.Discard{}
		billingPub   billing.EventPublisher      = events.Discard{}
		backgroundFn []server.BackgroundFunc
	)
	if cfg.NATS.URL != "" {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()

		pub := events.NewPublisher(natsClient.JetStream())
		usagePub, billingPub = pub, pub

		consumer := usagelog.NewConsumer(usagelog.NewRepository(pool), events.NewConsumerManager(natsClient.JetStream()))
		backgroundFn = append(backgroundFn, consumer.Start)
	} else {
		slog.Warn("NATS_URL is empty, usage and subscription events are not published")
	}

	// Entitlement ledger
	var cache ledger.Cache
	switch cfg.Cache.Backend {
	case "memory":
		cache = ledger.NewMemoryCache(cfg.Cache.TTL, time.Now)
	default:
		cache = ledger.NewRedisCache(redisClient, cfg.Cache.TTL)
	}
	ledgerSvc := ledger.NewService(ledger.NewRepository(pool), ledger.ServiceOptions{Cache: cache})
	ledgerHandler := ledger.NewHandler(ledgerSvc)

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	authHandler := auth.NewHandler(authSvc, auth.NewGoogleVerifier(cfg.Google.UserInfoURL),
		auth.ProvisionerFunc(func(ctx context.Context, id *auth.Identity) (string, error) {
			acc, err := ledgerSvc.GetOrCreate(ctx, id.Email, id.Name, id.Picture)
			if err != nil {
				return "", err
			}
			return acc.ID.String(), nil
		}),
	)

	encryptor, err := auth.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		slog.Error("creating encryptor", "error", err)
		os.Exit(1)
	}

	// Assistant directory
	assistantSvc := assistants.NewService(assistants.NewRepository(pool), encryptor, assistants.ServiceOptions{})
	assistantHandler := assistants.NewHandler(assistantSvc)

	// Conversation relay
	relay := conversation.NewRelay(
		ledgerSvc,
		conversation.NewOpenRouter(conversation.OpenRouterConfig{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			SiteURL:  cfg.LLM.SiteURL,
			SiteName: cfg.LLM.SiteName,
		}),
		conversation.NewMessageRepository(pool),
		conversation.NewHistoryStore(redisClient, 2*cfg.Chat.HistoryMessages, historyTTL),
		usagePub,
		conversation.RelayConfig{
			FallbackModel:   cfg.LLM.FallbackModel,
			MaxTokens:       cfg.LLM.MaxTokens,
			Temperature:     chatTemperature,
			Timeout:         cfg.LLM.Timeout,
			HistoryMessages: cfg.Chat.HistoryMessages,
		},
	)
	chatHandler := conversation.NewHandler(relay)

	// Subscriptions
	billingSvc := billing.NewService(
		newBillingProvider(cfg.Billing),
		ledgerSvc,
		billing.NewStateStore(redisClient),
		billingPub,
		billing.ServiceConfig{
			PlanID:     cfg.Billing.PlanID,
			TotalCount: cfg.Billing.TotalCount,
			Configured: cfg.BillingConfigured(),
		},
	)
	billingHandler := billing.NewHandler(billingSvc)

	// Usage log
	usageHandler := usagelog.NewHandler(usagelog.NewRepository(pool))

	// Router
	router := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		InternalAPIKey:     cfg.Internal.APIKey,
		AuthRateLimiter:    middleware.NewRateLimiter(redisClient, "auth", authRateLimit, time.Minute).Middleware,
		ChatRateLimiter:    middleware.NewRateLimiter(redisClient, "chat", cfg.Chat.RateLimit, cfg.Chat.RateWindow).Middleware,
		Pool:               pool,
		Redis:              redisClient,
		NATS:               natsClient,
	}, api.HandlerSet{
		GoogleSignIn: authHandler.GoogleSignIn,
		Refresh:      authHandler.Refresh,
		Logout:       authHandler.Logout,

		Me: ledgerHandler.Me,

		Models:              assistantHandler.Models,
		CreateAssistants:    assistantHandler.Create,
		ListAssistants:      assistantHandler.List,
		GetAssistant:        assistantHandler.Get,
		UpdateAssistant:     assistantHandler.Update,
		DeleteAssistant:     assistantHandler.Delete,
		OwnershipMiddleware: assistantHandler.OwnershipMiddleware,

		Chat:           chatHandler.Chat,
		ListMessages:   chatHandler.Messages,
		ClearMessages:  chatHandler.ClearMessages,
		RecentMessages: chatHandler.Recent,

		CreateSubscription: billingHandler.Create,
		VerifySubscription: billingHandler.Verify,
		CancelSubscription: billingHandler.Cancel,
		SubscriptionStatus: billingHandler.Status,

		EstimateUsage:   usage.EstimateHandler,
		ListUsageEvents: usageHandler.List,

		LookupAccount:    ledgerHandler.Lookup,
		GetAccount:       ledgerHandler.Get,
		CreateAccount:    ledgerHandler.Create,
		DebitAccount:     ledgerHandler.Debit,
		CancelAccountSub: ledgerHandler.Cancel,

		AuthMiddleware: auth.Middleware(authSvc),
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(backgroundFn...); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newBillingProvider(cfg config.BillingConfig) billing.Provider {
	if cfg.Provider == "stripe" {
		return billing.NewStripe(cfg.KeySecret)
	}
	return billing.NewRazorpay(cfg.KeyID, cfg.KeySecret, cfg.SigningSecret)
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
