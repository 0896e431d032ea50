package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/sofia-padel/api/internal/handlers"
	"github.com/sofia-padel/api/internal/mail"
	"github.com/sofia-padel/api/internal/pdf"
	"github.com/sofia-padel/api/internal/platform/auth"
	"github.com/sofia-padel/api/internal/platform/config"
	pfirestore "github.com/sofia-padel/api/internal/platform/firestore"
	"github.com/sofia-padel/api/internal/platform/idempotency"
	"github.com/sofia-padel/api/internal/platform/observability"
	"github.com/sofia-padel/api/internal/platform/secrets"
	"github.com/sofia-padel/api/internal/repositories"
	firestoreRepo "github.com/sofia-padel/api/internal/repositories/firestore"
	"github.com/sofia-padel/api/internal/services"
	"github.com/sofia-padel/api/internal/shipping"

	domain "github.com/sofia-padel/api/internal/domain"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets("Security.APIKey"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	productRepo, err := firestoreRepo.NewProductRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise product repository", zap.Error(err))
	}
	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	invoiceRepo, err := firestoreRepo.NewInvoiceRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise invoice repository", zap.Error(err))
	}
	counterRepo, err := firestoreRepo.NewCounterRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise counter repository", zap.Error(err))
	}
	userRepo, err := firestoreRepo.NewUserRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise user repository", zap.Error(err))
	}

	counterService, err := services.NewCounterService(services.CounterServiceDeps{
		Repository: counterRepo,
	})
	if err != nil {
		logger.Fatal("failed to initialise counter service", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: productRepo,
		TTL:      cfg.Catalog.CacheTTL,
		Clock:    time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   orderRepo,
		Products: productRepo,
		Users:    userRepo,
		Counters: counterService,
		Clock:    time.Now,
		Logger:   serviceLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	var mailer services.Mailer
	if cfg.SMTP.Enabled() {
		smtpMailer, err := mail.NewMailer(cfg.SMTP)
		if err != nil {
			logger.Fatal("failed to initialise mailer", zap.Error(err))
		}
		mailer = smtpMailer
	} else {
		logger.Warn("smtp not configured; order and invoice emails are disabled")
	}

	invoiceService, err := services.NewInvoiceService(services.InvoiceServiceDeps{
		Invoices: invoiceRepo,
		Orders:   orderRepo,
		Products: productRepo,
		Counters: counterService,
		Renderer: pdf.NewRenderer(),
		Mailer:   mailer,
		Company: domain.Company{
			Name:      cfg.Company.Name,
			Address:   cfg.Company.Address,
			City:      cfg.Company.City,
			VATNumber: cfg.Company.VATNumber,
		},
		Clock:  time.Now,
		Logger: serviceLogger(logger.Named("invoices")),
	})
	if err != nil {
		logger.Fatal("failed to initialise invoice service", zap.Error(err))
	}

	var notificationService services.NotificationService
	if mailer != nil {
		notificationService, err = services.NewNotificationService(services.NotificationServiceDeps{
			Orders:   orderRepo,
			Products: productRepo,
			Mailer:   mailer,
			Logger:   serviceLogger(logger.Named("notifications")),
		})
		if err != nil {
			logger.Fatal("failed to initialise notification service", zap.Error(err))
		}
	}

	systemService, err := newSystemService(firestoreClient)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	var locationClient shipping.LocationClient
	if cfg.Speedy.Enabled() {
		locationClient, err = shipping.NewSpeedyClient(shipping.SpeedyClientDeps{Config: cfg.Speedy})
		if err != nil {
			logger.Fatal("failed to initialise courier client", zap.Error(err))
		}
	} else {
		logger.Warn("speedy credentials not configured; shipping lookups are disabled")
	}

	authenticator := auth.NewAPIKeyAuthenticator(cfg.Security.APIKey, auth.WithHeader(cfg.Security.APIKeyHeader))

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	checkoutIdempotency := idempotency.Middleware(idempotencyStore,
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	projectID := strings.TrimSpace(cfg.Firestore.ProjectID)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	orderHandlers := handlers.NewOrderHandlers(orderService, notificationService)
	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(systemService)),
		handlers.WithProductRoutes(handlers.NewProductHandlers(catalogService).Routes),
		handlers.WithCheckoutRoutes(orderHandlers.PublicRoutes),
		handlers.WithCheckoutMiddlewares(checkoutIdempotency),
		handlers.WithShippingRoutes(handlers.NewShippingHandlers(locationClient).Routes),
		handlers.WithOrderRoutes(orderHandlers.ManagementRoutes),
		handlers.WithInvoiceRoutes(handlers.NewInvoiceHandlers(invoiceService).Routes),
		handlers.WithAdminRoutes(handlers.NewAdminHandlers(catalogService).Routes),
		handlers.WithManagementMiddlewares(authenticator.Middleware()),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("sofia-padel api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func serviceLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Info("service event", zFields...)
	}
}

func newSystemService(client *firestore.Client) (services.SystemService, error) {
	if client == nil {
		return nil, errors.New("health: firestore client is required")
	}

	checks := []repositories.DependencyCheck{
		{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := client.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		},
	}

	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
	})
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(".secrets.local"),
	}
	if projectID := strings.TrimSpace(os.Getenv("API_FIRESTORE_PROJECT_ID")); projectID != "" {
		opts = append(opts, secrets.WithProject(projectID))
	}
	return secrets.NewFetcher(ctx, opts...)
}
