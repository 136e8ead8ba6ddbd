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

	"PinguinGuard/config"
	"PinguinGuard/controllers"
	"PinguinGuard/middlewares"
	"PinguinGuard/repositories"
	"PinguinGuard/repositories/impl"
	"PinguinGuard/repositories/memory"
	"PinguinGuard/routes"
	"PinguinGuard/services"
	"PinguinGuard/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, closeStore, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	firebaseApp, err := config.InitFirebase(ctx, cfg)
	if err != nil {
		return err
	}

	parentRepo, childRepo := store.parents, store.children
	policyRepo, usageRepo := store.policies, store.usage
	requestRepo, historyRepo := store.requests, store.history

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// Initialize services
	notifications, err := services.NewNotificationService(ctx, firebaseApp, parentRepo, childRepo, logger)
	if err != nil {
		return err
	}
	access := services.NewAuthorizer(childRepo)
	policyService := services.NewPolicyService(policyRepo, historyRepo, access, hub, logger)
	usageService := services.NewUsageService(usageRepo, access, loc, logger)
	statusService := services.NewStatusService(policyService, usageService, loc)
	historyService := services.NewHistoryService(historyRepo)
	unblockService := services.NewUnblockService(requestRepo, historyRepo, policyService, access, notifications, hub, logger)

	var verifier middlewares.TokenVerifier = middlewares.JWTVerifier{Secret: []byte(cfg.JWTSecret)}
	if cfg.AuthProvider == "firebase" {
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			return err
		}
		verifier = services.NewFirebaseTokenVerifier(authClient, parentRepo, childRepo)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())

	routes.RegisterRoutes(r, middlewares.AuthMiddleware(verifier), routes.Controllers{
		ParentalControl: controllers.NewParentalControlController(policyService, unblockService, usageService, historyService, statusService, logger),
		WebSocket:       controllers.NewWebSocketController(hub, logger),
		Health:          controllers.NewHealthController(store.pinger),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type storage struct {
	parents  repositories.ParentRepository
	children repositories.ChildRepository
	policies repositories.PolicyRepository
	usage    repositories.UsageRepository
	requests repositories.UnblockRequestRepository
	history  repositories.HistoryRepository
	pinger   controllers.Pinger
}

func openStorage(cfg config.Config, logger *zap.Logger) (storage, func(), error) {
	if cfg.UseMockDB {
		logger.Warn("using in-memory storage, data is lost on restart")
		mem := memory.NewStore()
		mem.SeedDemoFamily()
		return storage{
			parents:  mem.Parents(),
			children: mem.Children(),
			policies: mem.Policies(),
			usage:    mem.Usage(),
			requests: mem.Requests(),
			history:  mem.History(),
			pinger:   mem,
		}, func() {}, nil
	}

	db, err := config.InitDatabase(cfg, logger)
	if err != nil {
		return storage{}, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return storage{}, nil, err
	}
	return storage{
		parents:  impl.NewParentRepository(db),
		children: impl.NewChildRepository(db),
		policies: impl.NewPolicyRepository(db),
		usage:    impl.NewUsageRepository(db),
		requests: impl.NewUnblockRequestRepository(db),
		history:  impl.NewHistoryRepository(db),
		pinger:   sqlDB,
	}, func() { sqlDB.Close() }, nil
}
