// Package main provides the fleet registry server entry point. It hosts the
// registry CRUD APIs, the driver and vehicle association APIs and the audit
// trail under a single process.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fleetops/fleet-registry/pkg/association"
	"github.com/fleetops/fleet-registry/pkg/audit"
	"github.com/fleetops/fleet-registry/pkg/db"
	"github.com/fleetops/fleet-registry/pkg/registry"
	"github.com/fleetops/fleet-registry/pkg/tenancy"
)

func main() {
	var (
		listenAddr   string
		databaseType string
		databaseDSN  string
		tenancyMode  string
	)

	flag.StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
	flag.StringVar(&databaseType, "db-type", "postgres", "Database type (postgres, mysql or sqlite)")
	flag.StringVar(&databaseDSN, "db-dsn", "", "Database connection string")
	flag.StringVar(&tenancyMode, "tenancy-mode", "", "Account resolution mode (header or jwt)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if databaseDSN == "" {
		databaseDSN = os.Getenv("DATABASE_DSN")
	}
	if databaseDSN == "" && databaseType != "sqlite" {
		logger.Error("database DSN is required (use -db-dsn flag or DATABASE_DSN environment variable)")
		os.Exit(1)
	}
	if tenancyMode == "" {
		tenancyMode = envOrDefault("FLEET_TENANCY_MODE", string(tenancy.ModeHeader))
	}

	logger.Info("starting fleet registry server",
		"listen", listenAddr,
		"dbType", databaseType,
		"tenancyMode", tenancyMode,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	gormDB, err := db.Connect(db.Config{Type: databaseType, DSN: databaseDSN})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Stores.
	accounts := registry.NewAccountStore(gormDB)
	drivers := registry.NewDriverStore(gormDB)
	vehicles := registry.NewVehicleStore(gormDB)
	groups := registry.NewGroupStore(gormDB)
	assocStore := association.NewStore(gormDB)
	auditStore := audit.NewStore(gormDB)

	for _, m := range []func() error{
		accounts.AutoMigrate,
		drivers.AutoMigrate,
		vehicles.AutoMigrate,
		groups.AutoMigrate,
		assocStore.AutoMigrate,
		auditStore.AutoMigrate,
	} {
		if err := m(); err != nil {
			logger.Error("database migration failed", "error", err)
			os.Exit(1)
		}
	}

	// Lifecycle managers and ownership guards.
	driverManager := association.NewDriverManager(assocStore, drivers, accounts, logger)
	vehicleManager := association.NewVehicleManager(assocStore, vehicles, accounts, groups, logger)
	driverOwnership := association.NewOwnership(association.KindDriver, assocStore, logger)
	vehicleOwnership := association.NewOwnership(association.KindVehicle, assocStore, logger)
	driverQueries := association.NewQueryService(association.KindDriver, assocStore)
	vehicleQueries := association.NewQueryService(association.KindVehicle, assocStore)

	// Audit trail.
	auditCfg := audit.ConfigFromEnv()
	if auditCfg.Enabled {
		sink := audit.NewSink(auditStore, logger)
		driverManager.SetAuditSink(sink)
		vehicleManager.SetAuditSink(sink)
		go audit.NewRetentionWorker(auditStore, auditCfg.RetentionDays, logger).Run(ctx)
	} else {
		logger.Info("audit trail disabled")
	}

	// Tenancy.
	resolver, err := newResolver(tenancy.Mode(tenancyMode), logger)
	if err != nil {
		logger.Error("failed to configure tenancy", "error", err)
		os.Exit(1)
	}

	// Routes.
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", tenancy.AccountHeader},
	}))

	router.Get("/livez", healthHandler)
	router.Get("/readyz", healthHandler)

	registryRouters := registry.NewRouters(accounts, drivers, vehicles, groups, driverOwnership, vehicleOwnership)

	router.Route("/api/fleet/v1", func(r chi.Router) {
		r.Use(tenancy.Middleware(resolver))
		r.Mount("/accounts", registryRouters.Accounts)
		r.Mount("/drivers", registryRouters.Drivers)
		r.Mount("/vehicles", registryRouters.Vehicles)
		r.Mount("/vehicle-groups", registryRouters.Groups)
		r.Mount("/driver-associations", association.Router(driverManager, driverQueries))
		r.Mount("/vehicle-associations", association.Router(vehicleManager, vehicleQueries))
		r.Mount("/audit-events", audit.Router(auditStore))
	})

	logger.Info("fleet registry server ready", "listen", listenAddr)

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("fleet registry server stopped")
}

// newResolver builds the account resolver. JWT mode is configured through
// FLEET_JWT_ACCOUNT_CLAIM and FLEET_JWT_PUBLIC_KEY_PATH.
func newResolver(mode tenancy.Mode, logger *slog.Logger) (tenancy.Resolver, error) {
	if mode == tenancy.ModeJWT {
		return tenancy.NewJWTResolver(tenancy.JWTResolverConfig{
			AccountClaim:  os.Getenv("FLEET_JWT_ACCOUNT_CLAIM"),
			PublicKeyPath: os.Getenv("FLEET_JWT_PUBLIC_KEY_PATH"),
			Logger:        logger,
		})
	}
	return tenancy.NewModeResolver(mode)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
