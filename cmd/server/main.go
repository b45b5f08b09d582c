package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/investdash-backend/internal/adapter/auth"
	grpcadapter "github.com/simaogato/investdash-backend/internal/adapter/grpc"
	"github.com/simaogato/investdash-backend/internal/adapter/repository/memory"
	"github.com/simaogato/investdash-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/investdash-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/investdash-backend/internal/config"
	"github.com/simaogato/investdash-backend/internal/domain"
	"github.com/simaogato/investdash-backend/internal/logger"
	"github.com/simaogato/investdash-backend/internal/usecase/ledger"
	"github.com/simaogato/investdash-backend/internal/usecase/portfolio"
	"github.com/simaogato/investdash-backend/internal/usecase/seeder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	ctx := context.Background()

	// 1. Setup storage
	transactionRepo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("Failed to open storage")
	}
	defer closeStore()

	// 2. Initialize Services (Use Cases)
	cache := portfolio.NewResultCache(cfg.CacheTTL)
	if !cfg.CacheEnabled() {
		log.Info().Msg("Analytics cache disabled")
	}
	portfolioService := portfolio.NewPortfolioService(transactionRepo, cache, log)
	ledgerService := ledger.NewLedgerService(transactionRepo, cache, log)

	if cfg.SeedDemo {
		created, err := seeder.NewDemoSeeder(transactionRepo).Seed(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed demo ledger")
		}
		cache.Invalidate(nil)
		log.Info().Int("created", created).Msg("Demo ledger seeded")
	}

	// 3. Start gRPC Server
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.RecoveryInterceptor(log),
			grpcadapter.LoggingInterceptor(log),
			grpcadapter.RateLimitInterceptor(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)),
			grpcadapter.AuthInterceptor(tokens, grpcadapter.HealthMethods...),
		),
	)

	grpcadapter.RegisterPortfolioServiceServer(grpcServer, grpcadapter.NewServer(portfolioService, ledgerService))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)

	addr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", addr).Msg("Failed to listen")
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Str("driver", cfg.DBDriver).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve gRPC server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, healthServer, log)
}

// openStore opens the configured ledger storage and returns its closer
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.TransactionRepository, func(), error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := connectPostgres(cfg.DBConnStr, log)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewTransactionRepository(db), func() { db.Close() }, nil

	case config.DriverSQLite:
		db, err := sqlite.NewDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewTransactionRepository(db), func() { db.Close() }, nil

	default:
		log.Warn().Msg("Using in-memory storage, nothing will be persisted")
		return memory.NewTransactionRepository(), func() {}, nil
	}
}

// connectPostgres retries while the database container starts up
func connectPostgres(connStr string, log zerolog.Logger) (*postgres.DB, error) {
	const attempts = 5
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := postgres.NewDB(connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", i).Msg("Database not ready")
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, lastErr)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, healthServer *health.Server, log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")
}
