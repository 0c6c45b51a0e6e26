package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"foldershare/internal/auth"
	"foldershare/internal/config"
	"foldershare/internal/domain/repositories"
	"foldershare/internal/domain/services"
	"foldershare/internal/handler"
	"foldershare/internal/middleware"
	"foldershare/internal/repository/memory"
	"foldershare/internal/repository/postgres"
	serviceAuth "foldershare/internal/service/auth"
	"foldershare/internal/service/drive"
	"foldershare/internal/service/sharing"
	blobmem "foldershare/internal/storage/memory"
	"foldershare/internal/storage/s3"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"db_driver", cfg.DBDriver,
		"blob_driver", cfg.BlobDriver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtVerifier, err := newVerifier(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	repos, closeDB, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer closeDB()

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open blob storage: %v", err)
	}

	// Services
	provisioner := serviceAuth.NewProvisioner(repos.Users, logger)
	resolver := serviceAuth.NewPermissionResolver(repos.Folders, repos.Shares, logger)
	gate := serviceAuth.NewGate(resolver, repos.Folders, repos.Files, logger)
	shareService := sharing.NewShareService(repos, resolver, gate, sharing.Options{
		LinkTTL:   cfg.PublicLinkTTL,
		CacheSize: cfg.PublicLinkCacheSize,
		CacheTTL:  cfg.PublicLinkCacheTTL,
	}, logger)
	folderService := drive.NewFolderService(repos, resolver, gate, blobs, logger)
	fileService := drive.NewFileService(repos, gate, shareService, blobs, cfg.MaxUploadBytes, logger)

	if cfg.OrphanSweepInterval > 0 {
		sweeper := drive.NewOrphanSweeper(repos.Orphans, blobs, logger)
		go sweeper.Run(ctx, cfg.OrphanSweepInterval)
	}

	logger.Info("services initialized")

	handlers := &handler.Handlers{
		Folders: handler.NewFolderHandler(folderService, logger),
		Files:   handler.NewFileHandler(fileService, cfg.MaxUploadBytes, logger),
		Shares:  handler.NewShareHandler(shareService, logger),
		Public:  handler.NewPublicHandler(shareService, fileService, logger),
	}

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handlers.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Provision → Metrics → Routes
	var h http.Handler = middleware.Metrics(mux)
	h = middleware.ProvisionUser(provisioner, logger)(h)
	h = middleware.AuthMiddleware(jwtVerifier, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  60 * time.Second, // uploads
		WriteTimeout: 0,                // downloads stream for as long as they need
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newVerifier uses the JWKS endpoint when configured. A shared HS256
// secret is accepted in dev only.
func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.JWTVerifier, error) {
	if cfg.JWKSURL != "" {
		return auth.NewJWTVerifier(cfg.JWKSURL, logger)
	}
	if cfg.Environment == "dev" && cfg.JWTSecret != "" {
		logger.Warn("DEV MODE: verifying tokens with a shared secret")
		secret := []byte(cfg.JWTSecret)
		return auth.NewStaticVerifier(func(*jwt.Token) (interface{}, error) { return secret, nil }, logger), nil
	}
	return nil, errors.New("JWKS_URL is required (JWT_SECRET is accepted in dev only)")
}

// openRepositories connects the configured metadata store
func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories.Set, func(), error) {
	switch cfg.DBDriver {
	case "memory":
		logger.Warn("using in-memory metadata store; data is lost on restart")
		return memory.NewRepositories(memory.NewStore()), func() {}, nil

	case "postgres":
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.RunMigrations(ctx, pool, tables, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}

		logger.Info("database connected", "max_conns", pool.Config().MaxConns)
		return postgres.NewRepositories(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		}), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// openBlobStore connects the configured object store
func openBlobStore(ctx context.Context, cfg *config.Config) (services.BlobStore, error) {
	switch cfg.BlobDriver {
	case "memory":
		return blobmem.NewBlobStore(), nil

	case "s3":
		client, err := s3.NewClient(ctx, s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			KeyPrefix: cfg.S3KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return s3.NewBlobStore(ctx, client, cfg.S3Bucket, cfg.S3KeyPrefix)

	default:
		return nil, fmt.Errorf("unknown BLOB_DRIVER %q", cfg.BlobDriver)
	}
}
