package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"foldershare/internal/config"
	"foldershare/internal/repository/postgres"
	"foldershare/internal/seed"
	serviceAuth "foldershare/internal/service/auth"
	"foldershare/internal/service/drive"
	"foldershare/internal/service/sharing"
	"foldershare/internal/storage/s3"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	fixturePath := flag.String("file", "seed.yaml", "YAML fixture to load")
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only run migrations, don't load the fixture")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: Cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Println("Ensuring database schema is up to date...")
	if err := postgres.RunMigrations(ctx, pool, tables, logger); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	f, err := os.Open(*fixturePath)
	if err != nil {
		log.Fatalf("Failed to open fixture: %v", err)
	}
	defer f.Close()

	fixture, err := seed.Load(f)
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}

	client, err := s3.NewClient(ctx, s3.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		KeyPrefix: cfg.S3KeyPrefix,
	})
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}
	blobs, err := s3.NewBlobStore(ctx, client, cfg.S3Bucket, cfg.S3KeyPrefix)
	if err != nil {
		log.Fatalf("Failed to open bucket: %v", err)
	}

	repos := postgres.NewRepositories(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})
	resolver := serviceAuth.NewPermissionResolver(repos.Folders, repos.Shares, logger)
	gate := serviceAuth.NewGate(resolver, repos.Folders, repos.Files, logger)
	shares := sharing.NewShareService(repos, resolver, gate, sharing.Options{LinkTTL: cfg.PublicLinkTTL}, logger)

	seeder := seed.NewSeeder(
		repos.Users,
		drive.NewFolderService(repos, resolver, gate, blobs, logger),
		drive.NewFileService(repos, gate, shares, blobs, cfg.MaxUploadBytes, logger),
		shares,
		logger,
	)

	summary, err := seeder.Apply(ctx, fixture)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeding complete: %d users, %d folders, %d files, %d shares",
		summary.Users, summary.Folders, summary.Files, summary.Shares)
	for _, token := range summary.PublicLinks {
		log.Printf("  public link: /public/%s", token)
	}
}

// dropAllTables drops all tables in reverse dependency order
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range tables.DropOrder() {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
		log.Printf("  Dropped %s", table)
	}
	return nil
}
