package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"

	"library/internal/catalog"
	"library/internal/importer"
	"library/internal/logger"
	"library/internal/service"
	"library/internal/storage/authors"
	"library/internal/storage/books"
	"library/internal/storage/genres"
	"library/internal/storage/schema"
	"library/internal/storage/session"
)

func getEnvOrDefault(key, default_ string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}

	return default_
}

func getBoolEnv(key string) bool {
	if val := strings.ToLower(os.Getenv(key)); val == "yes" || val == "on" || val == "true" {
		return true
	}

	return false
}

var (
	feedUrl   = os.Getenv("FEED_URL")
	maxPages  = getEnvOrDefault("MAX_PAGES", "0")
	dryRun    = getBoolEnv("DRY_RUN")
	migrate   = getBoolEnv("MIGRATE")
	logLevel  = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "debug"))
	logFormat = getEnvOrDefault("LOG_FORMAT", "text")
	dbConnStr = os.Getenv("DATABASE_URL")
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	var lvl slog.Level
	lvlErr := lvl.UnmarshalText([]byte(logLevel))
	if lvlErr != nil {
		lvl = slog.LevelDebug
	}

	if err := logger.SetupSLog(logFormat, lvl, path.Dir(path.Dir(path.Dir(thisFile))), nil); err != nil {
		slog.Error("Invalid LOG_FORMAT: " + err.Error())
		os.Exit(1)
	}

	if lvlErr != nil {
		slog.Error("Invalid log level specified in LOG_LEVEL, one of debug, info, warn or error expected")
		os.Exit(1)
	}

	if feedUrl == "" {
		slog.Error("You need to specify FEED_URL env var")
		os.Exit(1)
	}

	feed, err := url.Parse(feedUrl)
	if err != nil {
		slog.Error("Invalid URL in FEED_URL: " + err.Error())
		os.Exit(1)
	}

	pages, err := strconv.Atoi(maxPages)
	if err != nil || pages < 0 {
		slog.Error("MAX_PAGES must be a non-negative integer")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	im := importer.Importer{
		Client:   &http.Client{Timeout: time.Minute},
		Logger:   slog.Default(),
		MaxPages: pages,
	}

	if dryRun {
		err = im.Import(ctx, feed, &importer.LoggerConsumer{Logger: slog.Default()})
		if err != nil {
			slog.Error("Import failed: " + err.Error())
			os.Exit(1)
		}
		return
	}

	cfg, err := pgxpool.ParseConfig(dbConnStr)
	if err != nil {
		slog.Error("Failed to parse DATABASE_URL: " + err.Error())
		os.Exit(1)
	}

	cfg.ConnConfig.Tracer = logger.NewPGXTracer(slog.Default())

	pg, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		slog.Error("failed to create postgres pool: " + err.Error())
		os.Exit(1)
	}
	defer pg.Close()

	if migrate {
		conn, err := pg.Acquire(ctx)
		if err != nil {
			slog.Error("Failed to acquire connection: " + err.Error())
			os.Exit(1)
		}

		err = schema.Apply(ctx, conn)
		conn.Release()
		if err != nil {
			slog.Error("Failed to apply schema: " + err.Error())
			os.Exit(1)
		}
	}

	l := slog.Default()
	sm := session.NewManager(session.PoolSource{Pool: pg}, l)
	ar := authors.NewPGXRepository(l)
	br := books.NewPGXRepository(l)
	gr := genres.NewPGXRepository(l)

	consumer := importer.StoringConsumer{
		Logger: l,
		Books:  service.NewBooks(catalog.NewBooks(sm, ar, br, gr, l), l),
	}

	err = im.Import(ctx, feed, &consumer)
	if err != nil {
		slog.Error("Import failed: "+err.Error(), slog.Int("saved", consumer.Saved))
		os.Exit(1)
	}

	slog.Info("Import finished", slog.Int("saved", consumer.Saved), slog.Int("skipped", consumer.Skipped))
}
