package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"runtime"
	"strings"
	"syscall"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"library/internal/catalog"
	"library/internal/logger"
	"library/internal/response"
	"library/internal/server"
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
	logLevel        = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "debug"))
	logFormat       = getEnvOrDefault("LOG_FORMAT", "text")
	dbConnStr       = os.Getenv("DATABASE_URL")
	bindAddr        = getEnvOrDefault("BIND_ADDR", ":8080")
	debugMode       = getBoolEnv("DEBUG_MODE")
	migrate         = getBoolEnv("MIGRATE")
	shutdownTimeout = getEnvOrDefault("SHUTDOWN_TIMEOUT", "10s")
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	var lvl slog.Level
	lvlErr := lvl.UnmarshalText([]byte(logLevel))
	if lvlErr != nil {
		lvl = slog.LevelDebug
	}

	if err := logger.SetupSLog(logFormat, lvl, path.Dir(path.Dir(path.Dir(thisFile))), middleware.RequestIDKey); err != nil {
		slog.Error("Invalid LOG_FORMAT: " + err.Error())
		os.Exit(1)
	}

	if lvlErr != nil {
		slog.Error("Invalid log level specified in LOG_LEVEL, one of debug, info, warn or error expected")
		os.Exit(1)
	}

	gracePeriod, err := time.ParseDuration(shutdownTimeout)
	if err != nil {
		slog.Error("Invalid SHUTDOWN_TIMEOUT: " + err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
		if err := applySchema(ctx, pg); err != nil {
			slog.Error("Failed to apply schema: " + err.Error())
			os.Exit(1)
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Mount("/", server.Handler(newServices(pg), &response.Responder{DebugMode: debugMode}))

	srv := &http.Server{
		Addr:    bindAddr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening on " + bindAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracePeriod)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("aborting: " + err.Error())
		os.Exit(1)
	}
}

func newServices(pg *pgxpool.Pool) server.Services {
	l := slog.Default()

	sm := session.NewManager(session.PoolSource{Pool: pg}, l)
	ar := authors.NewPGXRepository(l)
	br := books.NewPGXRepository(l)
	gr := genres.NewPGXRepository(l)

	return server.Services{
		Authors: service.NewAuthors(catalog.NewAuthors(sm, ar, br, gr, l), l),
		Books:   service.NewBooks(catalog.NewBooks(sm, ar, br, gr, l), l),
		Genres:  service.NewGenres(catalog.NewGenres(sm, gr, l), l),
	}
}

func applySchema(ctx context.Context, pg *pgxpool.Pool) error {
	conn, err := pg.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if err := schema.Apply(ctx, conn); err != nil {
		return err
	}

	slog.Info("Schema applied")
	return nil
}
