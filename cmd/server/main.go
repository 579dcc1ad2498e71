package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/asistetec/internal/audit"
	"github.com/iliyamo/asistetec/internal/auth"
	"github.com/iliyamo/asistetec/internal/config"
	"github.com/iliyamo/asistetec/internal/database"
	"github.com/iliyamo/asistetec/internal/handler"
	"github.com/iliyamo/asistetec/internal/logging"
	"github.com/iliyamo/asistetec/internal/middleware"
	"github.com/iliyamo/asistetec/internal/repository"
	"github.com/iliyamo/asistetec/internal/router"
	"github.com/iliyamo/asistetec/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "asistetec:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel).With("env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	} else if cfg.Redis.Addr != "" {
		log.Warn(ctx, "redis unreachable, login throttling is per instance", "addr", cfg.Redis.Addr)
	}

	codec, err := auth.NewTokenCodec(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}
	hasher := auth.BcryptHasher{Cost: cfg.BcryptCost}

	users := repository.NewUserRepo(db)
	students := repository.NewStudentRepo(db)
	recorder := audit.NewRecorder(repository.NewAuditRepo(db),
		audit.NewAMQPPublisher(cfg.Audit.AMQPURL, cfg.Audit.Queue), log)

	evidence, err := storage.NewEvidenceStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("evidence storage: %w", err)
	}
	var signer handler.EvidenceSigner
	if evidence != nil {
		signer = evidence
	} else {
		log.Info(ctx, "evidence storage disabled")
	}

	if cfg.Admin.Enabled() {
		if err := seedAdmin(ctx, users, hasher, cfg.Admin, log); err != nil {
			return fmt.Errorf("seed administrator: %w", err)
		}
	}

	e := newServer(cfg, log)
	router.RegisterRoutes(e, router.Handlers{
		Health: handler.Health(db),
		Auth: handler.NewAuthHandler(auth.NewAuthenticator(users, hasher, codec),
			users, hasher, recorder, log),
		Attendance: handler.NewAttendanceHandler(repository.NewAttendanceRepo(db), students, recorder),
		Justifications: handler.NewJustificationHandler(repository.NewJustificationRepo(db),
			students, signer, recorder, log),
		Admin: handler.NewAdminHandler(repository.NewDashboardRepo(db), students, users, hasher, recorder),
	}, router.Guards{
		Authn:        middleware.Authenticate(codec, log),
		LoginLimiter: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info(ctx, "listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
