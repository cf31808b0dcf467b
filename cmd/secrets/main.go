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

	goredis "github.com/redis/go-redis/v9"

	adapthttp "secrets/internal/adapter/http"
	"secrets/internal/adapter/memory"
	"secrets/internal/adapter/oidc"
	"secrets/internal/adapter/postgres"
	"secrets/internal/adapter/redis"
	"secrets/internal/app"
	"secrets/internal/config"
	"secrets/internal/credential"
	"secrets/internal/domain"
	"secrets/internal/logging"
)

const sweepInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.NewJSON(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "starting", "config", fmt.Sprintf("%+v", cfg.Redacted()))

	var (
		users    domain.UserRepository
		sessRepo domain.SessionRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		defer func() { _ = db.Close() }()
		users, sessRepo = db, postgres.NewSessionRepo(db)
	} else {
		log.Warn(ctx, "DATABASE_URL not set, using in-memory store")
		mem := memory.New()
		users, sessRepo = mem, mem.NewSessionRepo()
	}
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		rs := redis.NewSessionRepo(rdb, "")
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		sessRepo = rs
	}

	codec, err := credential.New(credential.Options{Variant: cfg.Codec, Key: cfg.SecretKey, Cost: cfg.BcryptCost})
	if err != nil {
		return fmt.Errorf("credential codec: %w", err)
	}

	store := app.NewUserStore(users)
	sessions := app.NewSessionManager(sessRepo, users,
		app.WithTTL(cfg.SessionTTL),
		app.WithSlidingExpiry(cfg.SessionSliding),
		app.WithLogger(log),
	)

	opts := adapthttp.Options{
		Auth:          app.NewAuthService(store, sessions, codec, log),
		Sessions:      sessions,
		Notes:         app.NewNotesService(store, cfg.SecretsView == config.ViewAggregate),
		Logger:        log,
		PublicURL:     cfg.PublicURL,
		SecureCookies: cfg.CookieSecure,
	}

	if cfg.OIDC.Enabled() {
		provider, err := oidc.NewProvider(ctx, oidc.Options{
			Name:         cfg.OIDC.Provider,
			Issuer:       cfg.OIDC.Issuer,
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.CallbackURL(),
		})
		if err != nil {
			return fmt.Errorf("oidc provider: %w", err)
		}
		states, err := oidc.NewStateSigner(cfg.SecretKey)
		if err != nil {
			return fmt.Errorf("oidc state: %w", err)
		}
		opts.Federated = app.NewFederatedLogin(store, sessions, log, provider)
		opts.States = states
		log.Info(ctx, "federated login enabled", "provider", cfg.OIDC.Provider)
	}

	renderer, err := adapthttp.NewTemplateRenderer()
	if err != nil {
		return err
	}
	opts.Renderer = renderer

	go sweep(ctx, sessions, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           adapthttp.New(opts).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweep removes expired sessions until ctx is cancelled.
func sweep(ctx context.Context, sessions *app.SessionManager, log logging.Logger) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := sessions.Sweep(ctx); err != nil {
				log.Warn(ctx, "session sweep failed", "error", err)
			}
		}
	}
}
