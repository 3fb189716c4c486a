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

	"golang.org/x/sync/errgroup"

	"issuer-agent/internal/account"
	"issuer-agent/internal/audit"
	accountstore "issuer-agent/internal/account/store"
	"issuer-agent/internal/credential"
	credentialstore "issuer-agent/internal/credential/store"
	"issuer-agent/internal/issuance"
	ledgerclient "issuer-agent/internal/ledger/client"
	"issuer-agent/internal/ledger/correlator"
	"issuer-agent/internal/ledger/kafkafeed"
	"issuer-agent/internal/ledger/rpc"
	"issuer-agent/internal/platform/config"
	"issuer-agent/internal/platform/httpserver"
	"issuer-agent/internal/platform/logger"
	"issuer-agent/internal/platform/metrics"
	"issuer-agent/internal/platform/postgres"
	"issuer-agent/internal/platform/redis"
	"issuer-agent/internal/profile"
	profilestore "issuer-agent/internal/profile/store"
	"issuer-agent/internal/registry"
	registrystore "issuer-agent/internal/registry/store"
	"issuer-agent/internal/resolve"
	httptransport "issuer-agent/internal/transport/http"
	"issuer-agent/internal/vault"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.EncryptionPassword == "" {
		return errors.New("ENCRYPTION_PASSWORD is required")
	}
	author, err := vault.DeriveSigningIdentity(cfg.AuthorMnemonic)
	if err != nil {
		return fmt.Errorf("derive author identity: %w", err)
	}
	log.Info("author identity resolved", "address", author.Address)

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	feed, err := kafkafeed.New(cfg.KafkaBrokers, cfg.LedgerTopic, log)
	if err != nil {
		return fmt.Errorf("open ledger feed: %w", err)
	}
	defer feed.Close()
	if err := feed.EnsureTopic(ctx, 1, 1); err != nil {
		return fmt.Errorf("ensure ledger topic: %w", err)
	}

	node := rpc.New(cfg.LedgerURL)
	chain := ledgerclient.New(node, feed)

	m := metrics.New()
	corr := correlator.New(feed, log,
		correlator.WithDeadline(cfg.ConfirmDeadline),
		correlator.WithMetrics(correlator.NewMetrics()))
	recorder := audit.NewRecorder(256, log)
	auditWorker := audit.NewWorker(audit.NewPostgres(db), recorder, log)
	coord := issuance.New(chain, corr, log, m, issuance.WithAudit(recorder))
	resolver := resolve.New(resolve.NewRedisStore(redisClient), cfg.CacheTTL, log,
		resolve.WithMetrics(resolve.NewMetrics()))

	profiles := profile.NewService(coord, chain, profilestore.NewPostgres(db), resolver, profile.Config{
		Author:             author,
		FundingAmount:      cfg.FundingAmount,
		EncryptionPassword: cfg.EncryptionPassword,
		PollAttempts:       cfg.PollAttempts,
		PollDelay:          cfg.PollDelay,
	}, log)
	signers := profile.NewSigners(profilestore.NewPostgres(db), cfg.EncryptionPassword, log)

	registries := registry.NewService(coord, signers, registrystore.NewPostgres(db), log)
	credentials := credential.NewService(coord, signers, registrystore.NewPostgres(db), credentialstore.NewPostgres(db), log)

	tokens := account.NewTokenService(cfg.JWTSigningKey, cfg.SessionTTL)
	accounts := account.NewService(accountstore.NewPostgres(db), tokens, cfg.EncryptionPassword, log)

	handler := httptransport.NewHandler(accounts, profiles, registries, credentials, log)
	router := httptransport.NewRouter(handler, httptransport.NewAuthenticator(accounts, tokens), cfg.AdminToken)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feed.Run(gctx)
	})
	g.Go(func() error {
		return auditWorker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shut down cleanly")
	return nil
}
