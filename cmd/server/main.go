package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"employee-access-service/internal/code"
	"employee-access-service/internal/config"
	"employee-access-service/internal/datasync"
	"employee-access-service/internal/db"
	identitysvc "employee-access-service/internal/identity/service"
	"employee-access-service/internal/identity/store"
	ledgerrepo "employee-access-service/internal/ledger/repository"
	ledgersvc "employee-access-service/internal/ledger/service"
	"employee-access-service/internal/metrics"
	"employee-access-service/internal/registration"
	"employee-access-service/internal/security"
	"employee-access-service/internal/server"
	otelsetup "employee-access-service/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "employee-access-service", false)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	m := metrics.New()

	// A store that cannot open is the one fatal startup condition.
	var (
		idStore identitysvc.IdentityStore
		sqlDB   *sql.DB
	)
	switch cfg.StoreBackend {
	case config.StoreBackendFile:
		fs, err := store.OpenFile(cfg.DataDir)
		if err != nil {
			log.Fatalf("open file store: %v", err)
		}
		log.Printf("loaded %d identities from %s", fs.Len(), cfg.DataDir)
		idStore = fs
	case config.StoreBackendPostgres:
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer conn.Close()
		sqlDB = conn
		idStore = store.NewPostgres(conn)
	}

	var syncHook datasync.Hook
	if cfg.SyncCommand != "" {
		syncHook = datasync.NewCommand(cfg.SyncCommand, cfg.DataDir)
	}

	identities := identitysvc.New(idStore, code.NewGenerator(code.DefaultLength), syncHook, m)

	var sessions registration.SessionStore
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()
		sessions = registration.NewRedisSessionStore(client, cfg.SessionExpiry())
	default:
		sessions = registration.NewMemorySessionStore()
	}
	machine := registration.NewMachine(sessions, identities)

	// The TTL ledger needs the relational backend.
	var ledger *ledgersvc.Service
	if sqlDB != nil {
		ledger = ledgersvc.New(
			ledgerrepo.NewPostgresRepository(sqlDB),
			code.NewGenerator(cfg.CodeLength),
			cfg.CodeExpiry(),
			m,
		)
	}

	var tokens *security.TokenProvider
	if cfg.JWTPrivateKey != "" && cfg.JWTPublicKey != "" {
		priv, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			log.Fatalf("jwt private key: %v", err)
		}
		pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			log.Fatalf("jwt public key: %v", err)
		}
		tokens = security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
		log.Printf("token signing enabled (%s)", security.KeyAlg(pub))
	}

	srv := server.New(identities, machine, ledger, tokens)

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.Start(cfg.HTTPAddr); err != nil {
			log.Printf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
