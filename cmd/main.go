/**
 * @description
 * This is the main entry point for the luckypool-service. It is responsible
 * for initializing all components of the service, including configuration,
 * database connection, external API clients, message brokers, repositories,
 * the core application service, and the HTTP server. It wires everything
 * together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store, internal/vault:
 *   Internal packages for the service.
 * - pkg/ledgerclient, pkg/randomclient, pkg/rabbitmq: External collaborator clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/luckypool/luckypool-service/internal/api"
	"github.com/luckypool/luckypool-service/internal/app"
	"github.com/luckypool/luckypool-service/internal/config"
	"github.com/luckypool/luckypool-service/internal/domain"
	"github.com/luckypool/luckypool-service/internal/store"
	"github.com/luckypool/luckypool-service/internal/vault"
	"github.com/luckypool/luckypool-service/pkg/ledgerclient"
	lprabbit "github.com/luckypool/luckypool-service/pkg/rabbitmq"
	"github.com/luckypool/luckypool-service/pkg/randomclient"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.MasterSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"master secret must be configured\" env=MASTER_SECRET")
	}
	if strings.TrimSpace(cfg.PoolAccount) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"pool account must be configured\" env=POOL_ACCOUNT")
	}

	log.Printf("level=info component=bootstrap msg=\"starting luckypool-service\" port=%s", cfg.ServerPort)

	// Derive the service key material.
	keyVault, err := vault.New([]byte(cfg.MasterSecret))
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"key derivation failed\" err=%v", err)
	}

	// Initialize the data access layer. With no database configured the
	// service runs on the in-memory store (single-node deployments).
	var repository store.Repository
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"no database url configured; using in-memory store\"")
		repository = store.NewMemoryRepository()
	} else {
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
		}
		poolConfig.MaxConns = 50
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute

		// Disable prepared statement caching to prevent conflicts
		poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

		dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
		}
		defer dbpool.Close()
		log.Println("level=info component=bootstrap msg=\"database connected\"")
		repository = store.NewPostgresRepository(dbpool)
	}

	// Initialize the RabbitMQ producer to publish events.
	// This service only needs to publish, so we use a producer.
	var events lprabbit.Publisher
	rabbitProducer, err := lprabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		events = &lprabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		events = rabbitProducer
	}

	// Initialize the clients for the ledger gateway and the randomness beacon.
	ledgerClient := ledgerclient.NewClient(cfg.LedgerAPIBaseURL, cfg.LedgerAPIKey)
	randomClient := randomclient.NewClient(cfg.RandomAPIBaseURL)

	// The exclusivity guard defaults to the repository; a reachable Redis
	// promotes it to a cluster-wide guard.
	var guard app.ActivityGuard = repository
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; using store-level guard\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; using store-level guard\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
				hostname, _ := os.Hostname()
				guard = app.NewRedisActivityGuard(redisClient, cfg.RedisGuardPrefix, hostname, 2*time.Minute)
			}
		}
	}

	// Seed the aggregate pool ledger.
	pool := app.NewPoolState(cfg.AirdropAmount, cfg.AirdropBalanceTkns*domain.Token1)

	// Initialize the core application service with its dependencies.
	luckyPoolService := app.NewService(
		repository,
		guard,
		ledgerClient,
		randomClient,
		keyVault,
		pool,
		events,
		cfg.PoolAccount,
		func() uint64 { return uint64(time.Now().Unix()) },
	)

	// Initialize the API handlers and router.
	handlers := api.NewLuckyPoolHandlers(luckyPoolService)
	router := api.LuckyPoolRoutes(handlers, cfg.AuthJWTSecret, cfg.InternalAPIKey)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
