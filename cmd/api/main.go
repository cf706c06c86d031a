package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tokendrop/distributor/internal/api"
	"github.com/tokendrop/distributor/internal/cache"
	"github.com/tokendrop/distributor/internal/chain"
	"github.com/tokendrop/distributor/internal/chain/stream"
	"github.com/tokendrop/distributor/internal/config"
	"github.com/tokendrop/distributor/internal/distributor"
	"github.com/tokendrop/distributor/internal/events"
	"github.com/tokendrop/distributor/internal/infra"
	"github.com/tokendrop/distributor/internal/metrics"
	"github.com/tokendrop/distributor/internal/shard"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Get()
	logger := slog.Default().With("component", "cmd.api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// C5: proof cache, loaded once from local disk plus an optional
	// Supabase mirror for replicas that don't share a filesystem with the
	// operator that built the shards.
	var mirror cache.SupabaseMirror
	if cfg.Supabase.Enabled {
		m, err := shard.NewSupabaseMirror(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Supabase.Bucket, "")
		if err != nil {
			logger.Warn("supabase mirror init failed, using local shard directory only", "error", err)
		} else {
			mirror = m
		}
	}
	proofCache, err := cache.Load(ctx, cfg.Shards.Dir, mirror)
	if err != nil {
		log.Fatalf("loading proof cache: %v", err)
	}

	// C8: CloudEvents bus, Pub/Sub-backed if configured, in-memory otherwise.
	// PubSubEventBus embeds an in-memory EventBus and fans out to both on
	// every Emit, so the WebSocket endpoint always has a bus to subscribe
	// to regardless of which branch is taken.
	var eventEmitter events.EventEmitter
	var eventBus *events.EventBus
	if cfg.PubSub.Enabled && cfg.PubSub.ProjectID != "" {
		pubsubBus, err := events.NewPubSubEventBus(cfg.PubSub.ProjectID, cfg.PubSub.TopicID)
		if err != nil {
			logger.Warn("pubsub event bus init failed, falling back to in-memory", "error", err)
			eventBus = events.NewEventBus()
			eventEmitter = eventBus
		} else {
			defer pubsubBus.Close()
			eventEmitter = pubsubBus
			eventBus = pubsubBus.EventBus
		}
	} else {
		eventBus = events.NewEventBus()
		eventEmitter = eventBus
	}

	// C4: the distributor state machine. This process is the runtime the
	// rest of the module's chain interfaces describe, so its Program is
	// also where create_distributor runs once at startup for every shard
	// the proof cache discovered (see bootstrapDistributors below).
	program := distributor.NewProgram(chain.SystemClock{}, chain.Ed25519Signer{}, eventEmitter)
	program.SetClawbackLimits(cfg.Clawback.MinDelaySec, cfg.Clawback.MaxHorizonSec)
	if err := bootstrapDistributors(program, proofCache, logger); err != nil {
		logger.Error("distributor bootstrap failed", "error", err)
	}

	// C6: claim-status cache. Bootstraps from the program's own account
	// index, then stays live over a streaming subscription with Redis as
	// an optional cross-replica mirror.
	var redisStore *cache.RedisClaimStore
	if cfg.Redis.Enabled {
		adapter, err := infra.NewGoRedisAdapter(cfg.Redis.Addr, "", 0)
		if err != nil {
			logger.Warn("redis connection failed, claim cache runs without a cross-replica mirror", "addr", cfg.Redis.Addr, "error", err)
		} else {
			redisStore = cache.NewRedisClaimStore(adapter, cfg.Redis.KeyPrefix, time.Duration(cfg.Cache.RefreshIntervalSec)*time.Second*4)
		}
	}

	subClient := dialAccountSubscription(cfg.Chain.StreamAddr, logger)
	claimCache := cache.NewClaimCache(distributor.NewProgramAccountStore(program), subClient, redisStore)
	if err := claimCache.Bootstrap(ctx); err != nil {
		logger.Error("claim cache bootstrap failed", "error", err)
	}
	go claimCache.Run(ctx, &stream.SubscribeRequest{ProgramID: cfg.Chain.ProgramID})

	// Metrics: registered against the process-wide default registerer so
	// /metrics scrapes everything this process emits.
	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	go reportCacheGauges(ctx, proofCache, claimCache, m)

	server := api.NewServer(program, proofCache, claimCache, eventBus, m, 5*time.Second)
	router := server.Router()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"distributor-api"}`))
	}).Methods(http.MethodGet)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("distributor api starting", "port", cfg.Server.Port, "shards", proofCache.NumShards(), "claimants", proofCache.NumClaimants())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed to start: %v", err)
	}
	logger.Info("server stopped")
}

// bootstrapDistributors plays the operator's create_distributor call for
// every shard the proof cache loaded, under a fresh Ed25519 keypair
// generated for this process. Key management and CLI plumbing are out of
// scope; this gives the demo deployment a real, verified signature path
// instead of stubbing it out with an always-valid signer. A shard whose
// vesting start time has already passed is skipped with a warning rather than
// aborting the whole startup, exactly as create_distributor itself would
// reject it (ErrTimestampsNotInFuture) if an operator tried it live.
func bootstrapDistributors(program *distributor.Program, proofCache *cache.ProofCache, logger *slog.Logger) error {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	var admin chain.Address
	copy(admin[:], priv.Public().(ed25519.PublicKey))
	clawbackReceiver := deriveAddress("clawback-receiver", admin[:])

	for _, s := range proofCache.Shards() {
		vault := deriveAddress("vault", s.Mint[:], uint64(s.ShardIndex))
		program.RegisterVault(vault, chain.NewMemoryVault(s.MaxTotalClaim))

		sig := chain.SignCreation(priv, uint64(s.ShardIndex), s.MerkleRoot, s.Mint)
		_, err := program.CreateDistributor(distributor.CreateDistributorParams{
			Version:               uint64(s.ShardIndex),
			Root:                  s.MerkleRoot,
			Mint:                  s.Mint,
			Vault:                 vault,
			Admin:                 admin,
			ClawbackReceiver:      clawbackReceiver,
			ClawbackReceiverOwner: admin,
			MaxTotalClaim:         s.MaxTotalClaim,
			MaxNumNodes:           s.MaxNumNodes,
			StartTs:               s.VestingStartTs,
			EndTs:                 s.VestingEndTs,
			ClawbackStartTs:       s.VestingEndTs + distributor.MinClawbackDelay,
			EnableTs:              s.VestingStartTs,
			Closable:              false,
			Signature:             sig,
		})
		if err != nil {
			logger.Warn("skipping shard bootstrap", "shard_index", s.ShardIndex, "mint", s.Mint.String(), "error", err)
			continue
		}
		logger.Info("distributor bootstrapped", "shard_index", s.ShardIndex, "mint", s.Mint.String(), "max_total_claim", s.MaxTotalClaim)
	}
	return nil
}

// deriveAddress hashes a domain tag with arbitrary seed material into a
// stand-in Address, the same folding DeriveDistributorAddress uses — there
// is no real keypair behind a vault or clawback-receiver account in this
// module, only a stable identifier every component can agree on.
func deriveAddress(tag string, parts ...interface{}) chain.Address {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, p := range parts {
		switch v := p.(type) {
		case []byte:
			h.Write(v)
		case uint64:
			var b [8]byte
			for i := 0; i < 8; i++ {
				b[i] = byte(v >> (8 * i))
			}
			h.Write(b[:])
		}
	}
	var a chain.Address
	copy(a[:], h.Sum(nil))
	return a
}

// dialAccountSubscription connects to the configured gRPC account-stream
// endpoint. If no address is configured, the claim cache runs against a
// mock client that never delivers updates — Bootstrap's one-shot reconcile
// still works, only live push is unavailable.
func dialAccountSubscription(addr string, logger *slog.Logger) stream.AccountSubscriptionClient {
	if addr == "" {
		logger.Warn("no chain stream address configured, claim cache will not receive live updates")
		return stream.NewMockClient()
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.Warn("dialing account subscription stream failed, falling back to mock client", "addr", addr, "error", err)
		return stream.NewMockClient()
	}
	return stream.NewClient(conn)
}

// reportCacheGauges periodically syncs the cache freshness gauges so
// /metrics reflects live state between requests, not just at request time.
func reportCacheGauges(ctx context.Context, proofCache *cache.ProofCache, claimCache *cache.ClaimCache, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.UpdateCacheGauges(proofCache.NumClaimants(), proofCache.NumShards(), claimCache.StalenessSeconds(), claimCache.Connected())
		}
	}
}
