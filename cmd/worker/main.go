package main

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/hookrelay/modules/delivery"
	"github.com/dmitrymomot/hookrelay/pkg/config"
	"github.com/dmitrymomot/hookrelay/pkg/kvstore"
	"github.com/dmitrymomot/hookrelay/pkg/logger"
	"github.com/dmitrymomot/hookrelay/pkg/pg"
	"github.com/dmitrymomot/hookrelay/pkg/queue"
	"github.com/dmitrymomot/hookrelay/pkg/redis"
	"github.com/dmitrymomot/hookrelay/pkg/secrets"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// QueueBackend selects the task queue transport: memory | redis.
	QueueBackend string `env:"QUEUE_BACKEND" envDefault:"redis"`

	// StoreBackend selects the shared store: memory | redis | none.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"redis"`

	// MainSecret is the base64 32-byte key that encrypts endpoint signing
	// secrets at rest. Empty runs without at-rest encryption.
	MainSecret string `env:"MAIN_SECRET"`
}

func main() {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Env, "hookrelay-worker"))
	logger.SetAsDefault(log)

	if err := run(appCfg, log); err != nil {
		log.Error("worker exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(appCfg appConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pgCfg pg.Config
	config.MustLoad(&pgCfg)
	var deliveryCfg delivery.Config
	config.MustLoad(&deliveryCfg)
	var queueCfg queue.Config
	config.MustLoad(&queueCfg)

	enc, err := buildEncryption(appCfg.MainSecret)
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	needsRedis := appCfg.QueueBackend == "redis" || appCfg.StoreBackend == "redis"
	var redisClient goredis.UniversalClient
	if needsRedis {
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)
		redisClient, err = redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
	}

	var store kvstore.Store
	switch appCfg.StoreBackend {
	case "redis":
		store = kvstore.NewRedisStore(redisClient)
	case "memory":
		store = kvstore.NewMemoryStore()
	case "none":
		store = kvstore.NewNoneStore()
	default:
		return errors.New("unknown store backend: " + appCfg.StoreBackend)
	}

	var transport queue.Transport
	switch appCfg.QueueBackend {
	case "redis":
		transport = queue.NewRedisTransport(redisClient, queueCfg)
	case "memory":
		mem := queue.NewMemoryTransport(queueCfg)
		defer func() { _ = mem.Close() }()
		transport = mem
	default:
		return errors.New("unknown queue backend: " + appCfg.QueueBackend)
	}

	repo := delivery.NewPgRepository(pool)
	health := delivery.NewHealthTracker(store)
	opSender, err := delivery.NewOperationalWebhookSender(deliveryCfg, enc, log)
	if err != nil {
		return err
	}
	dispatcher := delivery.NewDispatcher(deliveryCfg, enc, repo, transport, health, opSender, log)
	processor := delivery.NewProcessor(repo, dispatcher, deliveryCfg, log)
	worker := delivery.NewWorker(transport, processor, deliveryCfg, log)

	httpSrv := newOpsServer(appCfg.HTTPAddr, pool, redisClient)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops http server failed", logger.Error(err))
		}
	}()

	workerDone := make(chan error, 1)
	go func() { workerDone <- worker.Run(ctx) }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, draining")
		worker.Shutdown()
		<-workerDone
	case err := <-workerDone:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func buildEncryption(mainSecret string) (secrets.Encryption, error) {
	if mainSecret == "" {
		return secrets.NewNoop(), nil
	}
	raw, err := base64.StdEncoding.DecodeString(mainSecret)
	if err != nil {
		return secrets.Encryption{}, err
	}
	return secrets.New(raw)
}

// newOpsServer exposes liveness and readiness of the worker process. This is
// not the platform's ingress API; it only answers infrastructure probes.
func newOpsServer(addr string, pool *pgxpool.Pool, redisClient goredis.UniversalClient) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := pg.Healthcheck(pool)(req.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redis.Healthcheck(redisClient)(req.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	return &http.Server{Addr: addr, Handler: r}
}
