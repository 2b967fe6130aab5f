package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	accountstore "medbridge/internal/accounts/store"
	biometricservice "medbridge/internal/biometric/service"
	"medbridge/internal/biometric/verifier"
	"medbridge/internal/cooldown"
	cooldownmiddleware "medbridge/internal/cooldown/middleware"
	cooldownstore "medbridge/internal/cooldown/store"
	docmetrics "medbridge/internal/document/metrics"
	"medbridge/internal/document/ocr"
	docservice "medbridge/internal/document/service"
	"medbridge/internal/emailverify/dispatch"
	emailmetrics "medbridge/internal/emailverify/metrics"
	emailservice "medbridge/internal/emailverify/service"
	emailstore "medbridge/internal/emailverify/store"
	"medbridge/internal/onboarding/events"
	onboardinghandler "medbridge/internal/onboarding/handler"
	onboardingmetrics "medbridge/internal/onboarding/metrics"
	onboardingservice "medbridge/internal/onboarding/service"
	sessionstore "medbridge/internal/onboarding/store"
	"medbridge/internal/platform/config"
	"medbridge/internal/platform/httpserver"
	"medbridge/internal/platform/kafka"
	"medbridge/internal/platform/logger"
	"medbridge/internal/platform/metrics"
	"medbridge/internal/platform/postgres"
	"medbridge/internal/platform/redis"
	registryclient "medbridge/internal/registry/client"
	registrymetrics "medbridge/internal/registry/metrics"
	registryservice "medbridge/internal/registry/service"
	registrystore "medbridge/internal/registry/store"
	"medbridge/internal/sessiontoken"
	"medbridge/pkg/platform/audit/publisher"
	auditmemory "medbridge/pkg/platform/audit/store/memory"
	"medbridge/pkg/platform/circuit"
	"medbridge/pkg/platform/httputil"
)

const sweepInterval = time.Minute

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// infra holds the optional shared backends. Nil members are not configured.
type infra struct {
	redis    *redis.Client
	postgres *postgres.DB
	kafka    *kafka.Producer
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.postgres != nil {
		_ = i.postgres.Close()
	}
}

func connect(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	var (
		in  infra
		err error
	)
	if in.redis, err = redis.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if in.postgres, err = postgres.New(ctx, cfg.Database); err != nil {
		in.close()
		return nil, err
	}
	if cfg.Email.Dispatcher == "kafka" {
		if in.kafka, err = kafka.NewProducer(cfg.Kafka.Brokers); err != nil {
			in.close()
			return nil, err
		}
		if err := in.kafka.EnsureTopic(ctx, cfg.Kafka.Topic); err != nil {
			in.close()
			return nil, err
		}
	}
	log.Info("backends connected",
		"redis", in.redis != nil,
		"postgres", in.postgres != nil,
		"kafka", in.kafka != nil,
	)
	return &in, nil
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	in, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.close()

	group, ctx := errgroup.WithContext(ctx)

	registry := buildRegistry(ctx, group, cfg, in, log)
	documents := docservice.New(
		ocr.New(cfg.OCR.URL, cfg.OCR.APIKey, cfg.OCR.Timeout),
		docservice.WithMaxImageBytes(int(cfg.OCR.MaxImageBytes)),
		docservice.WithMetrics(docmetrics.New()),
		docservice.WithLogger(log),
	)
	bioVerifier, err := buildVerifier(cfg.Biometric)
	if err != nil {
		return err
	}
	biometric := biometricservice.New(bioVerifier, biometricservice.WithLogger(log))
	limits := buildCooldownStore(ctx, group, in)
	email := buildEmailVerifier(ctx, group, cfg, in, limits, log)

	accounts, err := buildAccountStore(ctx, in)
	if err != nil {
		return err
	}

	auditor := publisher.NewPublisher(auditmemory.NewInMemoryStore(),
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
	)
	defer auditor.Close()

	bus := events.NewBus()
	defer bus.Close()
	onboardingMetrics := onboardingmetrics.New()
	metricsSub := bus.Subscribe(256)
	group.Go(func() error {
		onboardingMetrics.Consume(ctx, metricsSub)
		return nil
	})

	sessions := sessionstore.NewInMemorySessionStore(cfg.SessionTTL)
	group.Go(func() error {
		sessions.RunSweeper(ctx, sweepInterval, func(removed int) {
			onboardingMetrics.SetActiveSessions(sessions.Count())
			if removed > 0 {
				log.Info("expired onboarding sessions swept", "removed", removed)
			}
		})
		return nil
	})

	tokens := sessiontoken.NewService(cfg.SessionSigningKey, cfg.SessionIssuer, "medbridge-onboarding")
	onboarding, err := onboardingservice.New(sessions, accounts, tokens,
		onboardingservice.Gates{
			Registry:  registry,
			Documents: documents,
			Biometric: biometric,
			Email:     email,
		},
		onboardingservice.WithReferralCode(cfg.ReferralCode),
		onboardingservice.WithAuditor(auditor),
		onboardingservice.WithEvents(bus),
		onboardingservice.WithMetrics(onboardingMetrics),
		onboardingservice.WithLogger(log),
	)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	onboardinghandler.New(onboarding, tokens, log, metrics.New(),
		onboardinghandler.WithMaxBodyBytes(2*cfg.OCR.MaxImageBytes),
		onboardinghandler.WithStartLimit(
			cooldownmiddleware.New(limits, cfg.SessionStartLimit, cfg.SessionStartWindow, log,
				cooldownmiddleware.WithDisabled(cfg.RateLimitDisabled),
			).LimitByIP("session_start"),
		),
	).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthHandler(in))

	srv := httpserver.New(cfg.Addr, router)
	group.Go(func() error {
		log.Info("starting medbridge", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func buildRegistry(ctx context.Context, group *errgroup.Group, cfg config.Server, in *infra, log *slog.Logger) *registryservice.Service {
	var cache registryservice.Cache
	if in.redis != nil {
		cache = registrystore.NewRedisCache(in.redis.Client, cfg.Registry.CacheTTL)
	} else {
		mem := registrystore.NewInMemoryCache(cfg.Registry.CacheTTL)
		group.Go(func() error {
			runEvery(ctx, sweepInterval, func() { mem.Purge(ctx) })
			return nil
		})
		cache = mem
	}
	return registryservice.New(
		registryclient.New(cfg.Registry.BaseURL, cfg.Registry.Timeout),
		registryservice.WithCache(cache),
		registryservice.WithBreaker(circuit.New("registry")),
		registryservice.WithMetrics(registrymetrics.New()),
		registryservice.WithLogger(log),
	)
}

func buildVerifier(cfg config.BiometricConfig) (verifier.Verifier, error) {
	switch cfg.Policy {
	case "", "always_pass":
		return verifier.AlwaysPass{}, nil
	case "randomized":
		return verifier.NewRandomized(cfg.PassRatio, nil), nil
	case "remote":
		if cfg.RemoteURL == "" {
			return nil, errors.New("BIOMETRIC_REMOTE_URL is required for the remote policy")
		}
		return verifier.NewRemoteMatcher(cfg.RemoteURL, cfg.APIKey, cfg.Threshold, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown biometric policy %q", cfg.Policy)
	}
}

// buildCooldownStore backs both the resend cooldown and request limiting.
func buildCooldownStore(ctx context.Context, group *errgroup.Group, in *infra) cooldown.Store {
	if in.redis != nil {
		return cooldownstore.NewRedisStore(in.redis.Client)
	}
	mem := cooldownstore.NewInMemoryStore()
	group.Go(func() error {
		runEvery(ctx, sweepInterval, func() { mem.Sweep(ctx) })
		return nil
	})
	return mem
}

func buildEmailVerifier(ctx context.Context, group *errgroup.Group, cfg config.Server, in *infra, limits cooldown.Store, log *slog.Logger) *emailservice.Service {
	var (
		codes      emailservice.CodeStore
		dispatcher emailservice.Dispatcher = dispatch.NewLogDispatcher(log)
	)
	if in.redis != nil {
		codes = emailstore.NewRedisCodeStore(in.redis.Client)
	} else {
		mem := emailstore.NewInMemoryCodeStore()
		group.Go(func() error {
			runEvery(ctx, sweepInterval, func() { mem.Sweep(ctx, time.Now()) })
			return nil
		})
		codes = mem
	}
	if in.kafka != nil {
		dispatcher = dispatch.NewKafkaDispatcher(in.kafka, cfg.Kafka.Topic)
	}

	return emailservice.New(codes, dispatcher,
		emailservice.WithInstitutionalSuffix(cfg.Email.InstitutionalSuffix),
		emailservice.WithCodeTTL(cfg.Email.CodeTTL),
		emailservice.WithCooldown(cooldown.New(limits, 1, cfg.Email.ResendCooldown)),
		emailservice.WithAttemptLimit(cooldown.New(limits, cfg.Email.MaxCodeAttempts, cfg.Email.CodeTTL)),
		emailservice.WithMetrics(emailmetrics.New()),
		emailservice.WithLogger(log),
	)
}

func buildAccountStore(ctx context.Context, in *infra) (onboardingservice.AccountStore, error) {
	if in.postgres == nil {
		return accountstore.NewInMemoryStore(), nil
	}
	store := accountstore.NewPostgres(in.postgres.DB)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return newAccountsPostgresTx(in.postgres.DB, store), nil
}

type healthResponse struct {
	Status   string            `json:"status"`
	Backends map[string]string `json:"backends,omitempty"`
}

func healthHandler(in *infra) http.HandlerFunc {
	type check struct {
		name string
		ping func(context.Context) error
	}
	var checks []check
	if in.redis != nil {
		checks = append(checks, check{"redis", in.redis.Health})
	}
	if in.postgres != nil {
		checks = append(checks, check{"postgres", in.postgres.Health})
	}
	if in.kafka != nil {
		checks = append(checks, check{"kafka", in.kafka.Health})
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp := healthResponse{Status: "ok", Backends: map[string]string{}}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.ping(ctx); err != nil {
				resp.Backends[c.name] = "unreachable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Backends[c.name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}

func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
