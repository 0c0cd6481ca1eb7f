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

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/device-profile-api/internal/http/health"
	"github.com/janisto/device-profile-api/internal/http/v1/routes"
	"github.com/janisto/device-profile-api/internal/platform/auth"
	"github.com/janisto/device-profile-api/internal/platform/config"
	"github.com/janisto/device-profile-api/internal/platform/firebase"
	applog "github.com/janisto/device-profile-api/internal/platform/logging"
	"github.com/janisto/device-profile-api/internal/platform/metrics"
	appmiddleware "github.com/janisto/device-profile-api/internal/platform/middleware"
	"github.com/janisto/device-profile-api/internal/platform/pagination"
	"github.com/janisto/device-profile-api/internal/platform/postgres"
	"github.com/janisto/device-profile-api/internal/platform/respond"
	"github.com/janisto/device-profile-api/internal/platform/secretbox"
	profilesvc "github.com/janisto/device-profile-api/internal/service/deviceprofile"
	templatesvc "github.com/janisto/device-profile-api/internal/service/template"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const docsPath = "/api-docs"

// dependencies are the collaborators the HTTP surface is built from.
type dependencies struct {
	DB        health.Pinger
	Verifier  auth.Verifier
	Profiles  profilesvc.Service
	Templates templatesvc.Service
	Metrics   *metrics.Metrics
}

func main() {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		applog.LogError(context.Background(), "server failed", err)
		os.Exit(1)
	}
	applog.LogInfo(context.Background(), "server exited")
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applog.SetLevel(cfg.App.LogLevel); err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}

	templates := templatesvc.NewPostgresStore(pool)
	if cfg.App.SeedTemplate {
		n, err := templatesvc.Seed(ctx, templates)
		if err != nil {
			return err
		}
		applog.LogInfo(ctx, "templates seeded", zap.Int("inserted", n))
	}

	verifier, err := newVerifier(ctx, cfg, pool)
	if err != nil {
		return err
	}

	box, err := secretbox.New(cfg.EncryptionKey())
	if err != nil {
		return err
	}
	if !box.Enabled() {
		applog.LogWarn(ctx, "HEADER_ENCRYPTION_KEY not set; secret header values are stored in plain text")
	}

	m := metrics.New(applog.ServiceName)
	profiles := profilesvc.NewManager(
		profilesvc.NewPostgresStore(pool, box),
		templates,
		profilesvc.WithRecorder(m),
	)

	handler := newHandler(cfg, dependencies{
		DB:        pool,
		Verifier:  verifier,
		Profiles:  profiles,
		Templates: templates,
		Metrics:   m,
	})
	return serve(ctx, cfg.HTTP.Port, handler)
}

func newVerifier(ctx context.Context, cfg *config.Config, keys auth.KeyStore) (auth.Verifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeFirebase:
		client, err := firebase.NewAuthClient(ctx, cfg.Auth)
		if err != nil {
			return nil, err
		}
		return auth.NewFirebaseVerifier(client), nil
	case config.AuthModeAPIKey:
		return auth.NewAPIKeyVerifier(keys, cfg.Auth.APIKeyPepper), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}

// newHandler assembles the router: operational endpoints at the root and
// the versioned API under cfg.HTTP.APIPrefix.
func newHandler(cfg *config.Config, deps dependencies) http.Handler {
	respond.Install()
	prefix := cfg.HTTP.APIPrefix
	respond.SchemasPath = prefix + "/schemas"

	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	// Base middleware stack
	router.Use(
		appmiddleware.Security(prefix + docsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(cfg.HTTP.AllowedOrigins...),
		appmiddleware.RequestID(),
		// RealIP extracts client IP from X-Real-IP or X-Forwarded-For headers.
		// SECURITY: Only use behind a trusted reverse proxy (e.g., Cloud Run, nginx).
		// Without a trusted proxy, clients can spoof their IP address.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(cfg.HTTP.MaxRequestSize),
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}
	router.Use(appmiddleware.RateLimit(cfg.HTTP.RateLimitRPM))

	router.Get("/health", health.Handler(deps.DB))
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	mountAPI := func(r chi.Router) {
		humaCfg := huma.DefaultConfig("Device Profile API", Version)
		humaCfg.DocsPath = docsPath
		if prefix != "" {
			humaCfg.Servers = []*huma.Server{{URL: prefix}}
		}
		// NoFormatFallback stays false: Accept values huma cannot match
		// exactly, */* included, are answered with JSON instead of 406.
		api := humachi.New(r, humaCfg)

		// Add CBOR content type to OpenAPI requests and responses
		api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation,
			func(_ *huma.OpenAPI, op *huma.Operation) {
				if op.RequestBody != nil && op.RequestBody.Content != nil {
					if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
						op.RequestBody.Content["application/cbor"] = jsonContent
					}
				}
				for _, resp := range op.Responses {
					if resp.Content == nil {
						continue
					}
					if jsonContent, ok := resp.Content["application/json"]; ok {
						resp.Content["application/cbor"] = jsonContent
					}
				}
			},
		)

		policy := pagination.Policy{
			Default: cfg.Pagination.DefaultPageSize,
			Max:     cfg.Pagination.MaxPageSize,
		}
		routes.Register(api, deps.Verifier, deps.Profiles, deps.Templates, policy)
	}
	if prefix == "" {
		router.Group(mountAPI)
	} else {
		router.Route(prefix, mountAPI)
	}
	return router
}

func serve(ctx context.Context, port string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}

	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(ctx, "server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case err := <-listenErr:
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-ctx.Done():
		applog.LogInfo(context.Background(), "shutdown signal received")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
