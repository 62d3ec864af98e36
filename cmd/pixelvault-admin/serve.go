package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pixelvault/admin/internal/config"
	"github.com/pixelvault/admin/internal/errors"
	"github.com/pixelvault/admin/pkg/api"
	"github.com/pixelvault/admin/pkg/authstate"
	"github.com/pixelvault/admin/pkg/gateway"
	"github.com/pixelvault/admin/pkg/guard"
	"github.com/pixelvault/admin/pkg/live"
	"github.com/pixelvault/admin/pkg/media"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		logJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin console server",
		Long: `Start the admin console server.

Configuration comes from pixelvault.json in the working directory
(or --config), with PIXELVAULT_* environment variables taking
precedence.

Examples:
  pixelvault-admin serve
  pixelvault-admin serve --config /etc/pixelvault/pixelvault.json
  pixelvault-admin serve --addr :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, addr, logJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to pixelvault.json (default ./pixelvault.json)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Emit JSON logs")

	return cmd
}

func checkCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			source := cfg.Path()
			if source == "" {
				source = "defaults and environment"
			}
			cmd.Printf("configuration ok (%s)\n", source)
			cmd.Printf("  listen:  %s\n", cfg.Server.Addr)
			cmd.Printf("  backend: %s\n", cfg.Backend.URL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to pixelvault.json (default ./pixelvault.json)")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(".")
}

func runServe(configPath, addr string, logJSON bool) error {
	logger := newLogger(logJSON)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	backend := api.NewClient(cfg.Backend.URL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.BackendTimeout()}),
		api.WithLogger(logger),
	)

	gw := gateway.New(backend, gateway.Config{
		Cookie: gateway.CookieConfig{
			Name:           cfg.Cookie.Name,
			MaxAge:         cfg.CookieMaxAge(),
			Domain:         cfg.Cookie.Domain,
			SameSite:       cfg.CookieSameSite(),
			Secure:         cfg.Cookie.Secure,
			TrustedProxies: cfg.Server.TrustedProxies,
		},
		Redirects: gateway.RoleRedirects{
			ByRole:  cfg.Redirects.ByRole,
			Default: cfg.Redirects.Default,
		},
		Registry: registry,
		Logger:   logger,
	})

	store, err := newMediaStore(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweepStaging(ctx, store, cfg.StageTTL(), logger)

	pages := live.NewHandler(live.Config{
		SessionAPI: func(r *http.Request) authstate.SessionAPI {
			token, _ := gw.CookiePolicy().Token(r)
			return gw.SessionAPI(token)
		},
		GuardConfig: consoleGuard,
		Logger:      logger,
	})

	uploads := media.NewHandler(store,
		media.WithMaxUploadSize(cfg.Media.MaxUploadBytes),
		media.WithHandlerLogger(logger),
	)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	metricsPath := cfg.Observability.MetricsPath
	r.Use(gateway.Tracing(
		gateway.WithTracerName(cfg.Observability.TraceService),
		gateway.WithTraceFilter(func(req *http.Request) bool {
			return req.URL.Path != metricsPath && req.URL.Path != "/healthz"
		}),
	))

	gw.Mount(r)
	r.Handle("/live", pages)
	r.Handle("/api/media", uploads)
	r.Get("/api/media/{id}", uploads.Claim)
	r.Method(http.MethodGet, metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})

	server := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     r,
		ReadTimeout: cfg.ReadTimeout(),
		// No WriteTimeout: the live channel holds connections open.
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "name", cfg.Name, "addr", cfg.Server.Addr, "backend", cfg.Backend.URL)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.New("E200").WithDetail("Address " + cfg.Server.Addr + ".").Wrap(err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(logJSON bool) *slog.Logger {
	var handler slog.Handler
	if logJSON {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// consoleGuard decides guarding per console route. The login and
// registration pages are the only public ones.
func consoleGuard(path string) guard.Config {
	switch path {
	case "/login", "/register":
		return guard.Config{}
	default:
		return guard.Config{RequireAuth: true, RedirectTo: "/login"}
	}
}

func newMediaStore(cfg *config.Config) (media.Store, error) {
	if cfg.Media.S3.Bucket != "" {
		opts := s3.Options{Region: cfg.Media.S3.Region}
		if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
			creds := aws.Credentials{
				AccessKeyID:     key,
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			}
			opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
				return creds, nil
			})
		}
		var s3opts []media.S3Option
		if cfg.Media.S3.PublicBaseURL != "" {
			s3opts = append(s3opts, media.WithPublicBaseURL(cfg.Media.S3.PublicBaseURL))
		}
		return media.NewS3Store(s3.New(opts), cfg.Media.S3.Bucket, cfg.Media.S3.Prefix,
			cfg.Media.MaxUploadBytes, s3opts...), nil
	}

	store, err := media.NewDiskStore(cfg.Media.Dir, cfg.Media.MaxUploadBytes)
	if err != nil {
		return nil, errors.New("E201").WithDetail("Directory " + cfg.Media.Dir + ".").Wrap(err)
	}
	return store, nil
}

func sweepStaging(ctx context.Context, store media.Store, ttl time.Duration, logger *slog.Logger) {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Sweep(ctx, ttl)
			if err != nil {
				logger.Warn("staging sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("staging swept", "removed", removed)
			}
		}
	}
}
