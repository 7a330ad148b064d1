package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ideacapital/config"
	"ideacapital/core"
	"ideacapital/crypto"
	"ideacapital/gateway/middleware"
	"ideacapital/gateway/routes"
	"ideacapital/observability/logging"
	telemetry "ideacapital/observability/otel"
	"ideacapital/services/distribution"
	"ideacapital/services/relay"
	"ideacapital/storage"
)

const serviceName = "ideacapitald"

var version = "dev"

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to the daemon configuration (TOML or YAML)")
	flag.Parse()

	if err := run(cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser := logging.Setup(logging.Options{
		Service:    serviceName,
		Env:        cfg.Environment,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer db.Close()

	node := core.NewNode(db, core.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrap(ctx, node, cfg, logger); err != nil {
		return err
	}

	store, err := distribution.OpenClaimStore(cfg.Distribution.ClaimStorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	planner := distribution.NewPlanner(node, store, cfg.Distribution.ExportDir, logger.With("component", "distribution"))

	var archive *relay.Archive
	relayDone := make(chan struct{})
	if cfg.Archive.DSN != "" {
		archive, err = openArchive(cfg.Archive.DSN)
		if err != nil {
			return err
		}
		r, err := relay.New(node.State(), archive, store, relay.Config{
			BatchSize:    cfg.Archive.BatchSize,
			PollInterval: cfg.Archive.PollInterval,
		}, logger.With("component", "relay"))
		if err != nil {
			return err
		}
		logger.Info("event archive enabled", logging.MaskDSN("archive", cfg.Archive.DSN))
		go func() {
			defer close(relayDone)
			_ = r.Run(ctx)
		}()
	} else {
		close(relayDone)
		logger.Info("event archive disabled")
	}

	routeCfg := routes.Config{
		Node:    node,
		Planner: planner,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:        cfg.Auth.Enabled,
			HMACSecret:     cfg.Auth.HMACSecret,
			Issuer:         cfg.Auth.Issuer,
			Audience:       cfg.Auth.Audience,
			AllowAnonymous: cfg.Auth.AllowAnonymous,
			ClockSkew:      cfg.Auth.ClockSkew,
		}, logger),
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			MetricsPrefix: "ideacapital_gateway",
			LogRequests:   true,
		}, logger.With("component", "gateway")),
		CORS:   middleware.CORSConfig{AllowedOrigins: cfg.CORS.AllowedOrigins},
		Logger: logger,
	}
	if archive != nil {
		routeCfg.Archive = archive
	}
	handler, err := routes.New(routeCfg)
	if err != nil {
		return fmt.Errorf("configure routes: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gateway listening",
			"addr", listener.Addr().String(),
			"auth", cfg.Auth.Enabled,
			logging.MaskField("auth_secret", cfg.Auth.HMACSecret))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	stop()
	<-relayDone
	logger.Info("stopped")
	return nil
}

// bootstrap deploys the protocol singletons on first start. Without an
// operator the node serves reads only until one is configured.
func bootstrap(ctx context.Context, node *core.Node, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Operator == "" {
		if _, err := node.Deployment(ctx); errors.Is(err, core.ErrNotBootstrapped) {
			logger.Warn("no operator configured; protocol not bootstrapped")
		}
		return nil
	}
	operator, err := crypto.ParseAddress(cfg.Operator)
	if err != nil {
		return fmt.Errorf("operator: %w", err)
	}
	dep, err := node.Bootstrap(ctx, core.BootstrapParams{
		Operator:          operator,
		PaymentName:       cfg.Bootstrap.PaymentName,
		PaymentSymbol:     cfg.Bootstrap.PaymentSymbol,
		ProposalThreshold: cfg.Bootstrap.ProposalThresholdAmount(),
		MarketplaceFeeBps: cfg.Bootstrap.MarketplaceFeeBps,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info("protocol deployed",
		"operator", dep.Operator.Hex(),
		"payment_token", dep.PaymentToken.Hex(),
		"vault", dep.Vault.Hex(),
		"governor", dep.Governor.Hex(),
		"marketplace", dep.Marketplace.Hex())
	return nil
}

func openArchive(dsn string) (*relay.Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return relay.NewArchive(db)
}
