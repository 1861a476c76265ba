package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/internal/auth"
	"github.com/netcmd/netcmd/internal/command"
	"github.com/netcmd/netcmd/internal/config"
	"github.com/netcmd/netcmd/internal/connector"
	"github.com/netcmd/netcmd/internal/event"
	"github.com/netcmd/netcmd/internal/gateway"
	"github.com/netcmd/netcmd/internal/netbox"
	"github.com/netcmd/netcmd/internal/registry"
	"github.com/netcmd/netcmd/internal/server"
	"github.com/netcmd/netcmd/internal/store"
	"github.com/netcmd/netcmd/internal/vault"
	"github.com/netcmd/netcmd/internal/version"
	"github.com/netcmd/netcmd/pkg/plugin"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration before the logger so log level/format apply.
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(viperCfg)

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("netcmd server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults")
	}

	// Open the shared database.
	dsn := viperCfg.GetString("database.dsn")
	if dsn == "" {
		dsn = "./data/netcmd.db"
	}
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			logger.Fatal("failed to create data directory", zap.Error(err))
		}
	}
	db, err := store.New(dsn)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		logger.Fatal("schema version check failed", zap.Error(err))
	}
	logger.Info("database initialized", zap.String("dsn", dsn))

	// Shared services.
	bus := event.NewBus(logger.Named("event"))
	reg := registry.New(logger.Named("registry"))

	// Compile-time module composition.
	vaultModule := vault.New()
	netboxModule := netbox.New()
	commandModule := command.New()
	gatewayModule := gateway.New()

	modules := []plugin.Plugin{
		vaultModule,
		netboxModule,
		commandModule,
		gatewayModule,
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			logger.Fatal("failed to register module", zap.Error(err))
		}
	}

	if err := reg.Validate(); err != nil {
		logger.Fatal("module validation failed", zap.Error(err))
	}

	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config:  cfg.Sub("modules." + name),
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     bus,
			Plugins: reg,
		}
	}); err != nil {
		logger.Fatal("failed to initialize modules", zap.Error(err))
	}

	// Auth stack.
	authStore, err := auth.NewUserStore(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize auth store", zap.Error(err))
	}

	jwtSecret := viperCfg.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		// Ephemeral secret: tokens won't survive restarts.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			logger.Fatal("failed to generate JWT secret", zap.Error(err))
		}
		jwtSecret = hex.EncodeToString(b)
		logger.Warn("no auth.jwt_secret configured; using ephemeral secret (tokens will not survive restarts)")
	}

	accessTTL := viperCfg.GetDuration("auth.access_token_ttl")
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := viperCfg.GetDuration("auth.refresh_token_ttl")
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	tokens := auth.NewTokenService([]byte(jwtSecret), accessTTL, refreshTTL)
	authService := auth.NewService(authStore, tokens, logger.Named("auth"))
	authHandler := auth.NewHandler(authService, logger.Named("auth"))
	logger.Info("auth service initialized",
		zap.Duration("access_token_ttl", accessTTL),
		zap.Duration("refresh_token_ttl", refreshTTL))

	// Cross-module wiring that lives outside the registry: the vault's
	// connectivity test needs an SSH dialer, and the gateway validates
	// JWTs handed over in the WebSocket query string.
	vaultModule.SetConnectivityTester(connectivityAdapter{
		cfg: connector.Config{
			ConnectTimeout: viperCfg.GetDuration("modules.connector.connect_timeout"),
		},
		logger: logger.Named("ssh"),
	})
	gatewayModule.SetTokenValidator(tokenAdapter{tokens})

	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start modules", zap.Error(err))
	}

	// HTTP server.
	var srvCfg server.Config
	if err := viperCfg.UnmarshalKey("server", &srvCfg); err != nil {
		logger.Fatal("invalid server configuration", zap.Error(err))
	}
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})
	srv := server.New(srvCfg.Addr(), reg, logger, readyCheck, authHandler)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("netcmd server ready", zap.String("addr", srvCfg.Addr()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	reg.StopAll(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("netcmd server stopped")
}

// connectivityAdapter exposes the SSH connector's Test in the shape the
// vault's test endpoint expects. The connector carries its target port
// in its config, so each test builds one for the requested port.
type connectivityAdapter struct {
	cfg    connector.Config
	logger *zap.Logger
}

func (a connectivityAdapter) Test(ctx context.Context, host string, port int, username, password string) error {
	cfg := a.cfg
	cfg.Port = port
	conn := connector.NewSSHConnector(cfg, a.logger)
	return conn.Test(ctx, host, connector.Credentials{Username: username, Password: password})
}

// tokenAdapter narrows auth claims to what the gateway bridge needs.
type tokenAdapter struct {
	tokens *auth.TokenService
}

func (a tokenAdapter) ValidateAccessToken(token string) (*gateway.TokenClaims, error) {
	claims, err := a.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	return &gateway.TokenClaims{UserID: claims.UserID, Username: claims.Username}, nil
}
