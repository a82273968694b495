package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uhyunpark/squidroute/params"
	"github.com/uhyunpark/squidroute/pkg/api"
	"github.com/uhyunpark/squidroute/pkg/metrics"
	"github.com/uhyunpark/squidroute/pkg/pipeline"
	"github.com/uhyunpark/squidroute/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.Log.File)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// ---- Pipeline: derivation, routing, history, user operations ----
	assembly, err := pipeline.Setup(ctx, cfg, sugar, m)
	if err != nil {
		sugar.Fatalw("pipeline_setup_failed", "err", err)
	}
	defer assembly.Close()

	// ---- API Server ----
	apiServer := api.NewServer(assembly.Pipeline,
		api.WithLogger(sugar),
		api.WithMetrics(m),
		api.WithAllowedOrigins(cfg.API.AllowedOrigins))

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start(cfg.API.Addr)
	}()

	sugar.Infow("node_starting",
		"api_addr", cfg.API.Addr,
		"squid_api", cfg.Squid.APIURL,
		"route_history", cfg.Storage.RouteDBPath,
		"userops_enabled", assembly.Builder() != nil)

	select {
	case <-ctx.Done():
		sugar.Info("shutdown_requested")
	case err := <-errCh:
		if err != nil {
			sugar.Errorw("api_server_failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("api_shutdown_failed", "err", err)
	}
}
