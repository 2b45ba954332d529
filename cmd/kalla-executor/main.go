// Command kalla-executor hosts the cluster-mode Arrow Flight execution
// service: it accepts shipped leaf operators, registers them against a
// local DuckDB substrate, and answers match_sql queries over Flight.
package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/kallahq/kalla/internal/adapter/observability"
	"github.com/kallahq/kalla/internal/config"
	"github.com/kallahq/kalla/internal/engine"
	"github.com/kallahq/kalla/internal/wire"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	codec := wire.NewCodec(wire.NewGobInnerCodec())
	wire.RegisterOperators(codec)
	wire.RegisterUDFCodec(codec)

	flightSrv, err := engine.NewFlightServer(codec)
	if err != nil {
		slog.Error("failed to build flight server", slog.Any("error", err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("kalla-executor starting", slog.String("addr", cfg.KallaExecutorListenAddr))
	if err := flightSrv.Serve(ctx, cfg.KallaExecutorListenAddr); err != nil {
		slog.Error("flight server exited with error", slog.Any("error", err))
	}
}
