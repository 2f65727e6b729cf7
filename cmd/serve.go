package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Leganyst/clinic-scheduling/internal/api"
	"github.com/Leganyst/clinic-scheduling/internal/grpcserver"
	"github.com/Leganyst/clinic-scheduling/internal/model"
)

var version = "dev"

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP admin API and the internal gRPC server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run AutoMigrate before serving")
	return cmd
}

func runServe(parent context.Context, migrate bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if migrate {
		if err := model.AutoMigrate(a.db.Gorm); err != nil {
			return err
		}
		a.log.Info().Msg("migrations applied")
	}

	var rdb redis.UniversalClient
	if a.redis != nil {
		rdb = a.redis
	}
	httpSrv := &http.Server{
		Addr: ":" + a.cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Service: a.svc,
			DB:      a.db,
			Redis:   rdb,
			Log:     a.log,
			Env:     a.cfg.Env,
			Version: version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcSrv, health := grpcserver.New(a.svc, a.log)

	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", httpSrv.Addr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.log.Info().Str("addr", a.cfg.GRPCAddr).Msg("grpc server listening")
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Msg("shutting down")

		health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		err := httpSrv.Shutdown(shutdownCtx)
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcSrv.Stop()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info().Msg("server stopped")
	return nil
}
