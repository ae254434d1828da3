package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"liyu1981.xyz/printwatch-service/pkg/common"
	pwGrpc "liyu1981.xyz/printwatch-service/pkg/grpc"
	pwHttp "liyu1981.xyz/printwatch-service/pkg/http"
	"liyu1981.xyz/printwatch-service/pkg/monitor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST (and optional gRPC) server",
	Long: `Run the REST server on PRINTWATCH_HTTP_HOST_PORT, and the gRPC server on
PRINTWATCH_GRPC_HOST_PORT when it is set.

Printers are polled when the dashboard list is requested and on explicit
refresh calls; there is no background timer.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	logger := common.GetLogger()
	cfg := a.cfg

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	var grpcServer *grpc.Server
	if cfg.GRPCHostPort != "" {
		monitorServer := &pwGrpc.MonitorServer{
			Monitor:          a.monitor,
			Inventory:        a.store,
			RateLimiterStore: monitor.NewRateLimiterStore(rate.Limit(cfg.RefreshRate), cfg.RefreshBurst),
		}
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(
			monitorServer.CreateRateLimitInterceptor([]string{pwGrpc.MethodRefresh}),
		))
		pwGrpc.RegisterMonitorServiceServer(grpcServer, monitorServer)

		listener, err := net.Listen("tcp", cfg.GRPCHostPort)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}

		logger.Info("Starting gRPC server on " + cfg.GRPCHostPort)
		go func() {
			if err := grpcServer.Serve(listener); err != nil {
				errCh <- fmt.Errorf("grpc server failed to serve: %w", err)
			}
		}()
	}

	if common.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rs := &pwHttp.RestfulServer{
		Server:           gin.Default(),
		Monitor:          a.monitor,
		Inventory:        a.store,
		Links:            a.links,
		RateLimiterStore: monitor.NewRateLimiterStore(rate.Limit(cfg.RefreshRate), cfg.RefreshBurst),
	}
	if a.events != nil {
		rs.Events = a.events
	}
	rs.Setup()

	logger.Info("http server created with:",
		zap.String("refresh_limiter",
			fmt.Sprintf("{\"rate\": %v, \"burst\": %v}", cfg.RefreshRate, cfg.RefreshBurst)))

	httpServer := &http.Server{Addr: cfg.HTTPHostPort, Handler: rs.Server}
	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HTTPHostPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed to serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("HTTP shutdown failed", zap.Error(shutdownErr))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	return err
}
