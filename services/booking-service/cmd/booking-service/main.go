package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	s, err := loadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(s.Service, s.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := run(ctx, s, logger); err != nil {
		logger.Error("booking service exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, s settings, logger *slog.Logger) error {
	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(s.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := runtime.ShutdownContext(5 * time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	a, err := newApp(s, logger)
	if err != nil {
		return err
	}

	var lis net.Listener
	if s.GRPCEnabled {
		if lis, err = net.Listen("tcp", ":"+s.GRPCPort); err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           a.httpHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.startPublisher()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := runtime.ShutdownContext(s.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "err", err)
		}
		logger.Info("http server stopped")
		return nil
	})

	if lis != nil {
		grpcSrv := a.grpcServer()
		g.Go(func() error {
			logger.Info("grpc server starting", "addr", lis.Addr().String())
			if err := grpcSrv.Serve(lis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			grpcSrv.GracefulStop()
			logger.Info("grpc server stopped")
			return nil
		})
	}

	// Both servers have drained here, so no request can still enqueue events.
	err = g.Wait()
	closeCtx, cancel := runtime.ShutdownContext(s.ShutdownTimeout)
	defer cancel()
	a.close(closeCtx)
	return err
}
