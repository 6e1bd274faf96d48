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

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbuilder/internal/server"
	"github.com/goliatone/go-formbuilder/pkg/filepreview"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the workspace over HTTP with a live event stream",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen address, overrides server.addr",
				Sources: cli.EnvVars("FORMBUILDER_ADDR"),
			},
			presetFlag(),
		},
		Action: withStore(a, func(ctx context.Context, cmd *cli.Command) error {
			addr := a.cfg.Server.Addr
			if cmd.IsSet("addr") {
				addr = cmd.String("addr")
			}
			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}

			var preset orchestrator.Transformer
			if path := cmd.String("preset"); path != "" {
				if preset, err = loadPreset(path); err != nil {
					listener.Close()
					return err
				}
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, listener, preset)
		}),
	}
}

// serve runs the HTTP server on listener until ctx is done, then drains
// in-flight requests. A nil preset serves groups as stored.
func (a *app) serve(ctx context.Context, listener net.Listener, preset orchestrator.Transformer) error {
	files := filepreview.NewManager(
		filepreview.WithProvider(filepreview.NewMemoryProvider(server.BlobPrefix)),
		filepreview.WithAccept(a.cfg.Preview.Accept...),
		filepreview.WithMaxSize(a.cfg.Preview.MaxSize),
		filepreview.WithLogger(a.logger),
	)
	options := []server.Option{
		server.WithLogger(a.logger),
		server.WithFiles(files),
		server.WithIDSource(a.ids),
		server.WithAllowedOrigins(a.cfg.Server.AllowedOrigins...),
	}
	if preset != nil {
		options = append(options, server.WithOrchestrator(orchestrator.New(
			orchestrator.WithSource(a.store),
			orchestrator.WithFiles(files),
			orchestrator.WithSchemaTransformer(preset),
			orchestrator.WithLogger(a.logger),
		)))
	}
	srv := server.New(a.store, options...)
	defer srv.Close()

	httpServer := &http.Server{
		Handler:      srv.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	a.logger.Info("server listening", zap.String("addr", listener.Addr().String()))
	a.printf("listening on http://%s\n", listener.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("server shutting down")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
