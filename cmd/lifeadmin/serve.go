package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lifeadmin-backend/internal/actions"
	"lifeadmin-backend/internal/assistant"
	"lifeadmin-backend/internal/notify"
	"lifeadmin-backend/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the notification sweep",
	Long: `Run the HTTP API.

Besides serving requests, serve re-evaluates reminders every SWEEP_INTERVAL
(0 disables the sweep) and, for the in-memory store, saves DATA_FILE
periodically and on shutdown.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	spec, err := assistant.LoadPromptSpec(cfg.PromptFile)
	if err != nil {
		return err
	}
	provider, err := newProvider(ctx, cfg, spec)
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(a.backend, logger, notify.WithPublisher(a.publisher))
	chat := assistant.NewService(a.backend, spec, provider, logger, assistant.WithHistoryLimit(cfg.ChatHistoryLimit))
	srv, err := server.NewServer(server.Deps{
		Config:    cfg,
		Log:       logger,
		Store:     a.backend,
		Actions:   actions.New(a.backend, dispatcher, logger),
		Assistant: chat,
		Events:    a.subscriber,
		Storage:   a.storage,
		Health:    a.health,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// cancelled on shutdown so open event streams return
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("lifeadmin server listening",
			zap.String("addr", httpSrv.Addr),
			zap.String("storage", a.storage),
			zap.String("llm.provider", chat.ProviderName()))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if _, err := dispatcher.Sweep(gctx); err != nil && gctx.Err() == nil {
			logger.Error("initial notification sweep failed", zap.Error(err))
		}
		dispatcher.Run(gctx, cfg.SweepInterval)
		return nil
	})
	g.Go(func() error {
		a.runSnapshots(gctx, snapshotInterval)
		return nil
	})
	return g.Wait()
}
