package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ipnetlab/internal/handler"
	"ipnetlab/internal/hub"
	"ipnetlab/internal/log"
	"ipnetlab/internal/metrics"
	"ipnetlab/internal/service"
	"ipnetlab/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the allocation API",
	Long: `Serve the allocation API over HTTP. With --watch the given topology is
allocated at start and again every time the file changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		addr, err := flags.GetString("addr")
		if err != nil {
			return err
		}
		watchPath, err := flags.GetString("watch")
		if err != nil {
			return err
		}
		if addr == "" {
			addr = cfg.Server.Addr
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()
		logger := log.G(ctx)

		eventBus := service.NewEventBus()
		m := metrics.New()
		svc, closeFn, err := newService(true, eventBus, m)
		if err != nil {
			return err
		}
		defer closeFn()

		// Connect event bus to SSE hub
		sseHub := hub.New()
		eventChan := make(chan service.Event, 100)
		eventBus.Subscribe(eventChan)

		server := &http.Server{
			Addr:         addr,
			Handler:      handler.NewRouter(handler.NewAllocationHandler(svc), sseHub, m.Handler()),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // SSE streams stay open
			IdleTimeout:  60 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			sseHub.Run(gctx)
			return nil
		})
		g.Go(func() error {
			for {
				select {
				case event := <-eventChan:
					sseHub.Broadcast(event)
				case <-gctx.Done():
					return nil
				}
			}
		})
		g.Go(func() error {
			logger.WithField("addr", addr).Info("server listening")
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})

		if watchPath != "" {
			reallocate := func(ctx context.Context, path string) {
				svc.Publish(service.Event{
					Type:    service.EventTopologyChanged,
					Payload: map[string]string{"path": path},
				})
				if _, _, err := svc.AllocateFile(ctx, path, true); err != nil {
					log.G(ctx).WithError(err).Error("allocation of changed topology failed")
				}
			}
			reallocate(ctx, watchPath)

			w := watcher.New(watchPath, reallocate)
			g.Go(func() error {
				if err := w.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}

		err = g.Wait()
		logger.Info("server stopped")
		return err
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides the configuration)")
	serveCmd.Flags().String("watch", "", "Topology file to allocate and re-allocate on change")
}
