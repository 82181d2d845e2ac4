package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"owlynn-be/internal/bootstrap"
	"owlynn-be/internal/config"
	"owlynn-be/internal/server"
	"owlynn-be/internal/tracer"
	"owlynn-be/pkg/database"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.DatabaseDSN())
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Fatalf("Unable to build container: %v", err)
	}
	defer container.Close()

	shutdownTracer := tracer.InitTracer(cfg.App, container.Logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return container.ConsumerService.Consume(gctx)
	})
	g.Go(func() error {
		return container.CleanupService.Start(gctx)
	})
	if container.ActivityService != nil {
		g.Go(func() error {
			return container.ActivityService.Start(gctx)
		})
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown()
	})

	// 6. Run until a signal arrives or a component fails
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		container.Logger.Error("Main", "Shutdown with error", map[string]interface{}{
			"error": err.Error(),
		})
	}
	container.Logger.Info("Main", "Server stopped", nil)
}
