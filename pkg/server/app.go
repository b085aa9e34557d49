package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "ChartMarks/pkg/http"
	pkgkafka "ChartMarks/pkg/kafka"
	applogger "ChartMarks/pkg/logger"
	"ChartMarks/pkg/queue"
)

// App owns the lifecycle of the HTTP server and the optional background
// workers. Queue and consumer are nil when disabled in configuration.
type App struct {
	logger     *applogger.Logger
	httpServer *xhttp.Server
	queue      *queue.RedisQueue
	consumer   *pkgkafka.Consumer
}

// New creates a new App instance.
func New(l *applogger.Logger, httpServer *xhttp.Server, q *queue.RedisQueue, consumer *pkgkafka.Consumer) *App {
	return &App{
		logger:     l,
		httpServer: httpServer,
		queue:      q,
		consumer:   consumer,
	}
}

// Run starts every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		a.Stop()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	a.logger.Info("shutdown signal received", applogger.String("signal", sig.String()))
	a.Stop()
	return nil
}

// Start launches the queue and consumer, then the HTTP server.
func (a *App) Start() error {
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			return fmt.Errorf("start queue: %w", err)
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}
	return a.httpServer.Start()
}

// Stop shuts components down in reverse start order within the server's
// shutdown timeout.
func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.logger.Warn("queue stop error", applogger.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
}

func (a *App) shutdownTimeout() time.Duration {
	if d := a.httpServer.ShutdownTimeout(); d > 0 {
		return d
	}
	return 10 * time.Second
}
