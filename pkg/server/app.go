package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
)

// App encapsulates the service lifecycle: HTTP server and the optional
// ledger consumer. Infrastructure clients are closed by the DI cleanup.
type App struct {
	cfg        *config.Config
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	log        *applogger.Logger
}

// New creates a new App instance. consumer may be nil.
func New(cfg *config.Config, httpServer *xhttp.Server, consumer *pkgkafka.Consumer, log *applogger.Logger) *App {
	return &App{
		cfg:        cfg,
		httpServer: httpServer,
		consumer:   consumer,
		log:        log,
	}
}

// Run starts the application and blocks until ctx is canceled or the HTTP
// server fails.
func (a *App) Run(ctx context.Context) error {
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}

	serverErr := a.httpServer.Start()
	a.log.Info("fincast started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Bool("ledger", a.cfg.Ledger.Enabled),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err, ok := <-serverErr:
		if ok && err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	return errors.Join(runErr, a.shutdown())
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) shutdownTimeout() time.Duration {
	if d := a.httpServer.ShutdownTimeout(); d > 0 {
		return d
	}
	return 15 * time.Second
}
