package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FinCast/pkg/http/middleware"
	applogger "FinCast/pkg/logger"
)

// Handler mounts a group of routes on the server.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// ServerConfig describes the listener and the middleware chain. Zero values
// take the defaults below.
type ServerConfig struct {
	Host            string        `default:"0.0.0.0"`
	Port            int           `default:"8080"`
	ReadTimeout     time.Duration `default:"10s"`
	WriteTimeout    time.Duration `default:"10s"`
	ShutdownTimeout time.Duration `default:"10s"`
	// SlowThreshold logs slower requests as warnings; 0 disables.
	SlowThreshold time.Duration
	DisableCORS   bool
	// MetricsPath exposes Gatherer unless DisableMetrics is set.
	MetricsPath    string `default:"/metrics"`
	DisableMetrics bool
	Registerer     prometheus.Registerer
	Gatherer       prometheus.Gatherer
	RateLimit      *middleware.RateLimitConfig
	Logger         *applogger.Logger
}

// Server is an echo instance plus its listen settings.
type Server struct {
	echo *echo.Echo
	cfg  ServerConfig
}

func NewServer(cfg ServerConfig, handlers ...Handler) (*Server, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("server defaults: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = applogger.Nop()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner, e.HidePort = true, true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	// outermost so recovered panics are still counted as 500s
	e.Use(middleware.Observe(cfg.Registerer, cfg.Logger, cfg.SlowThreshold))
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisablePrintStack: true,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			cfg.Logger.Error("http handler panic",
				applogger.String("route", c.Path()),
				applogger.Error(err),
				applogger.String("stack", string(stack)),
			)
			return err
		},
	}))
	if !cfg.DisableCORS {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
	if cfg.RateLimit != nil {
		e.Use(middleware.RateLimit(*cfg.RateLimit))
	}

	for _, h := range handlers {
		h.RegisterRoutes(e)
	}
	if !cfg.DisableMetrics {
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	return &Server{echo: e, cfg: cfg}, nil
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start listens in the background. The channel yields at most one listen
// error and is closed when the listener stops.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.cfg.Logger.Info("http server listening", applogger.String("addr", s.Addr()))
		err := s.echo.Start(s.Addr())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.cfg.Logger.Error("http server error", applogger.Error(err))
			errCh <- err
		}
	}()
	return errCh
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.cfg.Logger.Info("http server stopped")
	return nil
}

func (s *Server) ShutdownTimeout() time.Duration { return s.cfg.ShutdownTimeout }

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }
