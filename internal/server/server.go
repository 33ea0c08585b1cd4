package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"adtime-landing/internal/config"
	"adtime-landing/internal/i18n"
	"adtime-landing/internal/metrics"
	mw "adtime-landing/internal/middleware"
	"adtime-landing/internal/notify"
	"adtime-landing/internal/pricing"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// HTTP SERVER

// Dispatcher delivers a lead to every configured channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, lead notify.Lead, cfg config.Notify) (notify.Result, error)
}

type Deps struct {
	Config     *config.Config
	Catalog    *pricing.Catalog
	I18n       *i18n.Store
	Dispatcher Dispatcher
	Metrics    *metrics.Metrics
	Logger     *zap.Logger

	// Limiter guards the lead endpoints. Defaults to an in-memory per-IP
	// limiter built from Config, swept of idle visitors while Start runs.
	Limiter mw.Limiter

	// LoadNotify is called on every lead request. Defaults to
	// config.LoadNotify.
	LoadNotify func() (config.Notify, error)

	// HealthCheck reports the state of optional backing services.
	HealthCheck func(ctx context.Context) error

	// Sentry enables panic and error reporting. sentry.Init must have been
	// called by the caller.
	Sentry bool
}

type Server struct {
	echo       *echo.Echo
	addr       string
	catalog    *pricing.Catalog
	i18n       *i18n.Store
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	loadNotify func() (config.Notify, error)
	health     func(ctx context.Context) error
	logger     *zap.Logger

	// visitors is the fallback in-memory limiter, nil when Deps.Limiter
	// was given.
	visitors    *mw.RateLimiter
	sweepEvery  time.Duration
	visitorIdle time.Duration
}

func New(deps Deps) *Server {
	if deps.LoadNotify == nil {
		deps.LoadNotify = config.LoadNotify
	}
	var visitors *mw.RateLimiter
	if deps.Limiter == nil {
		visitors = mw.NewRateLimiter(deps.Config.RateLimitPerMinute, deps.Config.RateLimitBurst)
		deps.Limiter = visitors
	}

	s := &Server{
		echo:       echo.New(),
		addr:       deps.Config.HTTPAddr,
		catalog:    deps.Catalog,
		i18n:       deps.I18n,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		loadNotify: deps.LoadNotify,
		health:     deps.HealthCheck,
		logger:     deps.Logger,

		visitors:    visitors,
		sweepEvery:  3 * time.Minute,
		visitorIdle: 10 * time.Minute,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = s.ipExtractor(deps.Config)
	e.Validator = &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.requestLogger())
	e.Use(middleware.Recover())
	if deps.Sentry {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(middleware.CORSWithConfig(mw.CORSConfig(deps.Config.CORSOrigins)))
	e.Use(middleware.BodyLimit("64K"))
	e.Use(s.metrics.Middleware())

	limit := mw.RateLimit(deps.Limiter, s.logger, s.metrics.RecordRateLimited)

	e.POST("/api/leads", s.handleLead, limit)
	e.POST("/send-telegram", s.handleLead, limit)
	e.POST("/api/calculator/submit", s.handleCalculatorSubmit, limit)
	e.GET("/api/catalog", s.handleCatalog)
	e.POST("/api/quote", s.handleQuote)
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	return s
}

// ipExtractor takes the client IP from the TCP peer. X-Forwarded-For is
// only read when the peer is one of the configured trusted proxies.
func (s *Server) ipExtractor(cfg *config.Config) echo.IPExtractor {
	ranges, err := cfg.TrustedProxyRanges()
	if err != nil {
		s.logger.Error("Ignoring trusted proxies", zap.Error(err))
		return echo.ExtractIPDirect()
	}
	if len(ranges) == 0 {
		return echo.ExtractIPDirect()
	}

	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range ranges {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	const operation = "server.Start"

	if s.visitors != nil {
		go s.visitors.Cleanup(ctx, s.sweepEvery, s.visitorIdle)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server started", zap.String("addr", s.addr))
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s: %w", operation, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", operation, err)
	}
	return nil
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				s.logger.Error("Request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.logger.Info("Request handled", fields...)
			return nil
		},
	})
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}
