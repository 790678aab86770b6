package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/datacentricdesign/profile-api/internal/auth"
	"github.com/datacentricdesign/profile-api/internal/config"
	"github.com/datacentricdesign/profile-api/internal/flow"
	accesslog "github.com/datacentricdesign/profile-api/internal/logger/adapter/fiber"
	"github.com/datacentricdesign/profile-api/internal/throttle"
	"github.com/datacentricdesign/profile-api/internal/web/handler"
	apphandler "github.com/datacentricdesign/profile-api/internal/web/handler/app"
	"github.com/datacentricdesign/profile-api/internal/web/handler/challenge"
	grouphandler "github.com/datacentricdesign/profile-api/internal/web/handler/group"
	personhandler "github.com/datacentricdesign/profile-api/internal/web/handler/person"
)

// MetricsPath serves the prometheus metrics.
const MetricsPath = "/metrics"

// ErrNoRoute is answered for unknown routes.
var ErrNoRoute = fiber.NewError(fiber.StatusNotFound, "This URL does not match any Profile API.")

// Deps are the services behind the routes.
type Deps struct {
	Flow         *flow.Controller
	Introspector *auth.Introspector
	Persons      personhandler.Accounts
	Groups       grouphandler.Groups
	Clients      apphandler.Clients
}

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan error, 1)

	s.alive.Store(true)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			doneFiber <- err
			return
		}

		doneFiber <- nil
	}()

	return <-doneFiber // wait for fiber to stop
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// health answers StatusOK while the service is alive, 503 during shutdown.
func (s *Service) health(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(handler.Status{Status: "shutting down"})
	}

	return handler.Health(c)
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, deps Deps) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	templateEngine := html.NewFileSystem(http.FS(templateEmbedFS{embeddedTemplates}), ".gohtml")

	// in debug mode, use local filesystem for templates
	if cfg.DevMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.ShouldReload = true

		log.Warn().Msg("debug mode enabled: using local filesystem for templates")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			Views:          templateEngine,
			ErrorHandler:   ErrorHandler(cfg.DevMode),

			// c.IP() reads the client from ProxyHeader, the throttle keys its buckets on it
			ProxyHeader:             cfg.Webserver.ProxyHeader,
			EnableIPValidation:      cfg.Webserver.ProxyHeader != "",
			EnableTrustedProxyCheck: len(cfg.Webserver.TrustedProxies) > 0,
			TrustedProxies:          cfg.Webserver.TrustedProxies,
		},
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	base := cfg.Webserver.BasePath

	app.Use(accesslog.New(accesslog.Config{
		Config:   cfg.Log,
		SkipURIs: []string{base + handler.RootPath, base + MetricsPath},
	}))
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.Webserver.AllowOrigins}))

	router := app.Group(base)
	router.Get(handler.RootPath, service.health)
	router.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	middlewares := challenge.Middlewares{CSRF: NewCSRF(cfg)}
	if cfg.Webserver.Throttle.Enabled {
		middlewares.Throttle = throttle.New(cfg.Webserver.Throttle).Middleware()
	}

	handlers := []handler.Service{
		challenge.New(deps.Flow, middlewares),
		personhandler.New(deps.Persons, deps.Introspector, deps.Groups),
		grouphandler.New(deps.Groups, deps.Introspector),
		apphandler.New(deps.Clients, deps.Introspector, deps.Groups),
	}

	for _, h := range handlers {
		if err := h.Init(router, cfg); err != nil {
			return nil, err
		}
	}

	app.Use(func(_ *fiber.Ctx) error { return ErrNoRoute })

	return service, nil
}
