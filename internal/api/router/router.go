package router

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github/chapool/ledger-signer/internal/api"
	"github/chapool/ledger-signer/internal/api/handlers"
	"github/chapool/ledger-signer/internal/api/middleware"
)

const metricsSubsystem = "ledger_signer"

func Init(s *api.Server) {
	s.Echo = echo.New()

	s.Echo.Debug = s.Config.Echo.Debug
	s.Echo.HideBanner = true
	s.Echo.Logger.SetOutput(&echoLogger{level: s.Config.Logger.RequestLevel, log: log.With().Str("component", "echo").Logger()})

	// ---
	// General middleware
	if s.Config.Echo.EnableRecoverMiddleware {
		s.Echo.Use(echoMiddleware.Recover())
	} else {
		log.Warn().Msg("Disabling recover middleware due to environment config")
	}

	if s.Config.Echo.EnableRequestIDMiddleware {
		s.Echo.Use(echoMiddleware.RequestIDWithConfig(echoMiddleware.RequestIDConfig{
			Generator: uuid.NewString,
		}))
	} else {
		log.Warn().Msg("Disabling request ID middleware due to environment config")
	}

	if s.Config.Echo.EnableLoggerMiddleware {
		s.Echo.Use(middleware.Logger(middleware.LoggerConfig{
			Level: s.Config.Logger.RequestLevel,
		}))
	} else {
		log.Warn().Msg("Disabling logger middleware due to environment config")
	}

	if s.Config.Echo.EnableCORSMiddleware {
		s.Echo.Use(echoMiddleware.CORS())
	} else {
		log.Warn().Msg("Disabling CORS middleware due to environment config")
	}

	if s.Config.Echo.EnableMetricsMiddleware {
		s.Echo.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  metricsSubsystem,
			Registerer: s.Metrics.Registry,
		}))
	} else {
		log.Warn().Msg("Disabling metrics middleware due to environment config")
	}

	s.Router = &api.Router{
		Routes: nil, // will be populated by handlers.AttachAllRoutes(s)

		// Unsecured base group available at /**
		Root: s.Echo.Group(""),

		// Management endpoints, e.g. readiness and health
		Management: s.Echo.Group("/-"),

		// JSON-RPC endpoint
		RPC: s.Echo.Group("/rpc"),
	}

	s.Echo.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: s.Metrics.Registry,
	}))

	// ---
	// Finally attach our handlers
	handlers.AttachAllRoutes(s)
}
