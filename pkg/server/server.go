package server

import (
	"cmp"
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/ksuid"

	"luna/pkg/turn"
	"luna/pkg/utils"
)

const ServiceName = "Luna Story API"

// TurnRunner runs one story turn.
type TurnRunner interface {
	Run(ctx context.Context, req turn.Request) (*turn.Result, error)
}

type Options struct {
	PublicDir string
	BodyLimit string
	Debug     bool
}

type Server struct {
	Echo   *echo.Echo
	Turns  TurnRunner
	logger *log.Logger
}

func NewServer(turns TurnRunner, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(glog.INFO)
	if opts.Debug {
		e.Logger.SetLevel(glog.DEBUG)
	}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return ksuid.New().String() },
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(cmp.Or(opts.BodyLimit, "2M")))

	s := &Server{
		Echo:   e,
		Turns:  turns,
		logger: logger.WithPrefix("server"),
	}

	s.registerRoutes(opts.PublicDir)
	return s
}

func (s *Server) registerRoutes(publicDir string) {
	s.Echo.GET("/health", s.handleGetHealth)
	s.Echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.Echo.Group("/api")
	api.POST("/message", s.handlePostMessage)
	api.GET("/schema", s.handleGetSchema)

	if publicDir != "" && utils.Exists(publicDir) {
		s.Echo.Static("/", publicDir)
	} else {
		s.Echo.GET("/", s.handleGetHealth)
	}
}

func (s *Server) Start(addr string) error {
	s.logger.Info("Server listening", "addr", addr)
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.Echo.Shutdown(ctx)
}

// ServeHTTP lets tests and embedding code drive the router directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Echo.ServeHTTP(w, r)
}
