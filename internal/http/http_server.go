package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/services/catalog"
	"gitlab.com/offlinejudge.net/internal/core/services/judge"
	"gitlab.com/offlinejudge.net/internal/handlers"
	"gitlab.com/offlinejudge.net/internal/handlers/questions"
)

type ServiceProvider struct {
	catalogService catalog.ICatalogService
	judgeService   judge.IJudgeService
	jwtService     primary.JWTService
}

// NewServiceProvider bundles the services behind the HTTP API. A nil
// jwtService leaves the run endpoints open.
func NewServiceProvider(
	catalogService catalog.ICatalogService,
	judgeService judge.IJudgeService,
	jwtService primary.JWTService,
) *ServiceProvider {
	return &ServiceProvider{
		catalogService: catalogService,
		judgeService:   judgeService,
		jwtService:     jwtService,
	}
}

type Server struct {
	handler         http.Handler
	srv             *http.Server
	HttpConfig      *config.HttpConfig
	JudgeConfig     *config.JudgeConfig
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
}

func NewServer(
	httpConfig *config.HttpConfig,
	judgeConfig *config.JudgeConfig,
	serviceName string,
	serviceProvider ServiceProvider,
	logger primary.Logger,
) *Server {
	return &Server{
		HttpConfig:      httpConfig,
		JudgeConfig:     judgeConfig,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	mw := handlers.New(s.ServiceProvider.jwtService, s.logger)
	r.Use(mw.RequestIDMiddleware, mw.AccessLogMiddleware)

	handlers.NewHealthHandler(s.ServiceProvider.catalogService).RegisterRoutes(r)
	questions.NewQuestionHandler(
		s.ServiceProvider.catalogService,
		s.ServiceProvider.judgeService,
		mw,
		questions.Options{
			MaxSourceBytes: s.JudgeConfig.MaxSourceBytes,
			AllowedOrigins: s.HttpConfig.AllowedOrigins,
		},
		s.logger,
	).RegisterRoutes(r)

	s.handler = cors.Handler(cors.Options{
		AllowedOrigins:   s.HttpConfig.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", handlers.RequestIDHeader},
		ExposedHeaders:   []string{handlers.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(r)

	s.logger.Info("Routes registered", "service", s.ServiceName, "auth", mw.AuthEnabled())
	return nil
}

// Handler returns the routed handler; Init must run first
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens in the background. The returned channel reports a listener
// failure and is closed when the server stops.
func (s *Server) Start(ctx context.Context) (<-chan error, error) {
	if s.handler == nil {
		return nil, errors.New("server not initialised")
	}
	// Set up server
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.HttpConfig.Port),
		Handler:      s.handler,
		ReadTimeout:  s.HttpConfig.ReadTimeout,
		WriteTimeout: s.HttpConfig.WriteTimeout,
		IdleTimeout:  s.HttpConfig.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}

	errCh := make(chan error, 1)
	// Start the server in a goroutine
	go func() {
		defer close(errCh)
		s.logger.Info("Server listening", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
			errCh <- err
		}
	}()
	return errCh, nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
