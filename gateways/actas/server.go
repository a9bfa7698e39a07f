package actas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	config "github.com/voxcliente/backend/config/actas"
	"github.com/voxcliente/backend/gateways/actas/handler"
	"github.com/voxcliente/backend/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	deps    *Deps
	health  *health.Server
	handler *handler.Handler
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	log.Info("creating actas server")
	log.Debug("server config",
		slog.Int("port", cfg.Port),
		slog.Int("grpc_port", cfg.GRPCPort),
		slog.Any("allowed_origins", cfg.HTTP.AllowedOrigins),
		slog.Int64("max_file_size_mb", cfg.Upload.MaxFileSizeMB),
		slog.Duration("file_ttl", cfg.Files.TTL))

	deps, err := Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	hs := health.NewServer()
	h := handler.New(deps.Usecase, hs, handler.Config{
		AppName:        cfg.AppName,
		AppVersion:     cfg.AppVersion,
		MaxUploadBytes: cfg.MaxFileSizeBytes(),
		ScratchDir:     cfg.Upload.ScratchDir,
	}, log.With(slog.String("component", "handler")))

	log.Info("actas server instance created")
	return &Server{
		cfg:     cfg,
		log:     log,
		deps:    deps,
		health:  hs,
		handler: h,
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(s.log))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", s.handler.RegisterRoutes)

	if dir := s.cfg.HTTP.StaticDir; dir != "" {
		s.log.Info("serving static files", slog.String("dir", dir))
		r.Handle("/*", http.FileServer(http.Dir(dir)))
	}

	return r
}

func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting actas server")

	if s.cfg.Templates.Watch {
		go func() {
			if err := s.deps.Templates.Watch(ctx); err != nil {
				s.log.Error("template watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}

	serverErrors := make(chan error, 2)

	var grpcServer *grpc.Server
	if s.cfg.GRPCPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.GRPCPort))
		if err != nil {
			return fmt.Errorf("failed to listen on grpc port: %w", err)
		}
		grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, s.health)

		go func() {
			s.log.Info("grpc health server started", slog.String("address", lis.Addr().String()))
			if err := grpcServer.Serve(lis); err != nil {
				serverErrors <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	go func() {
		s.log.Info("actas gateway started", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		s.log.Error("server error received", slog.String("error", err.Error()))
		runErr = fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.log.Info("start shutdown", slog.String("cause", context.Cause(ctx).Error()))
	}

	return errors.Join(runErr, s.shutdown(srv, grpcServer))
}

func (s *Server) shutdown(srv *http.Server, grpcServer *grpc.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.health.Shutdown()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		s.log.Error("graceful shutdown failed", slog.String("error", err.Error()))
		srv.Close()
		errs = append(errs, fmt.Errorf("failed to gracefully shutdown server: %w", err))
	}
	if err := s.deps.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	s.log.Info("server stopped")
	return errors.Join(errs...)
}
