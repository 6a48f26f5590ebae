package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/Gthorpe2274/mocha-emig/internal/cache"
	"github.com/Gthorpe2274/mocha-emig/internal/config"
	handlers "github.com/Gthorpe2274/mocha-emig/internal/handlers/v1"
	"github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/pkg/metrics"
	"github.com/Gthorpe2274/mocha-emig/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	cache    cache.Cache
	handler  *handlers.Handler
	listener net.Listener
}

// New returns a new instance of the report-pipeline API server.
func New(
	cfg *config.Config,
	store store.Store,
	cache cache.Cache,
	handler *handlers.Handler,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		cache:    cache,
		handler:  handler,
		listener: listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Service.CorsAllowedOrigins,
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	router.Get("/health", s.health)
	s.handler.Routes(router)

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}

type healthResponse struct {
	Status string `json:"status"`
	Ledger string `json:"ledger"`
	Cache  string `json:"cache"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Ledger: "ok", Cache: "ok"}
	status := http.StatusOK

	if err := s.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Ledger = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := s.cache.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Cache = err.Error()
		status = http.StatusServiceUnavailable
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}
