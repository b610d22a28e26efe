package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type StockSource interface {
	Fetch(ctx context.Context) (string, error)
}

type Notifier interface {
	Push(ctx context.Context, text string) error
}

type Options struct {
	// Callback receives the messaging provider webhook; nil disables the route.
	Callback http.Handler
	Stock    StockSource
	Notifier Notifier
	Logger   *zap.Logger
}

type Server struct {
	router *chi.Mux
	opts   Options
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{router: chi.NewRouter(), opts: opts}
	s.router.Use(middleware.RequestID, middleware.Recoverer, s.logRequests)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/", s.handleHealth)
	if s.opts.Callback != nil {
		s.router.Method(http.MethodPost, "/callback", s.opts.Callback)
	}
	s.router.Get("/stock", s.handleStock)
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, "ChatGPT is alive!")
}

// handleStock scrapes the offering table and pushes the result to the operator.
func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	if s.opts.Stock == nil || s.opts.Notifier == nil {
		http.Error(w, "stock notifications are not configured", http.StatusServiceUnavailable)
		return
	}

	info, err := s.opts.Stock.Fetch(r.Context())
	if err != nil {
		s.opts.Logger.Error("failed to fetch stock info", zap.Error(err))
		http.Error(w, "failed to fetch stock info", http.StatusBadGateway)
		return
	}

	if err := s.opts.Notifier.Push(r.Context(), info); err != nil {
		s.opts.Logger.Error("failed to push stock info", zap.Error(err))
		http.Error(w, "failed to push stock info", http.StatusBadGateway)
		return
	}

	_, _ = io.WriteString(w, "stock is alive!")
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.opts.Logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
