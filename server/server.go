// Package server exposes the engine over HTTP.
//
// Administrative and mint requests are authenticated with a personal_sign
// signature over the raw request body, sent in the X-Signature header. The
// recovered address is the caller: the admin for privileged routes, the
// minter for mint routes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitwit/avatarnft"
	"github.com/vitwit/avatarnft/logger"
)

const SignatureHeader = "X-Signature"

type Server struct {
	engine   *avatarnft.Engine
	logger   logger.Logger
	gatherer prometheus.Gatherer
	router   *mux.Router
}

// New builds the router. gatherer may be nil, in which case /metrics is not served.
func New(engine *avatarnft.Engine, log logger.Logger, gatherer prometheus.Gatherer) *Server {
	if log == nil {
		log = logger.NoopLogger{}
	}
	s := &Server{
		engine:   engine,
		logger:   log,
		gatherer: gatherer,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.requestLoggerMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods("GET")

	// queries
	r.HandleFunc("/fee", s.feeHandler).Methods("GET")
	r.HandleFunc("/tokens", s.tokensHandler).Methods("GET")
	r.HandleFunc("/tokens/{token}", s.tokenHandler).Methods("GET")
	r.HandleFunc("/prices/native", s.nativePriceHandler).Methods("GET")
	r.HandleFunc("/prices/{token}", s.tokenPriceHandler).Methods("GET")
	r.HandleFunc("/items/{id:[0-9]+}", s.itemHandler).Methods("GET")
	r.HandleFunc("/items/{id:[0-9]+}/owner", s.ownerHandler).Methods("GET")
	r.HandleFunc("/collection", s.collectionHandler).Methods("GET")
	r.HandleFunc("/webpage", s.webpageHandler).Methods("GET")

	// mints
	r.HandleFunc("/mint/native", s.mintNativeHandler).Methods("POST")
	r.HandleFunc("/mint/token", s.mintTokenHandler).Methods("POST")

	// administration
	r.HandleFunc("/admin/tokens", s.addTokenHandler).Methods("POST")
	r.HandleFunc("/admin/collection", s.setCollectionHandler).Methods("PUT")
	r.HandleFunc("/admin/webpage", s.setWebpageHandler).Methods("PUT")

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]any{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLoggerMiddleware logs every request with its status and duration.
func (s *Server) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		switch {
		case rw.statusCode >= 500:
			s.logger.Error("http request", fields)
		case rw.statusCode >= 400:
			s.logger.Warn("http request", fields)
		default:
			s.logger.Debug("http request", fields)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
