package http

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/providerhub/internal/logging"
)

// NewRouter builds the chi router and Huma API shared by the server and
// tests: request ids, access logging, panic recovery and a server span per
// request.
func NewRouter(serviceName, version string) (*chi.Mux, huma.API) {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(accessLog)
	router.Use(middleware.Recoverer)

	api := humachi.New(router, huma.DefaultConfig(serviceName, version))
	return router, api
}

// accessLog logs one line per request through the request-scoped logger.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logging.FromContext(r.Context()).Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
