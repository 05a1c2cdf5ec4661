// Package httpapi renders the registry catalog into the npm registry HTTP
// protocol: package listings, version metadata, search, and tarball
// streaming, routed with go-chi.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/deepdreamgames/pachka/internal/apperr"
	"github.com/deepdreamgames/pachka/internal/catalog"
	"github.com/deepdreamgames/pachka/internal/metrics"
)

// CatalogSource returns the currently published catalog snapshot. It is
// satisfied by an atomic.Pointer[catalog.Catalog] load in internal/app.
type CatalogSource func() *catalog.Catalog

// Server holds everything a handler needs to render a response: the current
// catalog snapshot, the packages directory tarballs are served from, and
// the ambient logging/metrics stack.
type Server struct {
	Catalog     CatalogSource
	PackagesDir string
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// NewRouter builds the full chi.Router for the registry's HTTP surface.
func NewRouter(s *Server) http.Handler {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(normalizeStructuralSegments)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(metricsMiddleware(s.Metrics))
	r.Use(recoverMiddleware(logger))

	r.Get("/", s.handleRoot)
	r.Get("/-/v1/search", s.handleSearch)
	r.Get("/{pkg}/-/{file}", s.handleTarball)
	r.Head("/{pkg}/-/{file}", s.handleTarball)
	r.Get("/{pkg}/latest", s.handleVersion)
	r.Get("/{pkg}/{version}", s.handleVersion)
	r.Get("/{pkg}", s.handlePackage)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAppErr(w, apperr.New(apperr.CodeNotFound, "not found"))
	})
	return r
}

func chiRoutePattern(r *http.Request) string {
	ctx := chi.RouteContext(r.Context())
	if ctx == nil {
		return ""
	}
	return ctx.RoutePattern()
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic handling request",
						zap.String("request_id", requestIDFromContext(r.Context())),
						zap.Any("recover", rec),
					)
					writeAppErr(w, apperr.New(apperr.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
