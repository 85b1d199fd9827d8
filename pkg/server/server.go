package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pvsizer/pvsizer/pkg/live"
	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/metrics"
	"github.com/pvsizer/pvsizer/pkg/preset"
	"github.com/pvsizer/pvsizer/pkg/price"
	"github.com/pvsizer/pvsizer/pkg/report"
	"github.com/pvsizer/pvsizer/pkg/storage"
	"github.com/pvsizer/pvsizer/pkg/types"
)

const authTokenCookie = "auth_token"

type contextKey string

const userContextKey contextKey = "user"

// identity is who an ID token was issued to.
type identity struct {
	Email   string
	Subject string
	Expiry  time.Time
}

// tokenVerifier is a function that validates a Google or Apple ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (identity, error)

func oidcVerifier(v *oidc.IDTokenVerifier) tokenVerifier {
	return func(ctx context.Context, rawIDToken string) (identity, error) {
		idToken, err := v.Verify(ctx, rawIDToken)
		if err != nil {
			return identity{}, err
		}
		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return identity{}, err
		}
		return identity{Email: claims.Email, Subject: idToken.Subject, Expiry: idToken.Expiry}, nil
	}
}

// Server handles the HTTP API. It turns uploads into reports using the
// presets, the price providers and the storage.
type Server struct {
	presets *preset.Registry
	prices  *price.Map
	storage storage.Database
	builder *report.Builder
	hub     *live.Hub

	listenAddr string
	devProxy   string
	webDir     string
	httpServer *http.Server

	oidcAudiences    map[string]string
	oidcVerifiers    map[string]tokenVerifier
	bypassAuth       bool
	serverName       string
	webCacheDuration time.Duration
	maxUploadBytes   int64
	reportListLimit  int
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(presets *preset.Registry, prices *price.Map, s storage.Database) *Server {
	srv := New(presets, prices, s)
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	devProxy := lflag.String("dev-proxy", "", "Address of the dev server (e.g. http://localhost:5173)")
	webDir := lflag.String("web-dir", "", "Directory with the built web frontend")
	oidcAudiences := map[string]string{}
	lflag.JSON(&oidcAudiences, "oidc-audiences", oidcAudiences, "JSON map of provider (google/apple) to audience/client ID. Empty disables login.")
	webCacheDuration := lflag.Duration("web-cache-duration", 0, "Duration to cache web files (e.g. 1h, 5m). 0 means no cache.")
	maxUploadMB := lflag.String("max-upload-mb", "32", "Largest accepted upload in megabytes")
	reportListLimit := lflag.String("report-list-limit", "50", "Most reports returned by /api/reports")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.devProxy = *devProxy
		srv.webDir = *webDir
		srv.webCacheDuration = *webCacheDuration
		mb, err := strconv.Atoi(*maxUploadMB)
		if err != nil || mb <= 0 {
			panic(fmt.Sprintf("max-upload-mb must be a positive integer: %q", *maxUploadMB))
		}
		srv.maxUploadBytes = int64(mb) << 20
		limit, err := strconv.Atoi(*reportListLimit)
		if err != nil || limit <= 0 {
			panic(fmt.Sprintf("report-list-limit must be a positive integer: %q", *reportListLimit))
		}
		srv.reportListLimit = limit

		if len(oidcAudiences) > 0 {
			srv.oidcAudiences = make(map[string]string, len(oidcAudiences))
			srv.oidcVerifiers = make(map[string]tokenVerifier, len(oidcAudiences))
			for n, a := range oidcAudiences {
				var issuer string
				switch n {
				case "google":
					issuer = "https://accounts.google.com"
				case "apple":
					issuer = "https://appleid.apple.com"
				default:
					log.Ctx(context.Background()).Error("unsupported oidc audience client", slog.String("client", n))
					os.Exit(1)
				}
				provider, err := oidc.NewProvider(context.Background(), issuer)
				if err != nil {
					log.Ctx(context.Background()).Error("failed to initialize OIDC provider", slog.String("client", n), slog.Any("error", err))
					os.Exit(1)
				}
				srv.oidcVerifiers[n] = oidcVerifier(provider.Verifier(&oidc.Config{ClientID: a}))
				srv.oidcAudiences[n] = a
			}
		}

		// without a login provider every request acts as the local user
		srv.bypassAuth = len(srv.oidcAudiences) == 0
	})

	return srv
}

// New returns a Server with default limits and authentication bypassed.
func New(presets *preset.Registry, prices *price.Map, s storage.Database) *Server {
	return &Server{
		presets:         presets,
		prices:          prices,
		storage:         s,
		builder:         report.NewBuilder(presets, prices),
		hub:             live.NewHub(),
		serverName:      "pvsizer",
		bypassAuth:      true,
		maxUploadBytes:  32 << 20,
		reportListLimit: 50,
	}
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	s.handle(apiMux, "POST /api/analyze", s.handleAnalyze)
	s.handle(apiMux, "POST /api/size", s.handleSize)
	s.handle(apiMux, "POST /api/validate", s.handleValidate)
	s.handle(apiMux, "GET /api/presets", s.handleListPresets)
	s.handle(apiMux, "GET /api/price", s.handlePrice)
	s.handle(apiMux, "GET /api/configuration", s.handleGetConfiguration)
	s.handle(apiMux, "POST /api/configuration", s.handleUpdateConfiguration)
	s.handle(apiMux, "GET /api/reports", s.handleListReports)
	s.handle(apiMux, "POST /api/reports", s.handleCreateReport)
	s.handle(apiMux, "GET /api/reports/{id}", s.handleGetReport)
	s.handle(apiMux, "GET /api/auth/status", s.handleAuthStatus)
	s.handle(apiMux, "POST /api/auth/login", s.handleLogin)
	s.handle(apiMux, "POST /api/auth/logout", s.handleLogout)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)

	// serve the web frontend, either from a directory or from the dev server
	if s.devProxy != "" {
		u, err := url.Parse(s.devProxy)
		if err != nil {
			panic(fmt.Errorf("invalid dev-proxy url (%s): %w", s.devProxy, err))
		}
		mux.Handle("/", httputil.NewSingleHostReverseProxy(u))
	} else if s.webDir != "" {
		dir := os.DirFS(s.webDir)
		mux.Handle("/", s.webHandler(dir, http.FileServer(http.FS(dir))))
	}

	// the websocket needs the raw connection so it skips compression
	root := http.NewServeMux()
	root.Handle("GET /api/live", s.securityHeadersMiddleware(s.authMiddleware(s.liveHandler())))
	root.Handle("/", gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
	return s.revisionMiddleware(root)
}

// handle registers h on mux and records request metrics labeled by pattern.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		metrics.ObserveRequest(pattern, rec.code, startedAt)
	}))
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) getUser(r *http.Request) types.User {
	if user, ok := r.Context().Value(userContextKey).(types.User); ok {
		return user
	}
	return types.User{}
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) webHandler(dir fs.FS, h http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Default to serving index.html for unknown paths (SPA)
		if r.URL.Path != "/" {
			f, err := dir.Open(strings.TrimPrefix(r.URL.Path, "/"))
			if err == nil {
				f.Close()
			} else if errors.Is(err, fs.ErrNotExist) {
				// Don't fallback to index.html for .well-known
				if strings.HasPrefix(r.URL.Path, "/.well-known/") {
					// we don't write JSON here because we don't know what file type is expected
					http.Error(w, "not found", http.StatusNotFound)
					return
				}
				r.URL.Path = "/"
			} else {
				log.Ctx(r.Context()).ErrorContext(r.Context(), "failed to open file", slog.Any("error", err))
				// we don't write JSON here because we don't know what file type is expected
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
		}
		if s.webCacheDuration > 0 {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.webCacheDuration.Seconds())))
		}

		h.ServeHTTP(w, r)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
