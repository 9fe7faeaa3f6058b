package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ButyrinIA/blog/internal/auth"
	"github.com/ButyrinIA/blog/internal/blog"
	"github.com/ButyrinIA/blog/internal/config"
	"github.com/ButyrinIA/blog/internal/events"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Server struct {
	cfg      *config.Config
	svc      *blog.Service
	auth     *auth.Authenticator
	hub      *events.Hub
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
	handler  http.Handler
}

func New(cfg *config.Config, svc *blog.Service, authenticator *auth.Authenticator, hub *events.Hub, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if hub == nil {
		hub = events.NewHub(0)
	}
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		auth:   authenticator,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.handler = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/").Subrouter()

	api.HandleFunc("/posts", s.listPosts).Methods(http.MethodGet)
	api.HandleFunc("/posts", s.createPost).Methods(http.MethodPost)
	api.HandleFunc("/posts/my", s.myPosts).Methods(http.MethodGet)
	api.HandleFunc("/posts/my/stats", s.myStats).Methods(http.MethodGet)
	api.HandleFunc("/posts/events", s.postEvents).Methods(http.MethodGet)
	api.HandleFunc("/posts/user/{userId}", s.userPosts).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}", s.getPost).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}", s.updatePost).Methods(http.MethodPut)
	api.HandleFunc("/posts/{id}", s.deletePost).Methods(http.MethodDelete)
	api.HandleFunc("/posts/{id}/like", s.likePost).Methods(http.MethodPost, http.MethodDelete)
	api.HandleFunc("/posts/{id}/share", s.sharePost).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}/comments", s.listComments).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}/comments", s.addComment).Methods(http.MethodPost)
	api.HandleFunc("/userStats/{userId}", s.userStats).Methods(http.MethodGet)
	api.HandleFunc("/categoryCounts", s.categoryCounts).Methods(http.MethodGet)
	if s.cfg.Auth.DevTokens {
		api.HandleFunc("/token", s.issueToken).Methods(http.MethodPost)
	}

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteResponse(w, "not found", http.StatusNotFound)
	})
	// чужой метод на известном пути: 405 в JSON, не SPA
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	if s.cfg.Server.StaticDir != "" {
		r.PathPrefix("/").Handler(spaHandler{dir: s.cfg.Server.StaticDir})
	}

	var h http.Handler = r
	h = Identify(s.logger, s.auth, h)
	h = Log(s.logger, h)
	h = Recover(s.logger, h)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", s.cfg.Auth.TrustedHeader, s.cfg.Auth.TrustedNameHeader},
		AllowCredentials: true,
	})
	h = c.Handler(h)

	h = otelhttp.NewHandler(h, "blog-api", otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))
	return h
}

// Run слушает порт из конфигурации и останавливается после отмены ctx
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("starting server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Infow("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// spaHandler отдает файлы сборки фронтенда, для неизвестных путей index.html
type spaHandler struct {
	dir string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		WriteResponse(w, "not found", http.StatusNotFound)
		return
	}
	path := filepath.Join(h.dir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
		return
	}
	http.FileServer(http.Dir(h.dir)).ServeHTTP(w, r)
}
