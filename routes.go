package main

import (
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"warbler/internal/config"
	"warbler/internal/store"
)

type server struct {
	cfg         *config.Config
	store       *store.Store
	sessions    sessions.Store
	templates   map[string]*template.Template
	authLimiter *ipLimiter
	log         *zap.Logger
}

func newServer(cfg *config.Config, st *store.Store, log *zap.Logger) (*server, error) {
	tmpls, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &server{
		cfg:         cfg,
		store:       st,
		sessions:    newSessionStore(cfg),
		templates:   tmpls,
		authLimiter: newIPLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, clockwork.NewRealClock()),
		log:         log,
	}, nil
}

func (s *server) setupRouter() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID, s.instrument, noCache, s.loadUser)

	static, _ := fs.Sub(staticFS, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)

	r.HandleFunc("/", s.homeHandler).Methods(http.MethodGet)
	r.HandleFunc("/signup", s.rateLimitPost(s.signupHandler)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/login", s.rateLimitPost(s.loginHandler)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/logout", s.logoutHandler).Methods(http.MethodGet)

	r.HandleFunc("/users", s.listUsersHandler).Methods(http.MethodGet)
	r.HandleFunc("/users/profile", s.requireLogin(s.editProfileHandler)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/users/delete", s.requireLogin(s.deleteUserHandler)).Methods(http.MethodPost)
	r.HandleFunc("/users/follow/{id:[0-9]+}", s.requireLogin(s.followHandler)).Methods(http.MethodPost)
	r.HandleFunc("/users/stop-following/{id:[0-9]+}", s.requireLogin(s.unfollowHandler)).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}", s.showUserHandler).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/following", s.requireLogin(s.showFollowingHandler)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/followers", s.requireLogin(s.showFollowersHandler)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/likes", s.requireLogin(s.showLikesHandler)).Methods(http.MethodGet)

	r.HandleFunc("/messages/new", s.requireLogin(s.newMessageHandler)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/messages/{id:[0-9]+}", s.showMessageHandler).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id:[0-9]+}/delete", s.requireLogin(s.deleteMessageHandler)).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id:[0-9]+}/like", s.requireLogin(s.likeHandler)).Methods(http.MethodPost)

	// mux skips r.Use middleware for requests that match no route.
	r.NotFoundHandler = s.unrouted(http.HandlerFunc(s.notFound))
	r.MethodNotAllowedHandler = s.unrouted(http.HandlerFunc(s.methodNotAllowed))
	return r
}

func (s *server) unrouted(h http.Handler) http.Handler {
	return requestID(s.instrument(noCache(s.loadUser(h))))
}

// GET /healthz
func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger(r).Error("Health check failed", zap.Error(err))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}
