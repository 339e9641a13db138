package main

import (
	"bytes"
	"context"
	"embed"
	"encoding/gob"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"warbler/internal/config"
	"warbler/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	sessionName = "warbler"
	currUserKey = "curr_user"
)

type flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(flash{})
}

// --- Session helpers ---

func newSessionStore(cfg *config.Config) *sessions.CookieStore {
	s := sessions.NewCookieStore([]byte(cfg.SecretKey))
	s.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return s
}

func (s *server) session(r *http.Request) *sessions.Session {
	// A cookie signed with an old key decodes with an error but still
	// yields a usable empty session.
	session, _ := s.sessions.Get(r, sessionName)
	return session
}

func (s *server) saveSession(w http.ResponseWriter, r *http.Request, session *sessions.Session) {
	if err := session.Save(r, w); err != nil {
		s.logger(r).Error("Failed to save session", zap.Error(err))
	}
}

func (s *server) doLogin(w http.ResponseWriter, r *http.Request, u *store.User) {
	session := s.session(r)
	session.Values[currUserKey] = u.ID
	s.saveSession(w, r, session)
}

func (s *server) doLogout(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)
	delete(session.Values, currUserKey)
	s.saveSession(w, r, session)
}

func (s *server) addFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	session := s.session(r)
	session.AddFlash(flash{Category: category, Message: message})
	s.saveSession(w, r, session)
}

func (s *server) flashes(w http.ResponseWriter, r *http.Request) []flash {
	session := s.session(r)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	s.saveSession(w, r, session)

	out := make([]flash, 0, len(raw))
	for _, f := range raw {
		if fl, ok := f.(flash); ok {
			out = append(out, fl)
		}
	}
	return out
}

// --- Current user ---

type userKey struct{}

func withCurrentUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// currentUser returns the logged-in user loaded by the loadUser middleware,
// or nil.
func currentUser(r *http.Request) *store.User {
	u, _ := r.Context().Value(userKey{}).(*store.User)
	return u
}

// --- Request helpers ---

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

func userURL(id int64) string {
	return fmt.Sprintf("/users/%d", id)
}

// --- Template helpers ---

func timestampFormat(t time.Time) string {
	return t.Format("02 January 2006")
}

// dict builds a map from alternating keys and values so a template can pass
// several values to a nested template.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict needs an even number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

func parseTemplates() (map[string]*template.Template, error) {
	funcMap := template.FuncMap{
		"timestamp": timestampFormat,
		"ago":       humanize.Time,
		"userURL":   userURL,
		"dict":      dict,
	}

	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	tmpls := make(map[string]*template.Template)
	for _, page := range pages {
		name := strings.TrimPrefix(page, "templates/")
		if name == "layout.html" || name == "partials.html" {
			continue
		}
		t, err := template.New("layout.html").
			Funcs(funcMap).
			ParseFS(templateFS, "templates/layout.html", "templates/partials.html", page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		tmpls[name] = t
	}
	return tmpls, nil
}

func (s *server) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	tmpl, ok := s.templates[name]
	if !ok {
		s.serverError(w, r, fmt.Errorf("unknown template %q", name))
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	data["CurrentUser"] = currentUser(r)
	data["Flashes"] = s.flashes(w, r)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *server) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "404.html", nil)
}

func (s *server) forbidden(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Forbidden", http.StatusForbidden)
}

func (s *server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}

func (s *server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger(r).Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
