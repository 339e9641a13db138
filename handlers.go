package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"warbler/internal/metrics"
	"warbler/internal/store"
)

// GET / shows the home timeline, or the landing page when logged out
func (s *server) homeHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		s.render(w, r, http.StatusOK, "home-anon.html", nil)
		return
	}

	ctx := r.Context()
	messages, err := s.store.HomeTimeline(ctx, user.ID, s.cfg.PerPage)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	likes, err := s.store.LikedMessageIDs(ctx, user.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	stats, err := s.store.UserStats(ctx, user.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "home.html", map[string]any{
		"Messages": messages,
		"Likes":    likes,
		"Stats":    stats,
	})
}

type signupForm struct {
	Username string
	Email    string
	ImageURL string
	Errors   map[string]string
}

func (f *signupForm) validate(password string) bool {
	f.Errors = map[string]string{}
	if f.Username == "" {
		f.Errors["Username"] = "You have to enter a username"
	}
	if f.Email == "" || !strings.Contains(f.Email, "@") {
		f.Errors["Email"] = "You have to enter a valid email address"
	}
	if len(password) < 6 {
		f.Errors["Password"] = "Password must be at least 6 characters"
	}
	return len(f.Errors) == 0
}

// GET + POST /signup
func (s *server) signupHandler(w http.ResponseWriter, r *http.Request) {
	if currentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	form := &signupForm{}
	if r.Method == http.MethodPost {
		form.Username = strings.TrimSpace(r.FormValue("username"))
		form.Email = strings.TrimSpace(r.FormValue("email"))
		form.ImageURL = strings.TrimSpace(r.FormValue("image_url"))
		password := r.FormValue("password")

		if form.validate(password) {
			u, err := s.store.Signup(r.Context(), store.SignupParams{
				Username: form.Username,
				Email:    form.Email,
				Password: password,
				ImageURL: form.ImageURL,
			})
			switch {
			case errors.Is(err, store.ErrDuplicateUser):
				s.addFlash(w, r, "danger", "Username already taken")
			case err != nil:
				s.serverError(w, r, err)
				return
			default:
				metrics.SignupsTotal.Inc()
				s.logger(r).Info("User signed up", zap.Int64("user_id", u.ID))
				s.doLogin(w, r, u)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
		}
	}

	s.render(w, r, http.StatusOK, "signup.html", map[string]any{"Form": form})
}

// GET + POST /login
func (s *server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if currentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	username := ""
	if r.Method == http.MethodPost {
		username = strings.TrimSpace(r.FormValue("username"))
		u, err := s.store.Authenticate(r.Context(), username, r.FormValue("password"))
		switch {
		case errors.Is(err, store.ErrInvalidCredentials):
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			s.addFlash(w, r, "danger", "Invalid credentials.")
		case err != nil:
			s.serverError(w, r, err)
			return
		default:
			metrics.LoginsTotal.WithLabelValues("success").Inc()
			s.doLogin(w, r, u)
			s.addFlash(w, r, "success", fmt.Sprintf("Hello, %s!", u.Username))
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}

	s.render(w, r, http.StatusOK, "login.html", map[string]any{"Username": username})
}

// GET /logout
func (s *server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s.doLogout(w, r)
	s.addFlash(w, r, "success", "You have successfully logged out.")
	http.Redirect(w, r, "/login", http.StatusFound)
}
