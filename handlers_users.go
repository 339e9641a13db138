package main

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"warbler/internal/metrics"
	"warbler/internal/store"
)

// profileUser resolves the {id} route variable. It writes a 404 and returns
// nil when the user does not exist.
func (s *server) profileUser(w http.ResponseWriter, r *http.Request) *store.User {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return nil
	}
	u, err := s.store.UserByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w, r)
		return nil
	}
	if err != nil {
		s.serverError(w, r, err)
		return nil
	}
	return u
}

// viewerFollowing returns the IDs the current user follows, or an empty set
// when logged out.
func (s *server) viewerFollowing(r *http.Request) (map[int64]bool, error) {
	if u := currentUser(r); u != nil {
		return s.store.FollowingIDs(r.Context(), u.ID)
	}
	return map[int64]bool{}, nil
}

func (s *server) viewerLikes(r *http.Request) (map[int64]bool, error) {
	if u := currentUser(r); u != nil {
		return s.store.LikedMessageIDs(r.Context(), u.ID)
	}
	return map[int64]bool{}, nil
}

// GET /users?q=
func (s *server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	users, err := s.store.SearchUsers(r.Context(), q)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	following, err := s.viewerFollowing(r)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "users_index.html", map[string]any{
		"Users":     users,
		"Query":     q,
		"Following": following,
	})
}

// userPageData collects what every profile-style page shows in its header.
func (s *server) userPageData(r *http.Request, u *store.User) (map[string]any, error) {
	stats, err := s.store.UserStats(r.Context(), u.ID)
	if err != nil {
		return nil, err
	}
	following, err := s.viewerFollowing(r)
	if err != nil {
		return nil, err
	}
	likes, err := s.viewerLikes(r)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"User":      u,
		"Stats":     stats,
		"Following": following,
		"Likes":     likes,
	}, nil
}

// GET /users/{id}
func (s *server) showUserHandler(w http.ResponseWriter, r *http.Request) {
	u := s.profileUser(w, r)
	if u == nil {
		return
	}
	data, err := s.userPageData(r, u)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	messages, err := s.store.UserMessages(r.Context(), u.ID, s.cfg.PerPage)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data["Messages"] = messages
	s.render(w, r, http.StatusOK, "users_show.html", data)
}

func (s *server) showUserList(w http.ResponseWriter, r *http.Request, heading string, list func(*store.User) ([]*store.User, error)) {
	u := s.profileUser(w, r)
	if u == nil {
		return
	}
	data, err := s.userPageData(r, u)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	users, err := list(u)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data["Users"] = users
	data["Heading"] = heading
	s.render(w, r, http.StatusOK, "users_list.html", data)
}

// GET /users/{id}/following
func (s *server) showFollowingHandler(w http.ResponseWriter, r *http.Request) {
	s.showUserList(w, r, "Following", func(u *store.User) ([]*store.User, error) {
		return s.store.Following(r.Context(), u.ID)
	})
}

// GET /users/{id}/followers
func (s *server) showFollowersHandler(w http.ResponseWriter, r *http.Request) {
	s.showUserList(w, r, "Followers", func(u *store.User) ([]*store.User, error) {
		return s.store.Followers(r.Context(), u.ID)
	})
}

// GET /users/{id}/likes
func (s *server) showLikesHandler(w http.ResponseWriter, r *http.Request) {
	u := s.profileUser(w, r)
	if u == nil {
		return
	}
	data, err := s.userPageData(r, u)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	messages, err := s.store.LikedMessages(r.Context(), u.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data["Messages"] = messages
	s.render(w, r, http.StatusOK, "users_likes.html", data)
}

// POST /users/follow/{id}
func (s *server) followHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	followed := s.profileUser(w, r)
	if followed == nil {
		return
	}

	err := s.store.Follow(r.Context(), user.ID, followed.ID)
	switch {
	case errors.Is(err, store.ErrSelfFollow):
		s.addFlash(w, r, "danger", "You cannot follow yourself.")
	case err != nil:
		s.serverError(w, r, err)
		return
	default:
		metrics.FollowsTotal.WithLabelValues("follow").Inc()
	}
	http.Redirect(w, r, userURL(user.ID)+"/following", http.StatusFound)
}

// POST /users/stop-following/{id}
func (s *server) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	followed := s.profileUser(w, r)
	if followed == nil {
		return
	}

	if err := s.store.Unfollow(r.Context(), user.ID, followed.ID); err != nil {
		s.serverError(w, r, err)
		return
	}
	metrics.FollowsTotal.WithLabelValues("unfollow").Inc()
	http.Redirect(w, r, userURL(user.ID)+"/following", http.StatusFound)
}

type profileForm struct {
	store.ProfileUpdate
	Errors map[string]string
}

func (f *profileForm) validate() bool {
	f.Errors = map[string]string{}
	if f.Username == "" {
		f.Errors["Username"] = "You have to enter a username"
	}
	if f.Email == "" || !strings.Contains(f.Email, "@") {
		f.Errors["Email"] = "You have to enter a valid email address"
	}
	return len(f.Errors) == 0
}

// GET + POST /users/profile
func (s *server) editProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	form := &profileForm{ProfileUpdate: store.ProfileUpdate{
		Username:       user.Username,
		Email:          user.Email,
		ImageURL:       user.ImageURL,
		HeaderImageURL: user.HeaderImageURL,
		Bio:            user.Bio,
		Location:       user.Location,
	}}

	if r.Method == http.MethodPost {
		ctx := r.Context()
		if _, err := s.store.Authenticate(ctx, user.Username, r.FormValue("password")); err != nil {
			if !errors.Is(err, store.ErrInvalidCredentials) {
				s.serverError(w, r, err)
				return
			}
			s.addFlash(w, r, "danger", "Wrong password, please try again.")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		form.ProfileUpdate = store.ProfileUpdate{
			Username:       strings.TrimSpace(r.FormValue("username")),
			Email:          strings.TrimSpace(r.FormValue("email")),
			ImageURL:       strings.TrimSpace(r.FormValue("image_url")),
			HeaderImageURL: strings.TrimSpace(r.FormValue("header_image_url")),
			Bio:            strings.TrimSpace(r.FormValue("bio")),
			Location:       strings.TrimSpace(r.FormValue("location")),
		}
		if form.validate() {
			_, err := s.store.UpdateProfile(ctx, user.ID, form.ProfileUpdate)
			switch {
			case errors.Is(err, store.ErrDuplicateUser):
				s.addFlash(w, r, "danger", "Username or email already taken")
			case err != nil:
				s.serverError(w, r, err)
				return
			default:
				s.addFlash(w, r, "success", "Profile updated.")
				http.Redirect(w, r, userURL(user.ID), http.StatusFound)
				return
			}
		}
	}

	s.render(w, r, http.StatusOK, "users_edit.html", map[string]any{"Form": form})
}

// POST /users/delete
func (s *server) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := s.store.DeleteUser(r.Context(), user.ID); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.logger(r).Info("Account deleted", zap.Int64("user_id", user.ID))
	s.doLogout(w, r)
	s.addFlash(w, r, "success", "Your account has been deleted.")
	http.Redirect(w, r, "/signup", http.StatusFound)
}
