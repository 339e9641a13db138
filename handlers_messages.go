package main

import (
	"errors"
	"net/http"

	"warbler/internal/metrics"
	"warbler/internal/store"
)

// GET + POST /messages/new
func (s *server) newMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	text, errorMsg := "", ""
	if r.Method == http.MethodPost {
		text = r.FormValue("text")
		_, err := s.store.AddMessage(r.Context(), user.ID, text)
		switch {
		case errors.Is(err, store.ErrMessageRequired):
			errorMsg = "You have to enter a message"
		case errors.Is(err, store.ErrMessageTooLong):
			errorMsg = "Messages are limited to 140 characters"
		case err != nil:
			s.serverError(w, r, err)
			return
		default:
			metrics.MessagesTotal.WithLabelValues("posted").Inc()
			http.Redirect(w, r, userURL(user.ID), http.StatusFound)
			return
		}
	}

	s.render(w, r, http.StatusOK, "messages_new.html", map[string]any{
		"Text":  text,
		"Error": errorMsg,
	})
}

// GET /messages/{id}
func (s *server) showMessageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	ctx := r.Context()
	msg, err := s.store.MessageByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	likeCount, err := s.store.MessageLikeCount(ctx, id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	likes, err := s.viewerLikes(r)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "messages_show.html", map[string]any{
		"Message":   msg,
		"LikeCount": likeCount,
		"Likes":     likes,
	})
}

// POST /messages/{id}/delete
func (s *server) deleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	err := s.store.DeleteMessage(r.Context(), id, user.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.notFound(w, r)
	case errors.Is(err, store.ErrNotOwner):
		s.addFlash(w, r, "danger", "Access unauthorized.")
		http.Redirect(w, r, "/", http.StatusFound)
	case err != nil:
		s.serverError(w, r, err)
	default:
		metrics.MessagesTotal.WithLabelValues("deleted").Inc()
		http.Redirect(w, r, userURL(user.ID), http.StatusFound)
	}
}

// POST /messages/{id}/like toggles the current user's like
func (s *server) likeHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	ctx := r.Context()
	msg, err := s.store.MessageByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if msg.UserID == user.ID {
		s.forbidden(w, r)
		return
	}

	liked, err := s.store.ToggleLike(ctx, user.ID, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.notFound(w, r)
		return
	case err != nil:
		s.serverError(w, r, err)
		return
	}

	if liked {
		metrics.LikesTotal.WithLabelValues("like").Inc()
	} else {
		metrics.LikesTotal.WithLabelValues("unlike").Inc()
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
