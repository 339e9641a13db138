package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = "id, username, email, image_url, header_image_url, bio, location, password"

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.ImageURL, &u.HeaderImageURL, &u.Bio, &u.Location, &u.PasswordHash)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]*User, error) {
	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SignupParams is the input to Signup.
type SignupParams struct {
	Username string
	Email    string
	Password string
	ImageURL string
}

// Signup hashes the password with bcrypt and inserts a new user.
func (s *Store) Signup(ctx context.Context, p SignupParams) (*User, error) {
	if p.Password == "" {
		return nil, ErrPasswordRequired
	}
	if strings.TrimSpace(p.Username) == "" {
		return nil, ErrUsernameRequired
	}
	if strings.TrimSpace(p.Email) == "" {
		return nil, ErrEmailRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		Username:       strings.TrimSpace(p.Username),
		Email:          strings.TrimSpace(p.Email),
		ImageURL:       p.ImageURL,
		HeaderImageURL: DefaultHeaderImageURL,
		PasswordHash:   string(hash),
	}
	if u.ImageURL == "" {
		u.ImageURL = DefaultImageURL
	}

	err = s.queryRow(ctx, s.db,
		`INSERT INTO users (username, email, image_url, header_image_url, password)
		VALUES (?, ?, ?, ?, ?) RETURNING id`,
		u.Username, u.Email, u.ImageURL, u.HeaderImageURL, u.PasswordHash).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	s.log.Debug("User signed up", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Authenticate returns the user whose password matches. Unknown usernames and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.UserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(s.queryRow(ctx, s.db, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, err
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(s.queryRow(ctx, s.db, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return u, err
}

// SearchUsers matches q case-insensitively against usernames. An empty q
// returns every user.
func (s *Store) SearchUsers(ctx context.Context, q string) ([]*User, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.queryUsers(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	}
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	return s.queryUsers(ctx,
		"SELECT "+userColumns+` FROM users WHERE LOWER(username) LIKE ? ESCAPE '\' ORDER BY username`,
		pattern)
}

// ProfileUpdate carries editable profile fields. Empty image URLs reset to
// the defaults.
type ProfileUpdate struct {
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
}

func (s *Store) UpdateProfile(ctx context.Context, id int64, p ProfileUpdate) (*User, error) {
	if strings.TrimSpace(p.Username) == "" {
		return nil, ErrUsernameRequired
	}
	if strings.TrimSpace(p.Email) == "" {
		return nil, ErrEmailRequired
	}
	if p.ImageURL == "" {
		p.ImageURL = DefaultImageURL
	}
	if p.HeaderImageURL == "" {
		p.HeaderImageURL = DefaultHeaderImageURL
	}

	res, err := s.exec(ctx, s.db,
		`UPDATE users SET username = ?, email = ?, image_url = ?, header_image_url = ?, bio = ?, location = ?
		WHERE id = ?`,
		strings.TrimSpace(p.Username), strings.TrimSpace(p.Email), p.ImageURL, p.HeaderImageURL, p.Bio, p.Location, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return s.UserByID(ctx, id)
}

// DeleteUser removes the user together with their messages, follow edges and
// likes.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	s.log.Info("User deleted", zap.Int64("user_id", id))
	return nil
}

func (s *Store) UserStats(ctx context.Context, id int64) (UserStats, error) {
	var st UserStats
	var err error
	if st.Messages, err = s.count(ctx, "SELECT COUNT(*) FROM messages WHERE user_id = ?", id); err != nil {
		return st, err
	}
	if st.Following, err = s.count(ctx, "SELECT COUNT(*) FROM follows WHERE user_following_id = ?", id); err != nil {
		return st, err
	}
	if st.Followers, err = s.count(ctx, "SELECT COUNT(*) FROM follows WHERE user_being_followed_id = ?", id); err != nil {
		return st, err
	}
	if st.Likes, err = s.count(ctx, "SELECT COUNT(*) FROM likes WHERE user_id = ?", id); err != nil {
		return st, err
	}
	return st, nil
}
