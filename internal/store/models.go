package store

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultImageURL       = "/static/images/default-pic.png"
	DefaultHeaderImageURL = "/static/images/warbler-hero.png"

	// MaxMessageLength is counted in runes.
	MaxMessageLength = 140
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUsernameRequired   = errors.New("username is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password must be non-empty")
	ErrDuplicateUser      = errors.New("username or email already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSelfFollow         = errors.New("users cannot follow themselves")
	ErrMessageRequired    = errors.New("message text is required")
	ErrMessageTooLong     = fmt.Errorf("message text exceeds %d characters", MaxMessageLength)
	ErrNotOwner           = errors.New("message belongs to another user")
)

// User represents a registered user.
type User struct {
	ID             int64
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
	PasswordHash   string
}

func (u *User) String() string {
	return fmt.Sprintf("<User #%d: %s, %s>", u.ID, u.Username, u.Email)
}

// Message is a warble. Author is populated by queries that join users.
type Message struct {
	ID        int64
	Text      string
	Timestamp time.Time
	UserID    int64
	Author    *User
}

// Follow is a directed edge: UserFollowingID follows UserBeingFollowedID.
type Follow struct {
	UserBeingFollowedID int64
	UserFollowingID     int64
}

// Like records that UserID liked MessageID.
type Like struct {
	ID        int64
	UserID    int64
	MessageID int64
}

// UserStats holds the counters shown on a profile.
type UserStats struct {
	Messages  int
	Following int
	Followers int
	Likes     int
}
