package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newTestStore opens a fresh SQLite database in a temp dir.
func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	path := filepath.Join(t.TempDir(), "warbler-test.db")

	s, err := Open(context.Background(), path, WithClock(clock), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Reset(context.Background()))
	return s, clock
}

func mustSignup(t *testing.T, s *Store, username, password string) *User {
	t.Helper()
	u, err := s.Signup(context.Background(), SignupParams{
		Username: username,
		Email:    username + "@gmail.com",
		Password: password,
	})
	require.NoError(t, err)
	return u
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		dialect dialect
		driver  string
		source  string
	}{
		{"postgres://localhost/warbler", dialectPostgres, "pgx", "postgres://localhost/warbler"},
		{"postgresql:///warbler_test", dialectPostgres, "pgx", "postgresql:///warbler_test"},
		{"/tmp/warbler.db", dialectSQLite, "sqlite3", "/tmp/warbler.db?_foreign_keys=on&_busy_timeout=5000"},
		{"sqlite3:///tmp/warbler.db", dialectSQLite, "sqlite3", "/tmp/warbler.db?_foreign_keys=on&_busy_timeout=5000"},
		{"file:warbler.db?cache=shared", dialectSQLite, "sqlite3", "file:warbler.db?cache=shared&_foreign_keys=on&_busy_timeout=5000"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			d, driver, source := parseDSN(tt.dsn)
			assert.Equal(t, tt.dialect, d)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: dialectPostgres}
	assert.Equal(t, "SELECT * FROM users WHERE id = $1 AND username = $2", pg.rebind("SELECT * FROM users WHERE id = ? AND username = ?"))

	lite := &Store{dialect: dialectSQLite}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
}

func TestUserModel(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u := mustSignup(t, s, "testuser", "HASHED_PASSWORD")

	msgs, err := s.UserMessages(ctx, u.ID, 100)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	followers, err := s.Followers(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, followers)
}

func TestUserString(t *testing.T) {
	u := &User{ID: 15, Username: "test1", Email: "test1@gmail.com"}
	assert.Equal(t, "<User #15: test1, test1@gmail.com>", u.String())
}

func TestSignup(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u := mustSignup(t, s, "newUser", "newPass1")

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "newUser", got.Username)
	assert.Equal(t, "newUser@gmail.com", got.Email)
	assert.True(t, strings.HasPrefix(got.PasswordHash, "$2a$"), "expected a bcrypt hash, got %q", got.PasswordHash)
	assert.Equal(t, DefaultImageURL, got.ImageURL)
	assert.Equal(t, DefaultHeaderImageURL, got.HeaderImageURL)
}

func TestSignupFailures(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	mustSignup(t, s, "test1", "passTest1")

	tests := []struct {
		name   string
		params SignupParams
		want   error
	}{
		{"missing username", SignupParams{Email: "failedUser@gmail.com", Password: "failedUsername"}, ErrUsernameRequired},
		{"missing email", SignupParams{Username: "failedUser", Password: "failedEmail"}, ErrEmailRequired},
		{"missing password", SignupParams{Username: "failedUser", Email: "failedUser@gmail.com"}, ErrPasswordRequired},
		{"duplicate username", SignupParams{Username: "test1", Email: "other@gmail.com", Password: "secret1"}, ErrDuplicateUser},
		{"duplicate email", SignupParams{Username: "other", Email: "test1@gmail.com", Password: "secret1"}, ErrDuplicateUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Signup(ctx, tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustSignup(t, s, "test1", "passTest1")

	got, err := s.Authenticate(ctx, "test1", "passTest1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate(ctx, "failedUser", "passTest1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "test1", "failedPass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFollowing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u1 := mustSignup(t, s, "test1", "passTest1")
	u2 := mustSignup(t, s, "test2", "passTest2")

	require.NoError(t, s.Follow(ctx, u1.ID, u2.ID))
	// A repeated follow is not an error.
	require.NoError(t, s.Follow(ctx, u1.ID, u2.ID))

	followers, err := s.Followers(ctx, u2.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, u1.ID, followers[0].ID)

	following, err := s.Following(ctx, u2.ID)
	require.NoError(t, err)
	assert.Empty(t, following)

	following, err = s.Following(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, u2.ID, following[0].ID)

	ok, err := s.IsFollowing(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsFollowing(ctx, u2.ID, u2.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.IsFollowedBy(ctx, u2.ID, u1.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := s.FollowingIDs(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{u2.ID: true}, ids)

	assert.ErrorIs(t, s.Follow(ctx, u1.ID, u1.ID), ErrSelfFollow)
	assert.ErrorIs(t, s.Follow(ctx, u1.ID, 9999), ErrNotFound)

	require.NoError(t, s.Unfollow(ctx, u1.ID, u2.ID))
	ok, err = s.IsFollowing(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMessages(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	u := mustSignup(t, s, "test1", "passTest1")

	m, err := s.AddMessage(ctx, u.ID, "Lorem ipsum...")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().UTC(), m.Timestamp)

	msgs, err := s.UserMessages(ctx, u.ID, 100)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Lorem ipsum...", msgs[0].Text)
	assert.Equal(t, "test1", msgs[0].Author.Username)
	assert.True(t, msgs[0].Timestamp.Equal(m.Timestamp))

	got, err := s.MessageByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = s.MessageByID(ctx, 777)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.AddMessage(ctx, u.ID, "   ")
	assert.ErrorIs(t, err, ErrMessageRequired)

	_, err = s.AddMessage(ctx, u.ID, strings.Repeat("é", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = s.AddMessage(ctx, u.ID, strings.Repeat("é", MaxMessageLength))
	assert.NoError(t, err)
}

func TestDeleteMessage(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	owner := mustSignup(t, s, "test1", "passTest1")
	sketchy := mustSignup(t, s, "sketchy", "sket1234")

	m, err := s.AddMessage(ctx, owner.ID, "Lorem ipsum...")
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteMessage(ctx, m.ID, sketchy.ID), ErrNotOwner)
	_, err = s.MessageByID(ctx, m.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteMessage(ctx, m.ID, owner.ID))
	_, err = s.MessageByID(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteMessage(ctx, m.ID, owner.ID), ErrNotFound)
}

func TestHomeTimeline(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	foo := mustSignup(t, s, "foo", "default")
	bar := mustSignup(t, s, "bar", "default")
	baz := mustSignup(t, s, "baz", "default")

	_, err := s.AddMessage(ctx, foo.ID, "the message by foo")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = s.AddMessage(ctx, bar.ID, "the message by bar")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = s.AddMessage(ctx, baz.ID, "the message by baz")
	require.NoError(t, err)

	texts := func(msgs []*Message) []string {
		var out []string
		for _, m := range msgs {
			out = append(out, m.Text)
		}
		return out
	}

	msgs, err := s.HomeTimeline(ctx, bar.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"the message by bar"}, texts(msgs))

	require.NoError(t, s.Follow(ctx, bar.ID, foo.ID))
	msgs, err = s.HomeTimeline(ctx, bar.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"the message by bar", "the message by foo"}, texts(msgs))

	msgs, err = s.HomeTimeline(ctx, bar.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"the message by bar"}, texts(msgs))

	all, err := s.AllMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"the message by foo", "the message by bar", "the message by baz"}, texts(all))
}

func TestToggleLike(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u1 := mustSignup(t, s, "test1", "passTest1")
	u2 := mustSignup(t, s, "test2", "passTest2")

	msg1, err := s.AddMessage(ctx, u2.ID, "Lorem ipsum...")
	require.NoError(t, err)
	_, err = s.AddMessage(ctx, u2.ID, "Test test test test!")
	require.NoError(t, err)

	liked, err := s.ToggleLike(ctx, u1.ID, msg1.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	likes, err := s.Likes(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, msg1.ID, likes[0].MessageID)

	n, err := s.MessageLikeCount(ctx, msg1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := s.LikedMessageIDs(ctx, u1.ID)
	require.NoError(t, err)
	assert.True(t, ids[msg1.ID])

	liked, err = s.ToggleLike(ctx, u1.ID, msg1.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	likes, err = s.Likes(ctx, u1.ID)
	require.NoError(t, err)
	assert.Empty(t, likes)

	// The store lets authors like their own messages; the web layer refuses.
	liked, err = s.ToggleLike(ctx, u2.ID, msg1.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	_, err = s.ToggleLike(ctx, u1.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLikedMessages(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	u1 := mustSignup(t, s, "test1", "passTest1")
	u2 := mustSignup(t, s, "test2", "passTest2")

	for _, text := range []string{"Test!", "Test test!", "Test test test!"} {
		m, err := s.AddMessage(ctx, u2.ID, text)
		require.NoError(t, err)
		clock.Advance(time.Second)
		_, err = s.ToggleLike(ctx, u1.ID, m.ID)
		require.NoError(t, err)
	}

	msgs, err := s.LikedMessages(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Test test test!", msgs[0].Text)

	stats, err := s.UserStats(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, UserStats{Likes: 3}, stats)

	stats, err = s.UserStats(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, UserStats{Messages: 3}, stats)
}

func TestSearchUsers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	mustSignup(t, s, "test1", "passTest1")
	mustSignup(t, s, "Test2", "passTest2")
	mustSignup(t, s, "other_user", "passTest3")

	names := func(users []*User) []string {
		var out []string
		for _, u := range users {
			out = append(out, u.Username)
		}
		return out
	}

	users, err := s.SearchUsers(ctx, "test")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"test1", "Test2"}, names(users))

	users, err = s.SearchUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, users, 3)

	users, err = s.SearchUsers(ctx, "_")
	require.NoError(t, err)
	assert.Equal(t, []string{"other_user"}, names(users))

	users, err = s.SearchUsers(ctx, "notAUser")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUpdateProfile(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u1 := mustSignup(t, s, "test1", "passTest1")
	mustSignup(t, s, "test2", "passTest2")

	got, err := s.UpdateProfile(ctx, u1.ID, ProfileUpdate{
		Username: "renamed",
		Email:    "renamed@gmail.com",
		Bio:      "Chirp chirp",
		Location: "Aarhus",
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Username)
	assert.Equal(t, "Chirp chirp", got.Bio)
	assert.Equal(t, DefaultImageURL, got.ImageURL)
	assert.Equal(t, DefaultHeaderImageURL, got.HeaderImageURL)

	_, err = s.UpdateProfile(ctx, u1.ID, ProfileUpdate{Username: "test2", Email: "x@gmail.com"})
	assert.ErrorIs(t, err, ErrDuplicateUser)

	_, err = s.UpdateProfile(ctx, 9999, ProfileUpdate{Username: "ghost", Email: "ghost@gmail.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u1 := mustSignup(t, s, "test1", "passTest1")
	u2 := mustSignup(t, s, "test2", "passTest2")

	m1, err := s.AddMessage(ctx, u1.ID, "by test1")
	require.NoError(t, err)
	m2, err := s.AddMessage(ctx, u2.ID, "by test2")
	require.NoError(t, err)
	require.NoError(t, s.Follow(ctx, u2.ID, u1.ID))
	_, err = s.ToggleLike(ctx, u1.ID, m2.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, u1.ID))

	_, err = s.UserByID(ctx, u1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.MessageByID(ctx, m1.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	following, err := s.Following(ctx, u2.ID)
	require.NoError(t, err)
	assert.Empty(t, following)

	n, err := s.MessageLikeCount(ctx, m2.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, s.DeleteUser(ctx, u1.ID), ErrNotFound)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	mustSignup(t, s, "test1", "passTest1")

	require.NoError(t, s.Migrate(ctx))

	_, err := s.UserByUsername(ctx, "test1")
	assert.NoError(t, err)
}
