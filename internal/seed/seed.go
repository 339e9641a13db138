// Package seed fills a Warbler database with generated users, messages and
// follow edges for local development.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"warbler/internal/store"
)

var words = strings.Fields(`lorem ipsum dolor sit amet consectetur adipiscing elit sed do
	eiusmod tempor incididunt ut labore et dolore magna aliqua warble chirp tweet
	song nest feather flock wing morning coffee sunrise river city garden`)

type Options struct {
	Users           int
	MessagesPerUser int
	FollowsPerUser  int
	Password        string
	Seed            uint64
}

// DefaultOptions mirrors the size of the classic Warbler seed data.
func DefaultOptions() Options {
	return Options{
		Users:           300,
		MessagesPerUser: 3,
		FollowsPerUser:  5,
		Password:        "password",
		Seed:            1,
	}
}

type Result struct {
	Users    int
	Messages int
	Follows  int
}

// Run inserts the generated data. Usernames are user0..userN-1, so running it
// twice against the same database fails with store.ErrDuplicateUser.
func Run(ctx context.Context, s *store.Store, opts Options, log *zap.Logger) (Result, error) {
	var res Result
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	ids := make([]int64, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		username := fmt.Sprintf("user%d", i)
		u, err := s.Signup(ctx, store.SignupParams{
			Username: username,
			Email:    username + "@example.com",
			Password: opts.Password,
		})
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", username, err)
		}
		ids = append(ids, u.ID)
		res.Users++

		for j := 0; j < opts.MessagesPerUser; j++ {
			if _, err := s.AddMessage(ctx, u.ID, sentence(rng)); err != nil {
				return res, fmt.Errorf("seed message for %s: %w", username, err)
			}
			res.Messages++
		}
	}

	follows := min(opts.FollowsPerUser, len(ids)-1)
	for i, id := range ids {
		picked := 0
		for _, j := range rng.Perm(len(ids)) {
			if picked == follows {
				break
			}
			if j == i {
				continue
			}
			if err := s.Follow(ctx, id, ids[j]); err != nil {
				return res, fmt.Errorf("seed follow: %w", err)
			}
			picked++
			res.Follows++
		}
	}

	log.Info("Database seeded",
		zap.Int("users", res.Users),
		zap.Int("messages", res.Messages),
		zap.Int("follows", res.Follows))
	return res, nil
}

func sentence(rng *rand.Rand) string {
	n := 4 + rng.IntN(12)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[rng.IntN(len(words))]
	}
	s := strings.Join(parts, " ")
	if len(s) > store.MaxMessageLength-1 {
		s = strings.TrimSpace(s[:store.MaxMessageLength-1])
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}
