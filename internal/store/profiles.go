package store

import (
	"context"
	"errors"

	"log/slog"

	"github.com/redis/go-redis/v9"

	"presence-server/internal/app"
)

// Profiles is the external user-profile store, keyed by user id. The
// coordinator never touches it; only the REST avatar endpoint writes here,
// fire-and-forget from the room state's point of view.
type Profiles struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewProfiles connects to redis and verifies connectivity
func NewProfiles(ctx context.Context, cfg app.Config, log *slog.Logger) (*Profiles, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Profiles{rdb: rdb, log: log}, nil
}

// UpdateAvatar writes the avatar URL onto the user's profile hash.
func (p *Profiles) UpdateAvatar(ctx context.Context, userID, avatarURL string) error {
	if userID == "" || avatarURL == "" {
		return errors.New("userId and avatarURL required")
	}
	if err := p.rdb.HSet(ctx, profileKey(userID), "avatarURL", avatarURL).Err(); err != nil {
		return err
	}
	p.log.Info("profile.avatar.updated", "userId", userID)
	return nil
}

// Avatar reads the stored avatar URL; empty string when unset.
func (p *Profiles) Avatar(ctx context.Context, userID string) (string, error) {
	v, err := p.rdb.HGet(ctx, profileKey(userID), "avatarURL").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// Close shuts down the redis connection
func (p *Profiles) Close() { _ = p.rdb.Close() }

// key namespacing for user profiles
func profileKey(userID string) string { return "user:" + userID }
