// Package redisstore keeps short-lived authentication state in Redis:
// login sessions and account activation tokens.
package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/authorization-service/internal/application"
	"github.com/oksasatya/authorization-service/pkg/helpers"
)

func sessionKey(userID string) string   { return "user:session:" + userID }
func activationKey(token string) string { return "account:activate:token:" + token }
func pendingKey(userID string) string   { return "account:activate:pending:" + userID }

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// SessionStore stores one session hash per user.
type SessionStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewSessionStore(rdb redis.Cmdable, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: orDefault(ttl, 24*time.Hour)}
}

func (s *SessionStore) Put(ctx context.Context, sess application.Session) error {
	key := sessionKey(sess.UserID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    sess.UserID,
		"email":      sess.Email,
		"sid":        sess.SessionID,
		"updated_at": nowRFC3339(),
	})
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SessionStore) Get(ctx context.Context, userID string) (application.Session, error) {
	data, err := s.rdb.HGetAll(ctx, sessionKey(userID)).Result()
	if err != nil {
		return application.Session{}, err
	}
	if len(data) == 0 {
		return application.Session{}, application.ErrSessionNotFound
	}
	return application.Session{UserID: data["user_id"], Email: data["email"], SessionID: data["sid"]}, nil
}

func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	return helpers.RedisDel(ctx, s.rdb, sessionKey(userID))
}

// ActivationStore maps single-use activation tokens to user ids and keeps the
// pending marker of accounts that were never activated. The marker has no TTL.
type ActivationStore struct {
	rdb redis.Cmdable
}

func NewActivationStore(rdb redis.Cmdable) *ActivationStore {
	return &ActivationStore{rdb: rdb}
}

type activationRecord struct {
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
}

func (s *ActivationStore) Issue(ctx context.Context, token, userID string, ttl time.Duration) error {
	return helpers.RedisSetJSON(ctx, s.rdb, activationKey(token), activationRecord{UserID: userID, CreatedAt: nowRFC3339()}, ttl)
}

func (s *ActivationStore) Resolve(ctx context.Context, token string) (string, error) {
	var rec activationRecord
	found, err := helpers.RedisGetJSON(ctx, s.rdb, activationKey(token), &rec)
	if err != nil {
		return "", err
	}
	if !found || rec.UserID == "" {
		return "", application.ErrInvalidActivationToken
	}
	return rec.UserID, nil
}

func (s *ActivationStore) Revoke(ctx context.Context, token string) error {
	return helpers.RedisDel(ctx, s.rdb, activationKey(token))
}

func (s *ActivationStore) MarkPending(ctx context.Context, userID string) error {
	return s.rdb.Set(ctx, pendingKey(userID), nowRFC3339(), 0).Err()
}

func (s *ActivationStore) IsPending(ctx context.Context, userID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, pendingKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *ActivationStore) ClearPending(ctx context.Context, userID string) error {
	return helpers.RedisDel(ctx, s.rdb, pendingKey(userID))
}

var (
	_ application.SessionStore    = (*SessionStore)(nil)
	_ application.ActivationStore = (*ActivationStore)(nil)
)
