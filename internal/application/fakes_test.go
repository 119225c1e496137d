package application

import (
	"context"
	"time"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
	"github.com/oksasatya/authorization-service/internal/infrastructure/search"
	"github.com/oksasatya/authorization-service/internal/testutil"
)

var testHasher = testutil.FastHasher

type memSessions struct {
	m map[string]Session
}

func newMemSessions() *memSessions { return &memSessions{m: map[string]Session{}} }

func (s *memSessions) Put(_ context.Context, sess Session) error {
	s.m[sess.UserID] = sess
	return nil
}

func (s *memSessions) Get(_ context.Context, userID string) (Session, error) {
	sess, ok := s.m[userID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *memSessions) Delete(_ context.Context, userID string) error {
	delete(s.m, userID)
	return nil
}

type memActivations struct {
	m       map[string]string
	pending map[string]bool
}

func newMemActivations() *memActivations {
	return &memActivations{m: map[string]string{}, pending: map[string]bool{}}
}

func (a *memActivations) Issue(_ context.Context, token, userID string, _ time.Duration) error {
	a.m[token] = userID
	return nil
}

func (a *memActivations) Resolve(_ context.Context, token string) (string, error) {
	uid, ok := a.m[token]
	if !ok {
		return "", ErrInvalidActivationToken
	}
	return uid, nil
}

func (a *memActivations) Revoke(_ context.Context, token string) error {
	delete(a.m, token)
	return nil
}

func (a *memActivations) MarkPending(_ context.Context, userID string) error {
	a.pending[userID] = true
	return nil
}

func (a *memActivations) IsPending(_ context.Context, userID string) (bool, error) {
	return a.pending[userID], nil
}

func (a *memActivations) ClearPending(_ context.Context, userID string) error {
	delete(a.pending, userID)
	return nil
}

// tokensFor lists the live tokens issued to userID.
func (a *memActivations) tokensFor(userID string) []string {
	var out []string
	for tok, uid := range a.m {
		if uid == userID {
			out = append(out, tok)
		}
	}
	return out
}

type recordingPublisher struct {
	jobs []any
}

func (p *recordingPublisher) PublishJSON(_ context.Context, body any) error {
	p.jobs = append(p.jobs, body)
	return nil
}

type recordingIndex struct {
	indexed []string
	hits    []search.UserHit
}

func (x *recordingIndex) IndexUser(_ context.Context, u *entity.User) error {
	x.indexed = append(x.indexed, u.ID())
	return nil
}

func (x *recordingIndex) Search(_ context.Context, _ string, _ int) ([]search.UserHit, error) {
	return x.hits, nil
}
