package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/identity"
	"cafe-pos-service/internal/logx"
)

// DefaultGateTTL bounds how long a management verification lasts when the
// operator never leaves the view.
const DefaultGateTTL = 30 * time.Minute

// Reauthenticator checks credentials against the identity provider.
type Reauthenticator interface {
	Authenticate(ctx context.Context, creds identity.Credentials) (*domain.User, error)
}

// GateStore keeps per-session verification grants.
type GateStore interface {
	Grant(ctx context.Context, sessionID string, ttl time.Duration) error
	Granted(ctx context.Context, sessionID string) (bool, error)
	Revoke(ctx context.Context, sessionID string) error
}

// Gate is the second credential check in front of catalog management.
type Gate struct {
	auth   Reauthenticator
	grants GateStore
	policy *Policy
	ttl    time.Duration
}

func NewGate(auth Reauthenticator, grants GateStore, policy *Policy, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = DefaultGateTTL
	}
	return &Gate{auth: auth, grants: grants, policy: policy, ttl: ttl}
}

// Verify re-checks the operator's credentials. They must resolve to the
// signed-in account, and that account must be on the allow-list.
func (g *Gate) Verify(ctx context.Context, session *domain.Session, email, password string) error {
	switch ModeOf(session) {
	case Unauthenticated:
		return errx.WithMessage(errx.ErrSessionExpired, "please sign in")
	case Guest:
		return errx.ErrForbiddenMode
	}
	if !g.policy.IsAdmin(session) {
		return errx.ErrNotAdmin
	}

	user, err := g.auth.Authenticate(ctx, identity.Credentials{Email: email, Password: password})
	if err != nil {
		return err
	}
	if user.ID != session.UserID || !strings.EqualFold(user.Email, session.Email) {
		logx.Warn().Str("session_id", session.ID).Msg("management verification with another account's credentials")
		return errx.WithMessage(errx.ErrInvalidCredential, "enter the credentials of the signed-in account")
	}
	if !g.policy.AllowsEmail(user.Email) {
		return errx.ErrNotAdmin
	}

	if err := g.grants.Grant(ctx, session.ID, g.ttl); err != nil {
		return errx.Wrap(errx.ErrAuthNetwork, err)
	}
	logx.Info().Str("session_id", session.ID).Msg("management view unlocked")
	return nil
}

// Leave resets the verification so the next visit asks again.
func (g *Gate) Leave(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return nil
	}
	if err := g.grants.Revoke(ctx, session.ID); err != nil {
		return errx.Wrap(errx.ErrAuthNetwork, err)
	}
	return nil
}

// IsVerified reports whether session currently holds a grant.
func (g *Gate) IsVerified(ctx context.Context, session *domain.Session) (bool, error) {
	if !g.policy.IsAdmin(session) {
		return false, nil
	}
	ok, err := g.grants.Granted(ctx, session.ID)
	if err != nil {
		return false, errx.Wrap(errx.ErrAuthNetwork, err)
	}
	return ok, nil
}

// Permissions resolves the full capability set of session.
func (g *Gate) Permissions(ctx context.Context, session *domain.Session) (Permissions, error) {
	verified, err := g.IsVerified(ctx, session)
	if err != nil {
		return g.policy.Permissions(session, false), err
	}
	return g.policy.Permissions(session, verified), nil
}

// OnSessionChange drops the grant of a session that signed out. It matches
// identity.SessionListener.
func (g *Gate) OnSessionChange(session *domain.Session, signedIn bool) {
	if signedIn || session == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.grants.Revoke(ctx, session.ID); err != nil {
		logx.Error().Err(err).Str("session_id", session.ID).Msg("failed to reset management verification on sign-out")
	}
}

// RedisGateStore keeps grants as expiring Redis keys.
type RedisGateStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisGateStore(client redis.Cmdable, prefix string) *RedisGateStore {
	return &RedisGateStore{client: client, prefix: prefix + "admin-gate:"}
}

func (s *RedisGateStore) Grant(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+sessionID, time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("grant admin gate: %w", err)
	}
	return nil
}

func (s *RedisGateStore) Granted(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("check admin gate: %w", err)
	}
	return n > 0, nil
}

func (s *RedisGateStore) Revoke(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.prefix+sessionID).Err(); err != nil {
		return fmt.Errorf("reset admin gate: %w", err)
	}
	return nil
}
