package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/store"
)

// MockUserStorer is a mock implementation of store.UserStorer.
type MockUserStorer struct {
	mock.Mock
}

func (m *MockUserStorer) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStorer) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStorer) UpsertExternalUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newMemoryRevoker() *memoryRevoker {
	return &memoryRevoker{revoked: make(map[string]time.Duration)}
}

func (r *memoryRevoker) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.revoked[sessionID] = ttl
	return nil
}

func (r *memoryRevoker) Revoked(ctx context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.revoked[sessionID]
	return ok, nil
}

type fakeGoogle struct {
	token *auth.Token
	err   error
}

func (f fakeGoogle) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return f.token, f.err
}

func newTestProvider(t *testing.T, opts ...Option) (*Provider, *MockUserStorer, *memoryRevoker) {
	t.Helper()
	users := new(MockUserStorer)
	revoker := newMemoryRevoker()
	tokens := NewTokenManager(TokenConfig{SecretKey: "test-secret-key-123", TTL: time.Hour, Issuer: "test"})
	return NewProvider(users, NewPasswordHasher(bcrypt.MinCost), tokens, revoker, opts...), users, revoker
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := NewPasswordHasher(bcrypt.MinCost).Hash(password)
	require.NoError(t, err)
	return h
}

func TestProvider_SignIn(t *testing.T) {
	ctx := context.Background()
	p, users, _ := newTestProvider(t)

	users.On("GetUserByEmail", ctx, "cashier@cafe.local").Return(&domain.User{
		ID: "u1", Email: "cashier@cafe.local", DisplayName: "Cashier", PasswordHash: hashed(t, "secret1"),
	}, nil)

	session, token, err := p.SignIn(ctx, Credentials{Email: " Cashier@cafe.local ", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, domain.ModeMember, session.Mode)
	assert.Equal(t, "u1", session.UserID)

	current, err := p.CurrentSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, current.ID)
	assert.Equal(t, "Cashier", current.DisplayName)
	assert.False(t, current.IsGuest())

	_, _, err = p.SignIn(ctx, Credentials{Email: "cashier@cafe.local", Password: "wrong!"})
	assert.ErrorIs(t, err, errx.ErrInvalidCredential)
	users.AssertExpectations(t)
}

func TestProvider_SignIn_UnknownAccount(t *testing.T) {
	ctx := context.Background()
	p, users, _ := newTestProvider(t)
	users.On("GetUserByEmail", ctx, "nobody@cafe.local").Return(nil, store.ErrUserNotFound)

	_, _, err := p.SignIn(ctx, Credentials{Email: "nobody@cafe.local", Password: "whatever"})
	assert.ErrorIs(t, err, errx.ErrInvalidCredential)
	assert.Equal(t, 401, errx.StatusOf(err))
}

func TestProvider_SignIn_StoreDown(t *testing.T) {
	ctx := context.Background()
	p, users, _ := newTestProvider(t)
	users.On("GetUserByEmail", ctx, "a@cafe.local").Return(nil, errors.New("dial tcp: refused"))

	_, _, err := p.SignIn(ctx, Credentials{Email: "a@cafe.local", Password: "secret1"})
	assert.ErrorIs(t, err, errx.ErrAuthNetwork)
}

func TestProvider_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("weak password", func(t *testing.T) {
		p, users, _ := newTestProvider(t)
		_, _, err := p.SignUp(ctx, Credentials{Email: "new@cafe.local", Password: "12345"})
		assert.ErrorIs(t, err, errx.ErrWeakPassword)
		users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("invalid email", func(t *testing.T) {
		p, _, _ := newTestProvider(t)
		for _, email := range []string{"not-an-email", "", "two@@cafe.local", "a b@cafe.local"} {
			_, _, err := p.SignUp(ctx, Credentials{Email: email, Password: "123456"})
			assert.ErrorIs(t, err, errx.ErrInvalidEmail, email)
		}
	})

	t.Run("email in use", func(t *testing.T) {
		p, users, _ := newTestProvider(t)
		users.On("CreateUser", ctx, mock.AnythingOfType("*domain.User")).Return(nil, store.ErrEmailExists)
		_, _, err := p.SignUp(ctx, Credentials{Email: "dup@cafe.local", Password: "123456"})
		assert.ErrorIs(t, err, errx.ErrEmailInUse)
		assert.Equal(t, "this e-mail is already in use, please sign in instead", errx.MessageOf(err))
	})

	t.Run("created and signed in", func(t *testing.T) {
		p, users, _ := newTestProvider(t)
		users.On("CreateUser", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Email == "barista@cafe.local" && u.DisplayName == "barista" &&
				u.Provider == domain.ProviderPassword && u.PasswordHash != "123456"
		})).Return(&domain.User{ID: "u2", Email: "barista@cafe.local", DisplayName: "barista"}, nil)

		session, token, err := p.SignUp(ctx, Credentials{Email: "Barista@cafe.local", Password: "123456"})
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "u2", session.UserID)
		users.AssertExpectations(t)
	})
}

func TestProvider_SignInWithGoogle(t *testing.T) {
	ctx := context.Background()
	googleToken := &auth.Token{UID: "g-1", Claims: map[string]interface{}{
		"email": "owner@cafe.local", "name": "Owner", "picture": "https://img/owner.png",
	}}

	t.Run("not configured", func(t *testing.T) {
		p, _, _ := newTestProvider(t)
		_, _, err := p.SignInWithGoogle(ctx, "id-token", "https://pos.cafe.local")
		assert.ErrorIs(t, err, errx.ErrOperationNotAllowed)
	})

	t.Run("unauthorized domain", func(t *testing.T) {
		p, _, _ := newTestProvider(t, WithGoogle(fakeGoogle{token: googleToken}, []string{"pos.cafe.local"}))
		_, _, err := p.SignInWithGoogle(ctx, "id-token", "https://evil.example.com")
		assert.ErrorIs(t, err, errx.ErrUnauthorizedDomain)
	})

	t.Run("rejected token", func(t *testing.T) {
		p, _, _ := newTestProvider(t, WithGoogle(fakeGoogle{err: errors.New("expired")}, nil))
		_, _, err := p.SignInWithGoogle(ctx, "id-token", "")
		assert.ErrorIs(t, err, errx.ErrInvalidCredential)
	})

	t.Run("signed in", func(t *testing.T) {
		p, users, _ := newTestProvider(t, WithGoogle(fakeGoogle{token: googleToken}, []string{"pos.cafe.local"}))
		users.On("UpsertExternalUser", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Email == "owner@cafe.local" && u.Provider == domain.ProviderGoogle && u.AvatarURL == "https://img/owner.png"
		})).Return(&domain.User{ID: "u3", Email: "owner@cafe.local", DisplayName: "Owner", AvatarURL: "https://img/owner.png"}, nil)

		session, _, err := p.SignInWithGoogle(ctx, "id-token", "https://pos.cafe.local:443")
		require.NoError(t, err)
		assert.Equal(t, "Owner", session.DisplayName)
		assert.Equal(t, "https://img/owner.png", session.AvatarURL)
	})
}

func TestProvider_GuestAndSignOut(t *testing.T) {
	ctx := context.Background()
	p, _, revoker := newTestProvider(t)

	var events []bool
	unsubscribe := p.SubscribeSessionChanges(func(s *domain.Session, signedIn bool) { events = append(events, signedIn) })

	session, token, err := p.EnterGuest(ctx)
	require.NoError(t, err)
	assert.True(t, session.IsGuest())
	assert.Equal(t, GuestDisplayName, session.DisplayName)

	current, err := p.CurrentSession(ctx, token)
	require.NoError(t, err)
	assert.True(t, current.IsGuest())

	require.NoError(t, p.SignOut(ctx, current))
	_, err = p.CurrentSession(ctx, token)
	assert.ErrorIs(t, err, errx.ErrSessionExpired, "revoked tokens are rejected")
	assert.Contains(t, revoker.revoked, session.ID)

	unsubscribe()
	_, _, err = p.EnterGuest(ctx)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, events, "no events after unsubscribe")
}

func TestProvider_CurrentSession_Invalid(t *testing.T) {
	ctx := context.Background()
	p, _, revoker := newTestProvider(t)

	_, err := p.CurrentSession(ctx, "")
	assert.ErrorIs(t, err, errx.ErrSessionExpired)

	_, err = p.CurrentSession(ctx, "not.a.token")
	assert.ErrorIs(t, err, errx.ErrSessionExpired)

	_, token, err := p.EnterGuest(ctx)
	require.NoError(t, err)
	revoker.err = errors.New("redis down")
	_, err = p.CurrentSession(ctx, token)
	assert.ErrorIs(t, err, errx.ErrAuthNetwork)
}
