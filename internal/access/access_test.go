package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/identity"
)

// MockReauthenticator is a mock implementation of Reauthenticator.
type MockReauthenticator struct {
	mock.Mock
}

func (m *MockReauthenticator) Authenticate(ctx context.Context, creds identity.Credentials) (*domain.User, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockGateStore is a mock implementation of GateStore.
type MockGateStore struct {
	mock.Mock
}

func (m *MockGateStore) Grant(ctx context.Context, sessionID string, ttl time.Duration) error {
	return m.Called(ctx, sessionID, ttl).Error(0)
}

func (m *MockGateStore) Granted(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateStore) Revoke(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

var (
	adminSession  = &domain.Session{ID: "s-admin", UserID: "u-admin", Email: "admin@cafe.local", Mode: domain.ModeMember}
	memberSession = &domain.Session{ID: "s-member", UserID: "u-member", Email: "cashier@cafe.local", Mode: domain.ModeMember}
	guestSession  = &domain.Session{ID: "s-guest", DisplayName: "Guest", Mode: domain.ModeGuest}
)

func TestPolicy_Permissions(t *testing.T) {
	policy := NewPolicy([]string{" Admin@Cafe.local "})

	tests := []struct {
		name     string
		session  *domain.Session
		verified bool
		browse   bool
		cart     bool
		admin    bool
		manage   bool
	}{
		{"signed out", nil, false, false, false, false, false},
		{"guest", guestSession, true, true, false, false, false},
		{"member", memberSession, true, true, true, false, false},
		{"admin unverified", adminSession, false, true, true, true, false},
		{"admin verified", adminSession, true, true, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := policy.Permissions(tt.session, tt.verified)
			assert.Equal(t, tt.browse, p.CanBrowse())
			assert.Equal(t, tt.cart, p.CanMutateCart())
			assert.Equal(t, tt.cart, p.CanFinalize())
			assert.Equal(t, tt.admin, p.IsAdmin())
			assert.Equal(t, tt.manage, p.CanManage())
		})
	}

	guestWithAdminEmail := &domain.Session{ID: "g", Email: "admin@cafe.local", Mode: domain.ModeGuest}
	assert.False(t, policy.IsAdmin(guestWithAdminEmail), "guests are never administrators")
	assert.Equal(t, "guest", ModeOf(guestSession).String())
}

func newTestGate() (*Gate, *MockReauthenticator, *MockGateStore) {
	auth := new(MockReauthenticator)
	grants := new(MockGateStore)
	return NewGate(auth, grants, NewPolicy([]string{"admin@cafe.local"}), time.Minute), auth, grants
}

func TestGate_Verify(t *testing.T) {
	ctx := context.Background()
	creds := identity.Credentials{Email: "admin@cafe.local", Password: "secret1"}

	t.Run("grants on matching credentials", func(t *testing.T) {
		gate, auth, grants := newTestGate()
		auth.On("Authenticate", ctx, creds).Return(&domain.User{ID: "u-admin", Email: "admin@cafe.local"}, nil)
		grants.On("Grant", ctx, "s-admin", time.Minute).Return(nil)
		grants.On("Granted", ctx, "s-admin").Return(true, nil)

		require.NoError(t, gate.Verify(ctx, adminSession, "admin@cafe.local", "secret1"))
		perms, err := gate.Permissions(ctx, adminSession)
		require.NoError(t, err)
		assert.True(t, perms.CanManage())
		auth.AssertExpectations(t)
		grants.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		gate, auth, grants := newTestGate()
		auth.On("Authenticate", ctx, mock.Anything).Return(nil, errx.ErrInvalidCredential)

		err := gate.Verify(ctx, adminSession, "admin@cafe.local", "nope")
		assert.ErrorIs(t, err, errx.ErrInvalidCredential)
		grants.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("another account's credentials", func(t *testing.T) {
		gate, auth, grants := newTestGate()
		auth.On("Authenticate", ctx, mock.Anything).Return(&domain.User{ID: "u-other", Email: "admin@cafe.local"}, nil)

		err := gate.Verify(ctx, adminSession, "admin@cafe.local", "secret1")
		assert.ErrorIs(t, err, errx.ErrInvalidCredential)
		grants.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not on the allow-list", func(t *testing.T) {
		gate, auth, _ := newTestGate()
		err := gate.Verify(ctx, memberSession, "cashier@cafe.local", "secret1")
		assert.ErrorIs(t, err, errx.ErrNotAdmin)
		auth.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
	})

	t.Run("guest", func(t *testing.T) {
		gate, _, _ := newTestGate()
		assert.ErrorIs(t, gate.Verify(ctx, guestSession, "admin@cafe.local", "secret1"), errx.ErrForbiddenMode)
	})

	t.Run("signed out", func(t *testing.T) {
		gate, _, _ := newTestGate()
		assert.ErrorIs(t, gate.Verify(ctx, nil, "admin@cafe.local", "secret1"), errx.ErrSessionExpired)
	})

	t.Run("grant store down", func(t *testing.T) {
		gate, auth, grants := newTestGate()
		auth.On("Authenticate", ctx, creds).Return(&domain.User{ID: "u-admin", Email: "admin@cafe.local"}, nil)
		grants.On("Grant", ctx, "s-admin", time.Minute).Return(errors.New("redis down"))

		assert.ErrorIs(t, gate.Verify(ctx, adminSession, "admin@cafe.local", "secret1"), errx.ErrAuthNetwork)
	})
}

func TestGate_LeaveAndSignOut(t *testing.T) {
	ctx := context.Background()
	gate, _, grants := newTestGate()
	grants.On("Revoke", mock.Anything, "s-admin").Return(nil).Twice()
	grants.On("Granted", ctx, "s-admin").Return(false, nil)

	require.NoError(t, gate.Leave(ctx, adminSession))
	verified, err := gate.IsVerified(ctx, adminSession)
	require.NoError(t, err)
	assert.False(t, verified)

	gate.OnSessionChange(adminSession, true)
	gate.OnSessionChange(adminSession, false)
	grants.AssertNumberOfCalls(t, "Revoke", 2)
}

func TestGate_IsVerified_NonAdminSkipsStore(t *testing.T) {
	gate, _, grants := newTestGate()

	verified, err := gate.IsVerified(context.Background(), memberSession)
	require.NoError(t, err)
	assert.False(t, verified)
	grants.AssertNotCalled(t, "Granted", mock.Anything, mock.Anything)
}

func TestRedisGateStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	s := NewRedisGateStore(client, "cafepos-test:")
	defer client.Del(ctx, "cafepos-test:admin-gate:s-1")

	require.NoError(t, s.Grant(ctx, "s-1", time.Minute))
	ok, err := s.Granted(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Revoke(ctx, "s-1"))
	ok, err = s.Granted(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
