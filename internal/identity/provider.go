// Package identity signs operators in and out and resolves the session
// behind an API token.
package identity

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/logx"
	"cafe-pos-service/internal/store"
)

// GuestDisplayName is shown for guest sessions.
const GuestDisplayName = "Guest"

// Credentials are what an operator types into the sign-in form.
type Credentials struct {
	Email       string
	Password    string
	DisplayName string
}

// SessionListener is told about every sign-in (signedIn true) and sign-out.
type SessionListener func(session *domain.Session, signedIn bool)

// Provider issues sessions for password, Google and guest sign-ins.
type Provider struct {
	users             store.UserStorer
	hasher            *PasswordHasher
	tokens            *TokenManager
	revoker           Revoker
	google            GoogleVerifier
	authorizedDomains []string
	validate          *validator.Validate

	mu        sync.Mutex
	listeners map[uint64]SessionListener
	next      uint64
}

// Option configures optional Provider collaborators.
type Option func(*Provider)

// WithGoogle enables Google sign-in. When domains is non-empty the request
// origin must be one of them.
func WithGoogle(verifier GoogleVerifier, domains []string) Option {
	return func(p *Provider) {
		p.google = verifier
		p.authorizedDomains = domains
	}
}

func NewProvider(users store.UserStorer, hasher *PasswordHasher, tokens *TokenManager, revoker Revoker, opts ...Option) *Provider {
	p := &Provider{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		revoker:   revoker,
		validate:  validator.New(),
		listeners: make(map[uint64]SessionListener),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Authenticate checks email and password without starting a session.
func (p *Provider) Authenticate(ctx context.Context, creds Credentials) (*domain.User, error) {
	email := normalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, errx.ErrInvalidCredential
	}

	user, err := p.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, errx.ErrInvalidCredential
		}
		return nil, errx.Wrap(errx.ErrAuthNetwork, err)
	}
	if !p.hasher.Verify(creds.Password, user.PasswordHash) {
		return nil, errx.ErrInvalidCredential
	}
	return user, nil
}

// SignIn starts a member session for an existing password account.
func (p *Provider) SignIn(ctx context.Context, creds Credentials) (*domain.Session, string, error) {
	user, err := p.Authenticate(ctx, creds)
	if err != nil {
		return nil, "", err
	}
	return p.start(memberSession(user))
}

// SignUp registers a password account and signs it in.
func (p *Provider) SignUp(ctx context.Context, creds Credentials) (*domain.Session, string, error) {
	email := normalizeEmail(creds.Email)
	if err := p.validate.Var(email, "required,email,max=320"); err != nil {
		return nil, "", errx.Wrap(errx.ErrInvalidEmail, err)
	}
	if len(creds.Password) < MinPasswordLength {
		return nil, "", errx.ErrWeakPassword
	}
	if len(creds.Password) > maxPasswordLength {
		return nil, "", errx.WithMessage(errx.ErrWeakPassword, "password must be at most 72 characters")
	}

	hash, err := p.hasher.Hash(creds.Password)
	if err != nil {
		return nil, "", errx.Wrap(errx.ErrAuthInternal, err)
	}

	name := strings.TrimSpace(creds.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	user, err := p.users.CreateUser(ctx, &domain.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  name,
		Provider:     domain.ProviderPassword,
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, "", errx.ErrEmailInUse
		}
		return nil, "", errx.Wrap(errx.ErrAuthNetwork, err)
	}
	logx.Info().Str("user_id", user.ID).Msg("account created")
	return p.start(memberSession(user))
}

// SignInWithGoogle exchanges a Firebase ID token for a member session.
// origin is the Origin header of the page that ran the Google popup.
func (p *Provider) SignInWithGoogle(ctx context.Context, idToken, origin string) (*domain.Session, string, error) {
	if p.google == nil {
		return nil, "", errx.ErrOperationNotAllowed
	}
	if !p.domainAuthorized(origin) {
		return nil, "", errx.ErrUnauthorizedDomain
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, "", errx.ErrInvalidCredential
	}

	token, err := p.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, "", errx.Wrap(errx.ErrInvalidCredential, err)
	}
	email, name, picture := googleProfile(token)
	if email == "" {
		return nil, "", errx.WithMessage(errx.ErrInvalidCredential, "the Google account has no e-mail address")
	}

	user, err := p.users.UpsertExternalUser(ctx, &domain.User{
		Email:       email,
		DisplayName: name,
		AvatarURL:   picture,
		Provider:    domain.ProviderGoogle,
	})
	if err != nil {
		return nil, "", errx.Wrap(errx.ErrAuthNetwork, err)
	}
	return p.start(memberSession(user))
}

// EnterGuest starts a read-only guest session.
func (p *Provider) EnterGuest(ctx context.Context) (*domain.Session, string, error) {
	return p.start(&domain.Session{
		ID:          uuid.NewString(),
		DisplayName: GuestDisplayName,
		Mode:        domain.ModeGuest,
	})
}

// SignOut revokes the session token. Guest sessions end the same way, which
// also clears the guest flag.
func (p *Provider) SignOut(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return nil
	}
	if err := p.revoker.Revoke(ctx, session.ID, time.Until(session.ExpiresAt)); err != nil {
		return errx.Wrap(errx.ErrAuthNetwork, err)
	}
	p.notify(session, false)
	return nil
}

// CurrentSession resolves an API token to its live session.
func (p *Provider) CurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, errx.WithMessage(errx.ErrSessionExpired, "please sign in")
	}
	session, err := p.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := p.revoker.Revoked(ctx, session.ID)
	if err != nil {
		return nil, errx.Wrap(errx.ErrAuthNetwork, err)
	}
	if revoked {
		return nil, errx.ErrSessionExpired
	}
	return session, nil
}

// SubscribeSessionChanges registers fn for sign-in and sign-out events.
func (p *Provider) SubscribeSessionChanges(fn SessionListener) (unsubscribe func()) {
	p.mu.Lock()
	id := p.next
	p.next++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) notify(session *domain.Session, signedIn bool) {
	p.mu.Lock()
	fns := make([]SessionListener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(session, signedIn)
	}
}

func (p *Provider) start(session *domain.Session) (*domain.Session, string, error) {
	token, err := p.tokens.Issue(session)
	if err != nil {
		return nil, "", errx.Wrap(errx.ErrAuthInternal, err)
	}
	logx.Debug().Str("session_id", session.ID).Str("mode", string(session.Mode)).Msg("session started")
	p.notify(session, true)
	return session, token, nil
}

func (p *Provider) domainAuthorized(origin string) bool {
	if len(p.authorizedDomains) == 0 {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range p.authorizedDomains {
		if strings.EqualFold(strings.TrimSpace(d), host) {
			return true
		}
	}
	return false
}

func memberSession(user *domain.User) *domain.Session {
	return &domain.Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Mode:        domain.ModeMember,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
