package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/errx"
)

// TokenConfig holds session token settings.
type TokenConfig struct {
	SecretKey string
	TTL       time.Duration
	Issuer    string
}

// SessionClaims are the claims carried by a session token. The registered
// ID claim is the session id.
type SessionClaims struct {
	UserID    string             `json:"uid"`
	Email     string             `json:"email,omitempty"`
	Name      string             `json:"name,omitempty"`
	AvatarURL string             `json:"avatar,omitempty"`
	Mode      domain.SessionMode `json:"mode"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates HS256 session tokens.
type TokenManager struct {
	config TokenConfig
}

func NewTokenManager(config TokenConfig) *TokenManager {
	return &TokenManager{config: config}
}

// TTL is how long issued tokens stay valid.
func (m *TokenManager) TTL() time.Duration {
	return m.config.TTL
}

// Issue signs a token for session. ExpiresAt is set on session as a side effect.
func (m *TokenManager) Issue(session *domain.Session) (string, error) {
	now := time.Now()
	session.ExpiresAt = now.Add(m.config.TTL).Truncate(time.Second)
	claims := SessionClaims{
		UserID:    session.UserID,
		Email:     session.Email,
		Name:      session.DisplayName,
		AvatarURL: session.AvatarURL,
		Mode:      session.Mode,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    m.config.Issuer,
			Subject:   session.UserID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// Parse validates tokenString and rebuilds the session it was issued for.
func (m *TokenManager) Parse(tokenString string) (*domain.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(m.config.SecretKey), nil
	}, jwt.WithIssuer(m.config.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errx.Wrap(errx.ErrSessionExpired, err)
		}
		return nil, errx.Wrap(errx.WithMessage(errx.ErrSessionExpired, "invalid session token, please sign in again"), err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, errx.WithMessage(errx.ErrSessionExpired, "invalid session token, please sign in again")
	}
	if claims.Mode != domain.ModeGuest && claims.Mode != domain.ModeMember {
		return nil, errx.WithMessage(errx.ErrSessionExpired, "invalid session token, please sign in again")
	}

	session := &domain.Session{
		ID:          claims.ID,
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.Name,
		AvatarURL:   claims.AvatarURL,
		Mode:        claims.Mode,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}
