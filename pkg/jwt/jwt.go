package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingKey   = errors.New("jwt secret is not configured")
)

const TokenTypeAccess = "access"

// Claims represents JWT claims issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string   `json:"user_id"`
	Email    string   `json:"email,omitempty"`
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
	Type     string   `json:"type"`
}

// Config holds JWT settings shared with the identity provider.
type Config struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessDuration time.Duration `mapstructure:"access_duration"`
}

// Manager validates HS256 access tokens and can mint them for trusted callers.
type Manager struct {
	secret         []byte
	issuer         string
	accessDuration time.Duration
}

// NewManager creates a new JWT manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingKey
	}
	d := cfg.AccessDuration
	if d <= 0 {
		d = 15 * time.Minute
	}
	return &Manager{
		secret:         []byte(cfg.Secret),
		issuer:         cfg.Issuer,
		accessDuration: d,
	}, nil
}

// GenerateAccessToken signs an access token for the given identity.
func (m *Manager) GenerateAccessToken(userID, username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.accessDuration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:   userID,
		Username: username,
		Type:     TokenTypeAccess,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ValidateToken validates an access token and returns its claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// Older tokens carry the identity only in "sub".
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Type != "" && claims.Type != TokenTypeAccess {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
