// Package token issues and verifies the signed access/refresh token pair.
// Both kinds are signed with one shared HS256 secret and carry a "typ"
// claim so a refresh token can never pass where an access token is
// expected, or the other way around.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "stackstart-api"
	Audience = "stackstart-web"

	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

const minSecretBytes = 32

var (
	ErrWeakSecret   = errors.New("jwt secret must be at least 32 bytes")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
	ErrWrongType    = errors.New("unexpected token type")
)

// Payload is the identity carried by both token kinds.
type Payload struct {
	UserID string
	Email  string
	Role   string
}

// Claims is the wire shape of a token.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is the result of a successful authentication.
type Pair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
}

type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService refuses to construct a service with a weak secret; failing at
// startup beats signing tokens nobody should trust.
func NewService(secret string, accessTTL, refreshTTL time.Duration) (*Service, error) {
	if len(secret) < minSecretBytes {
		return nil, ErrWeakSecret
	}
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (s *Service) IssuePair(p Payload) (*Pair, error) {
	access, err := s.sign(p, TypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(p, TypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// RefreshTTL reports the configured refresh token lifetime, used to expire
// the session row alongside the token.
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *Service) sign(p Payload, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:     p.Email,
		Role:      p.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   p.UserID,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// Verify checks signature, issuer, audience and required claims, and
// returns the decoded claims. Expiry failures map to ErrExpiredToken,
// everything else to ErrInvalidToken.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	return s.verifyTyped(tokenString, TypeAccess)
}

func (s *Service) VerifyRefresh(tokenString string) (*Claims, error) {
	return s.verifyTyped(tokenString, TypeRefresh)
}

func (s *Service) verifyTyped(tokenString, wantType string) (*Claims, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongType
	}
	return claims, nil
}

// ExtractBearer pulls the token out of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive; anything malformed returns "".
func ExtractBearer(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	tok := strings.TrimSpace(header[len(prefix):])
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return ""
	}
	return tok
}
