package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
)

// ErrInvalidToken wraps every token rejection.
var ErrInvalidToken = fmt.Errorf("%w: invalid session token", apperr.ErrUnauthorized)

// Claims are the HS256 claims issued by the identity provider.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks session tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier returns a verifier; an empty issuer disables the issuer check.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses token and returns the session it carries.
func (v *Verifier) Verify(token string) (Session, error) {
	if len(v.secret) == 0 {
		return Anonymous, errors.New("auth: jwt secret is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Anonymous, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == uuid.Nil {
		return Anonymous, ErrInvalidToken
	}
	return Session{UserID: claims.UserID, Email: claims.Email}, nil
}

// Issue mints a token for userID. The service itself only needs it for the CLI and tests.
func (v *Verifier) Issue(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("auth: jwt secret is not configured")
	}
	now := v.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    v.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
