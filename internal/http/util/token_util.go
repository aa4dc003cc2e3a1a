// Package util holds small helpers shared by the HTTP handlers.
package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingSecret = errors.New("redirect secret is not configured")
)

const (
	payloadLen = 8 + 8 // unix expiry + nonce
	sigLen     = 16
)

// TokenSigner issues short-lived HMAC tokens that prove a challenge was solved for
// one subject, e.g. "u:<unlocker id>". A token is only valid for the subject it was
// issued for.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenSigner returns a signer; ttl defaults to one minute.
func NewTokenSigner(secret []byte, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TokenSigner{secret: secret, ttl: ttl, now: time.Now}
}

// Issue mints a token for subject.
func (s *TokenSigner) Issue(subject string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	payload := make([]byte, payloadLen)
	binary.BigEndian.PutUint64(payload[:8], uint64(s.now().Add(s.ttl).Unix()))
	if _, err := rand.Read(payload[8:]); err != nil {
		return "", err
	}

	sig := s.sign(subject, payload)
	return base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString(sig[:sigLen]), nil
}

// Validate checks the signature against subject and the expiry.
func (s *TokenSigner) Validate(subject, token string) error {
	if len(s.secret) == 0 {
		return ErrMissingSecret
	}

	encPayload, encSig, ok := strings.Cut(token, ".")
	if !ok {
		return ErrInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(encPayload)
	if err != nil || len(payload) != payloadLen {
		return ErrInvalidToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil || len(sig) != sigLen {
		return ErrInvalidToken
	}

	expected := s.sign(subject, payload)
	if !hmac.Equal(sig, expected[:sigLen]) {
		return ErrInvalidToken
	}
	expires := int64(binary.BigEndian.Uint64(payload[:8]))
	if s.now().Unix() > expires {
		return ErrInvalidToken
	}
	return nil
}

func (s *TokenSigner) sign(subject string, payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(subject))
	mac.Write([]byte("|"))
	mac.Write(payload)
	return mac.Sum(nil)
}
