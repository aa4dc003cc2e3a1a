package service

import (
	"crypto/rand"
	"math/big"
	"net/url"
	"regexp"
	"strings"

	"github.com/sifan077/LinkGate/internal/app/apperr"
)

const (
	codeLength   = 6
	codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxTitleLen  = 200
)

var (
	codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)
	slugPattern = regexp.MustCompile(`^[a-z0-9-]{3,32}$`)
)

// ValidCode reports whether code is a syntactically valid short code.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

func generateCode() (string, error) {
	b := make([]byte, codeLength)
	upper := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, upper)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// NormalizeURL validates raw as an absolute http(s) URL, prefixing https:// when the
// scheme is missing.
func NormalizeURL(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Invalid(field, "is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return "", apperr.Invalid(field, "must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", apperr.Invalid(field, "must use http or https")
	}
	if u.Host == "" || strings.ContainsAny(u.Host, " \t") {
		return "", apperr.Invalid(field, "must include a host")
	}
	return u.String(), nil
}

// optionalURL normalises raw when it is set.
func optionalURL(field, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return NormalizeURL(field, raw)
}

func checkTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if len([]rune(title)) > maxTitleLen {
		return "", apperr.Invalid("title", "must be at most %d characters", maxTitleLen)
	}
	return title, nil
}
