package repository

import (
	"errors"
	"fmt"

	"github.com/sifan077/LinkGate/internal/app/apperr"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that the requested short link does not exist.
	ErrLinkNotFound       = fmt.Errorf("link %w", apperr.ErrNotFound)
	ErrUnlockerNotFound   = fmt.Errorf("unlocker %w", apperr.ErrNotFound)
	ErrSequenceNotFound   = fmt.Errorf("sequence unlocker %w", apperr.ErrNotFound)
	ErrCardNotFound       = fmt.Errorf("bio card %w", apperr.ErrNotFound)
	ErrBioLinkNotFound    = fmt.Errorf("bio link %w", apperr.ErrNotFound)
	ErrSocialLinkNotFound = fmt.Errorf("social link %w", apperr.ErrNotFound)

	// ErrCodeTaken signals a short code collision on insert.
	ErrCodeTaken = &apperr.ValidationError{Field: "code", Message: "short code is already taken"}
	// ErrSlugTaken signals a bio card slug collision on insert.
	ErrSlugTaken = &apperr.ValidationError{Field: "slug", Message: "slug is already taken"}
	// ErrCounterNotAllowed is returned for {table, column} pairs outside the allow-list.
	ErrCounterNotAllowed = &apperr.ValidationError{Field: "column", Message: "counter is not allowed"}
)

// translate maps GORM errors onto the shared taxonomy.
func translate(op string, err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	default:
		return apperr.Remote(op, err)
	}
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
