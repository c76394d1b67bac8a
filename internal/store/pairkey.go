package store

import (
	"strings"

	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
)

// CanonicalPair orders two participants so (a, b) and (b, a) address the same
// conversation or relationship.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func PairKey(a, b string) string {
	first, second := CanonicalPair(a, b)
	return first + "\n" + second
}

func validatePair(a, b string) error {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return apperr.ErrInvalidInput
	}
	if a == b {
		return apperr.ErrSelfRequest
	}
	return nil
}
