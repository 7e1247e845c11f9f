package grants

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/goliatone/go-errors"
)

// HandleLookup is the slice of persistence the generator needs: given a
// candidate set, report which handles are already taken.
type HandleLookup interface {
	FindByHandles(ctx context.Context, handles []string) ([]string, error)
}

// HandleSource carries the account data a handle is derived from.
type HandleSource struct {
	Email     string
	FirstName string
	LastName  string
}

const handleVariants = 5

// GenerateHandle derives a unique, human-usable handle. Candidates are tried
// in priority order: the lowercased email when present, the lowercased
// first+last name concatenation, then five variants suffixed with a random
// integer in [1,100]. The first candidate not already taken wins.
//
// This is best-effort uniqueness, not a guarantee: concurrent signups race
// and the unique index rejects true collisions at persistence time. Callers
// retry with a fresh draw, so every call uses fresh randomness.
func GenerateHandle(ctx context.Context, store HandleLookup, src HandleSource) (string, error) {
	base := strings.ToLower(CleanName(src.FirstName) + CleanName(src.LastName))
	base = strings.ReplaceAll(base, " ", "")

	candidates := make([]string, 0, handleVariants+2)

	if email := strings.TrimSpace(strings.ToLower(src.Email)); email != "" {
		candidates = append(candidates, email)
	}

	if base != "" {
		candidates = append(candidates, base)
		for i := 0; i < handleVariants; i++ {
			candidates = append(candidates, base+strconv.Itoa(rand.IntN(100)+1))
		}
	}

	if len(candidates) == 0 {
		return "", errors.New("handle source has no usable fields", errors.CategoryValidation).
			WithTextCode("HANDLE_SOURCE_EMPTY")
	}

	taken, err := store.FindByHandles(ctx, candidates)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to check handle availability")
	}

	takenSet := make(map[string]struct{}, len(taken))
	for _, h := range taken {
		takenSet[h] = struct{}{}
	}

	for _, candidate := range candidates {
		if _, exists := takenSet[candidate]; !exists {
			return candidate, nil
		}
	}

	return "", ErrHandleExhausted.Clone().WithMetadata(map[string]any{
		"candidates": len(candidates),
	})
}
