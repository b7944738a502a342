package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/pkg/serrors"
)

const (
	maxSlugAttempts = 1000
	fallbackSlug    = "policy"
)

var nonSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases title and folds every run of characters outside [a-z0-9] into one hyphen.
func Slugify(title string) string {
	slug := nonSlugPattern.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

type slugChecker interface {
	SlugExists(ctx context.Context, tenantID uuid.UUID, slug string, excludeID uuid.UUID) (bool, error)
}

// uniqueSlug returns the first free slug among base, base-1, base-2, ... within the tenant.
func uniqueSlug(ctx context.Context, repo slugChecker, tenantID uuid.UUID, title string, excludeID uuid.UUID) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = fallbackSlug
	}
	taken, err := repo.SlugExists(ctx, tenantID, base, excludeID)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	for i := 1; i <= maxSlugAttempts; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		taken, err := repo.SlugExists(ctx, tenantID, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", serrors.Exhausted(CodeSlugExhausted, fmt.Sprintf("no free slug for %q after %d attempts", base, maxSlugAttempts))
}
