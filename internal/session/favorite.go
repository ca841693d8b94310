package session

import (
	"context"

	"github.com/couchcryptid/campus-foryou-service/internal/domain"
)

// FavoriteKey is where the favorite category preference is stored.
const FavoriteKey = "favCategory"

// FavoriteCategory returns the stored favorite category. Missing, unknown,
// or unreadable values yield nil.
func FavoriteCategory(ctx context.Context, store Store) *domain.Category {
	raw, ok, err := store.Get(ctx, FavoriteKey)
	if err != nil || !ok {
		return nil
	}
	c, err := domain.ParseCategory(raw)
	if err != nil {
		return nil
	}
	return &c
}

// SetFavoriteCategory validates and stores the favorite category. An empty
// name clears the preference.
func SetFavoriteCategory(ctx context.Context, store Store, name string) error {
	if name == "" {
		return store.Remove(ctx, FavoriteKey)
	}
	c, err := domain.ParseCategory(name)
	if err != nil {
		return err
	}
	return store.Set(ctx, FavoriteKey, string(c))
}
