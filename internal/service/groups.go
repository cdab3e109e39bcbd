package service

import (
	"context"

	"github.com/hongminglow/storefront-accounts/internal/models"
	"github.com/hongminglow/storefront-accounts/internal/storage"
)

// Groups exposes the catalog of customer discount tiers.
type Groups struct {
	store storage.CustomerGroupStore
}

func NewGroups(store storage.CustomerGroupStore) *Groups {
	return &Groups{store: store}
}

// ListActive returns the active groups ordered by name.
func (g *Groups) ListActive(ctx context.Context) ([]models.CustomerGroup, error) {
	out, err := g.store.ListActiveGroups(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}
