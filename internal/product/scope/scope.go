// Package scope checks that a product belongs to the organization a request targets.
package scope

import (
	"context"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

// Checker reports whether a live product with id exists in orgID.
type Checker interface {
	ProductExists(ctx context.Context, orgID, id string) (bool, error)
}

// Require returns a NotFoundError unless productID is a live product of orgID.
func Require(ctx context.Context, c Checker, orgID, productID string) error {
	if productID == "" {
		return apperr.NotFound("product", "")
	}
	ok, err := c.ProductExists(ctx, orgID, productID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("product", productID)
	}
	return nil
}

// Fixed maps product ids to their organization. Handy in tests and tools.
type Fixed map[string]string

func (f Fixed) ProductExists(_ context.Context, orgID, id string) (bool, error) {
	return f[id] == orgID && orgID != "", nil
}
