// Package revalidate signals that cached views of an organization changed. Paths follow
// /orgs/{org}/products/{product}/{view}; invalidating a path also invalidates every path below it.
package revalidate

import (
	"context"
	"errors"
	"strings"
)

// Invalidator receives the paths touched by a committed mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, orgID string, paths []string) error
}

// Multi fans out to every non-nil invalidator and joins their errors.
type Multi []Invalidator

// Invalidate implements Invalidator.
func (m Multi) Invalidate(ctx context.Context, orgID string, paths []string) error {
	var errs []error
	for _, inv := range m {
		if inv == nil {
			continue
		}
		if err := inv.Invalidate(ctx, orgID, paths); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OrgPath returns /orgs/{org}.
func OrgPath(orgID string) string {
	return "/orgs/" + orgID
}

// ProductPath returns /orgs/{org}/products/{product}, or the org path when productID is empty.
func ProductPath(orgID, productID string) string {
	if productID == "" {
		return OrgPath(orgID)
	}
	return OrgPath(orgID) + "/products/" + productID
}

// ViewPath returns /orgs/{org}/products/{product}/{view...}.
func ViewPath(orgID, productID string, view ...string) string {
	p := ProductPath(orgID, productID)
	for _, v := range view {
		if v != "" {
			p += "/" + v
		}
	}
	return p
}

// covers reports whether invalidating prefix invalidates path.
func covers(prefix, path string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
