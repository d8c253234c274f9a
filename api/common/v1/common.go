// Package commonv1 holds messages shared by every ProdMatic service.
package commonv1

import "strconv"

const (
	// DefaultPageSize is used when a request carries no page size.
	DefaultPageSize = 20
	// MaxPageSize caps the page size of every list call.
	MaxPageSize = 100
)

// Pagination is the request side of a paginated list call. PageToken is opaque to clients.
type Pagination struct {
	PageSize  int32  `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

// PaginationResult carries the token for the next page; empty when there are no more rows.
type PaginationResult struct {
	NextPageToken string `json:"next_page_token,omitempty"`
}

// LimitOffset turns p into a SQL limit and offset. Invalid tokens restart at offset 0.
func (p *Pagination) LimitOffset() (limit, offset int32) {
	limit = DefaultPageSize
	if p == nil {
		return limit, 0
	}
	if p.PageSize > 0 {
		limit = p.PageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if p.PageToken != "" {
		if n, err := strconv.ParseInt(p.PageToken, 10, 32); err == nil && n > 0 {
			offset = int32(n)
		}
	}
	return limit, offset
}

// Next returns the pagination result for a page of got rows fetched with limit and offset.
func Next(limit, offset int32, got int) *PaginationResult {
	if int32(got) < limit {
		return &PaginationResult{}
	}
	return &PaginationResult{NextPageToken: strconv.FormatInt(int64(offset+limit), 10)}
}

// Empty is the response of calls that return nothing.
type Empty struct{}

// FieldViolation describes one invalid input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// MutationResult is returned by bulk mutations.
type MutationResult struct {
	Affected int64 `json:"affected"`
}
