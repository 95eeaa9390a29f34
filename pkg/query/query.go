// Package query holds the listing filter, ordering and pagination rules
// shared by every store backend.
package query

import (
	"math"
	"sort"
	"strings"

	"rentalai/pkg/domain"
)

// Validate rejects pages that cannot be sliced.
func Validate(p domain.Page) error {
	if p.Number < 1 {
		return domain.Invalid("page", "must be >= 1")
	}
	if p.PerPage < 1 {
		return domain.Invalid("perPage", "must be >= 1")
	}
	return nil
}

// Match reports whether l is active and satisfies every supplied predicate.
func Match(l domain.Listing, f domain.ListingFilter) bool {
	if !l.IsActive {
		return false
	}
	if f.MinPrice != nil && l.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.Price > *f.MaxPrice {
		return false
	}
	if f.Rooms != nil && l.Rooms != *f.Rooms {
		return false
	}
	if f.District != nil && l.District != *f.District {
		return false
	}
	if f.Metro != nil && !strings.Contains(l.Metro, *f.Metro) {
		return false
	}
	if f.AIEnabled != nil && l.IsAIEnabled != *f.AIEnabled {
		return false
	}
	return true
}

// Sort orders listings newest first. Listings created at the same instant
// keep their relative (insertion) order.
func Sort(items []domain.Listing) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// Offset returns the index of the first item on a validated page p. ok is
// false when that index, or the end of the page, does not fit in an int; such
// a page lies past the end of any result set.
func Offset(p domain.Page) (offset int, ok bool) {
	if p.Number-1 > (math.MaxInt-p.PerPage)/p.PerPage {
		return 0, false
	}
	return (p.Number - 1) * p.PerPage, true
}

// Paginate slices an ordered set; pages past the end are empty.
func Paginate(items []domain.Listing, p domain.Page) []domain.Listing {
	start, ok := Offset(p)
	if !ok || start >= len(items) {
		return []domain.Listing{}
	}
	end := len(items)
	if p.PerPage < end-start {
		end = start + p.PerPage
	}
	return items[start:end]
}

// Apply filters, orders and paginates items given in insertion order.
func Apply(items []domain.Listing, f domain.ListingFilter, p domain.Page) (domain.ListingPage, error) {
	if err := Validate(p); err != nil {
		return domain.ListingPage{}, err
	}
	matched := make([]domain.Listing, 0, len(items))
	for _, l := range items {
		if Match(l, f) {
			matched = append(matched, l)
		}
	}
	Sort(matched)
	return domain.ListingPage{
		Items: Paginate(matched, p),
		Total: len(matched),
	}, nil
}

// TotalPages returns ceil(total/perPage).
func TotalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
