package model

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize applies paging defaults and rejects out-of-range values.
func (q ProductQuery) Normalize() (ProductQuery, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Page < 1 {
		return q, apperr.Validation("page", "must be 1 or greater")
	}
	if q.Limit < 1 || q.Limit > MaxPageLimit {
		return q, apperr.Validation("limit", "must be between 1 and 100")
	}
	switch q.Sort {
	case SortNone, SortPriceAsc, SortPriceDesc, SortTitle:
	default:
		return q, apperr.Validation("sort", "must be one of price_asc, price_desc, title")
	}
	q.Category = FoldText(q.Category)
	return q, nil
}

// FoldText lower-cases s and strips combining marks so "Electrónica" matches "electronica".
func FoldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Matches reports whether p passes the filters of a normalized query.
func (q ProductQuery) Matches(p Product) bool {
	if q.Category != "" && !strings.Contains(FoldText(p.Category), q.Category) {
		return false
	}
	if q.InStock != nil {
		if *q.InStock && p.Stock <= 0 {
			return false
		}
		if !*q.InStock && p.Stock != 0 {
			return false
		}
	}
	return true
}

// SortProducts orders ps in place; ties keep their existing order.
func SortProducts(ps []Product, order string) {
	switch order {
	case SortPriceAsc:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Price.LessThan(ps[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Price.GreaterThan(ps[j].Price) })
	case SortTitle:
		sort.SliceStable(ps, func(i, j int) bool { return strings.ToLower(ps[i].Title) < strings.ToLower(ps[j].Title) })
	}
}
