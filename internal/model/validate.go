package model

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
)

// MaxQuantity bounds a single cart line and a single decrement; it matches
// the INTEGER columns of the postgres backend.
const MaxQuantity = math.MaxInt32

// ValidateQuantity rejects non-positive and oversized cart quantities.
func ValidateQuantity(q int) error {
	if q <= 0 {
		return apperr.Validation("quantity", "must be greater than 0")
	}
	if q > MaxQuantity {
		return apperr.Validation("quantity", "must be at most 2147483647")
	}
	return nil
}

// addQuantities sums two valid quantities, rejecting a total above MaxQuantity.
func addQuantities(a, b int) (int, error) {
	if a > MaxQuantity-b {
		return 0, apperr.Validation("quantity", "line total must be at most 2147483647")
	}
	return a + b, nil
}

// NormalizeLines validates lines and merges duplicates, keeping the position
// of the first occurrence.
func NormalizeLines(lines []CartLine) ([]CartLine, error) {
	out := make([]CartLine, 0, len(lines))
	idx := make(map[string]int, len(lines))
	for _, l := range lines {
		l.ProductID = strings.TrimSpace(l.ProductID)
		if l.ProductID == "" {
			return nil, apperr.Validation("productId", "is required")
		}
		if err := ValidateQuantity(l.Quantity); err != nil {
			return nil, err
		}
		if i, ok := idx[l.ProductID]; ok {
			sum, err := addQuantities(out[i].Quantity, l.Quantity)
			if err != nil {
				return nil, err
			}
			out[i].Quantity = sum
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

// MergeLine adds quantity of productID to lines, summing into an existing line.
func MergeLine(lines []CartLine, productID string, quantity int) ([]CartLine, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	out := append([]CartLine(nil), lines...)
	for i := range out {
		if out[i].ProductID == productID {
			sum, err := addQuantities(out[i].Quantity, quantity)
			if err != nil {
				return nil, err
			}
			out[i].Quantity = sum
			return out, nil
		}
	}
	return append(out, CartLine{ProductID: productID, Quantity: quantity}), nil
}

// ValidateNewProduct checks the fields required to create a product.
func ValidateNewProduct(p Product) error {
	if strings.TrimSpace(p.Title) == "" {
		return apperr.Validation("title", "is required")
	}
	if strings.TrimSpace(p.Code) == "" {
		return apperr.Validation("code", "is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return apperr.Validation("category", "is required")
	}
	if !p.Price.IsPositive() {
		return apperr.Validation("price", "must be a positive number")
	}
	if p.Stock < 0 {
		return apperr.Validation("stock", "must be 0 or greater")
	}
	return nil
}

// ApplyPatch returns p with patch applied, validating each present field.
func ApplyPatch(p Product, patch ProductPatch) (Product, error) {
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return p, apperr.Validation("title", "must not be empty")
		}
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Code != nil {
		if strings.TrimSpace(*patch.Code) == "" {
			return p, apperr.Validation("code", "must not be empty")
		}
		p.Code = *patch.Code
	}
	if patch.Price != nil {
		if !patch.Price.IsPositive() {
			return p, apperr.Validation("price", "must be a positive number")
		}
		p.Price = *patch.Price
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			return p, apperr.Validation("stock", "must be 0 or greater")
		}
		p.Stock = *patch.Stock
	}
	if patch.Category != nil {
		if strings.TrimSpace(*patch.Category) == "" {
			return p, apperr.Validation("category", "must not be empty")
		}
		p.Category = *patch.Category
	}
	if patch.Thumbnails != nil {
		p.Thumbnails = append([]string(nil), (*patch.Thumbnails)...)
	}
	return p, nil
}

// NewTicket validates the receipt inputs and stamps a fresh id, code and time.
func NewTicket(amount decimal.Decimal, purchaser string, at time.Time) (Ticket, error) {
	purchaser = strings.TrimSpace(purchaser)
	if !amount.IsPositive() {
		return Ticket{}, apperr.Validation("amount", "must be greater than 0")
	}
	if purchaser == "" {
		return Ticket{}, apperr.Validation("purchaser", "is required")
	}
	return Ticket{
		ID:               uuid.NewString(),
		Code:             NewTicketCode(),
		Amount:           amount,
		Purchaser:        purchaser,
		PurchaseDatetime: at.UTC(),
	}, nil
}

// NewTicketCode returns a short upper-case code suitable for printing on a receipt.
func NewTicketCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TKT-" + strings.ToUpper(raw[:12])
}

// Paginate builds a ProductPage from an already filtered and sorted slice.
func Paginate(all []Product, page, limit int) ProductPage {
	total := len(all)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return PageOf(all[start:end], total, page, limit)
}

// PageOf builds the envelope for one already-sliced page of a result set of
// size total.
func PageOf(docs []Product, total, page, limit int) ProductPage {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	pg := ProductPage{
		Docs:        append([]Product{}, docs...),
		TotalDocs:   total,
		Limit:       limit,
		Page:        page,
		TotalPages:  totalPages,
		HasPrevPage: page > 1,
		HasNextPage: page < totalPages,
	}
	if pg.HasPrevPage {
		prev := page - 1
		pg.PrevPage = &prev
	}
	if pg.HasNextPage {
		next := page + 1
		pg.NextPage = &next
	}
	return pg
}
