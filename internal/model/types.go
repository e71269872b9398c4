// Package model defines domain types used by the service.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is never negative.
type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Code        string          `json:"code"`
	Price       decimal.Decimal `json:"price"`
	Status      bool            `json:"status"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Thumbnails  []string        `json:"thumbnails"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductPatch carries a partial product update; nil fields are left untouched.
type ProductPatch struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Code        *string          `json:"code,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Status      *bool            `json:"status,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Thumbnails  *[]string        `json:"thumbnails,omitempty"`
}

// Sort orders accepted by ProductQuery.
const (
	SortNone      = ""
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortTitle     = "title"
)

// ProductQuery filters and paginates the catalog.
type ProductQuery struct {
	Category string
	InStock  *bool
	Sort     string
	Page     int
	Limit    int
}

// ProductPage is one page of a catalog listing.
type ProductPage struct {
	Docs        []Product `json:"docs"`
	TotalDocs   int       `json:"totalDocs"`
	Limit       int       `json:"limit"`
	Page        int       `json:"page"`
	TotalPages  int       `json:"totalPages"`
	HasPrevPage bool      `json:"hasPrevPage"`
	HasNextPage bool      `json:"hasNextPage"`
	PrevPage    *int      `json:"prevPage"`
	NextPage    *int      `json:"nextPage"`
}

// CartLine is one (product, quantity) pair within a cart.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart holds at most one line per product, in insertion order. Owner is the
// e-mail of the user who created it; empty means any user may use it.
type Cart struct {
	ID        string     `json:"id"`
	Owner     string     `json:"owner,omitempty"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartView is a cart with its lines priced against the current catalog.
type CartView struct {
	ID    string          `json:"id"`
	Owner string          `json:"owner,omitempty"`
	Lines []CartViewLine  `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

type CartViewLine struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Title     string          `json:"title,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Missing   bool            `json:"missing,omitempty"`
}

// Ticket is an immutable purchase receipt.
type Ticket struct {
	ID               string          `json:"id"`
	Code             string          `json:"code"`
	Amount           decimal.Decimal `json:"amount"`
	Purchaser        string          `json:"purchaser"`
	PurchaseDatetime time.Time       `json:"purchase_datetime"`
}

// PurchaseResult is the outcome of one checkout. FailedLines is never nil.
type PurchaseResult struct {
	Success     bool       `json:"success"`
	Ticket      *Ticket    `json:"ticket,omitempty"`
	FailedLines []CartLine `json:"failedLines"`
}

// TicketEvent announces an issued ticket to downstream consumers.
type TicketEvent struct {
	Sequence       uint64          `json:"sequence"`
	TicketCode     string          `json:"ticketCode"`
	Amount         decimal.Decimal `json:"amount"`
	Purchaser      string          `json:"purchaser"`
	CartID         string          `json:"cartId"`
	PurchasedAt    time.Time       `json:"purchasedAt"`
	FulfilledLines int             `json:"fulfilledLines"`
	FailedLines    int             `json:"failedLines"`
}
