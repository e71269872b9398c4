package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
	"github.com/fairyhunter13/cart-checkout-service/internal/model"
)

// Memory is a Repository held in process memory. Reads share mu; every
// mutation, and every InTx body, is serialized by writeMu so a transaction
// never interleaves with another writer.
type Memory struct {
	writeMu sync.Mutex
	mu      sync.RWMutex

	products map[string]model.Product
	order    []string
	carts    map[string]model.Cart
	tickets  []model.Ticket
	byCode   map[string]int

	now   func() time.Time
	flush func() error
}

func New() *Memory {
	return &Memory{
		products: make(map[string]model.Product),
		carts:    make(map[string]model.Cart),
		byCode:   make(map[string]int),
		now:      time.Now,
	}
}

// memTx records compensations for writes made inside InTx.
type memTx struct {
	undo []func()
}

func (tx *memTx) record(f func()) {
	if tx != nil {
		tx.undo = append(tx.undo, f)
	}
}

type memRepo struct {
	m  *Memory
	tx *memTx
}

func (m *Memory) Products() ProductStore { return memProducts{m: m} }
func (m *Memory) Carts() CartStore       { return memCarts{m: m} }
func (m *Memory) Tickets() TicketStore   { return memTickets{m: m} }
func (m *Memory) Close() error           { return nil }

func (r memRepo) Products() ProductStore { return memProducts(r) }
func (r memRepo) Carts() CartStore       { return memCarts(r) }
func (r memRepo) Tickets() TicketStore   { return memTickets(r) }
func (r memRepo) Close() error           { return nil }

func (r memRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	return fn(ctx, r)
}

// InTx runs fn with every write held back from disk until fn succeeds; the
// snapshot is then flushed once. On error, or when that flush fails, the
// writes are undone.
func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	tx := &memTx{}
	err := fn(ctx, memRepo{m: m, tx: tx})
	if err == nil && len(tx.undo) > 0 {
		if perr := m.persist(); perr != nil {
			err = fmt.Errorf("commit: %w", perr)
		}
	}
	if err != nil {
		m.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// lockWrite takes the writer lock unless the caller already holds it via InTx.
func (m *Memory) lockWrite(tx *memTx) func() {
	if tx != nil {
		return func() {}
	}
	m.writeMu.Lock()
	return m.writeMu.Unlock
}

// commit persists a write made outside InTx. Writes inside a transaction
// are flushed by InTx when it succeeds.
func (m *Memory) commit(tx *memTx) error {
	if tx != nil {
		return nil
	}
	return m.persist()
}

func (m *Memory) persist() error {
	if m.flush == nil {
		return nil
	}
	return m.flush()
}

type memProducts struct {
	m  *Memory
	tx *memTx
}

func (s memProducts) Get(_ context.Context, id string) (model.Product, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	p, ok := s.m.products[id]
	if !ok {
		return model.Product{}, apperr.NotFound("product", id)
	}
	return cloneProduct(p), nil
}

func (s memProducts) List(_ context.Context, q model.ProductQuery) (model.ProductPage, error) {
	q, err := q.Normalize()
	if err != nil {
		return model.ProductPage{}, err
	}
	s.m.mu.RLock()
	matched := make([]model.Product, 0, len(s.m.order))
	for _, id := range s.m.order {
		if p := s.m.products[id]; q.Matches(p) {
			matched = append(matched, cloneProduct(p))
		}
	}
	s.m.mu.RUnlock()
	model.SortProducts(matched, q.Sort)
	return model.Paginate(matched, q.Page, q.Limit), nil
}

func (s memProducts) Create(_ context.Context, p model.Product) (model.Product, error) {
	if err := model.ValidateNewProduct(p); err != nil {
		return model.Product{}, err
	}
	defer s.m.lockWrite(s.tx)()
	s.m.mu.Lock()
	if s.codeTaken(p.Code, "") {
		s.m.mu.Unlock()
		return model.Product{}, apperr.Conflict("product code "+p.Code+" already exists", nil)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := s.m.products[p.ID]; exists {
		s.m.mu.Unlock()
		return model.Product{}, apperr.Conflict("product id "+p.ID+" already exists", nil)
	}
	now := s.m.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	p = cloneProduct(p)
	s.m.products[p.ID] = p
	s.m.order = append(s.m.order, p.ID)
	id := p.ID
	s.tx.record(func() {
		delete(s.m.products, id)
		s.m.order = removeID(s.m.order, id)
	})
	s.m.mu.Unlock()
	return cloneProduct(p), s.m.commit(s.tx)
}

// codeTaken must be called with mu held.
func (s memProducts) codeTaken(code, exceptID string) bool {
	for id, p := range s.m.products {
		if id != exceptID && strings.EqualFold(p.Code, code) {
			return true
		}
	}
	return false
}

func (s memProducts) Update(_ context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	defer s.m.lockWrite(s.tx)()
	s.m.mu.Lock()
	prev, ok := s.m.products[id]
	if !ok {
		s.m.mu.Unlock()
		return model.Product{}, apperr.NotFound("product", id)
	}
	next, err := model.ApplyPatch(cloneProduct(prev), patch)
	if err != nil {
		s.m.mu.Unlock()
		return model.Product{}, err
	}
	if patch.Code != nil && s.codeTaken(next.Code, id) {
		s.m.mu.Unlock()
		return model.Product{}, apperr.Conflict("product code "+next.Code+" already exists", nil)
	}
	next.UpdatedAt = s.m.now().UTC()
	s.m.products[id] = next
	s.tx.record(func() { s.m.products[id] = prev })
	s.m.mu.Unlock()
	return cloneProduct(next), s.m.commit(s.tx)
}

func (s memProducts) Delete(_ context.Context, id string) error {
	defer s.m.lockWrite(s.tx)()
	s.m.mu.Lock()
	prev, ok := s.m.products[id]
	if !ok {
		s.m.mu.Unlock()
		return apperr.NotFound("product", id)
	}
	prevOrder := append([]string(nil), s.m.order...)
	delete(s.m.products, id)
	s.m.order = removeID(s.m.order, id)
	s.tx.record(func() {
		s.m.products[id] = prev
		s.m.order = prevOrder
	})
	s.m.mu.Unlock()
	return s.m.commit(s.tx)
}

func (s memProducts) DecrementStock(_ context.Context, id string, n int) (model.Product, bool, error) {
	if err := model.ValidateQuantity(n); err != nil {
		return model.Product{}, false, err
	}
	defer s.m.lockWrite(s.tx)()
	s.m.mu.Lock()
	p, ok := s.m.products[id]
	if !ok {
		s.m.mu.Unlock()
		return model.Product{}, false, apperr.NotFound("product", id)
	}
	if p.Stock < n {
		s.m.mu.Unlock()
		return cloneProduct(p), false, nil
	}
	prev := p
	p.Stock -= n
	p.UpdatedAt = s.m.now().UTC()
	s.m.products[id] = p
	s.tx.record(func() { s.m.products[id] = prev })
	s.m.mu.Unlock()
	return cloneProduct(p), true, s.m.commit(s.tx)
}

type memCarts struct {
	m  *Memory
	tx *memTx
}

func (s memCarts) Create(_ context.Context, owner string) (model.Cart, error) {
	defer s.m.lockWrite(s.tx)()
	now := s.m.now().UTC()
	c := model.Cart{ID: uuid.NewString(), Owner: owner, Lines: []model.CartLine{}, CreatedAt: now, UpdatedAt: now}
	s.m.mu.Lock()
	s.m.carts[c.ID] = c
	s.tx.record(func() { delete(s.m.carts, c.ID) })
	s.m.mu.Unlock()
	return cloneCart(c), s.m.commit(s.tx)
}

func (s memCarts) Get(_ context.Context, id string) (model.Cart, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	c, ok := s.m.carts[id]
	if !ok {
		return model.Cart{}, apperr.NotFound("cart", id)
	}
	return cloneCart(c), nil
}

// mutate applies f to the cart's lines under the writer lock.
func (s memCarts) mutate(cartID string, f func(lines []model.CartLine) ([]model.CartLine, error)) (model.Cart, error) {
	defer s.m.lockWrite(s.tx)()
	s.m.mu.Lock()
	prev, ok := s.m.carts[cartID]
	if !ok {
		s.m.mu.Unlock()
		return model.Cart{}, apperr.NotFound("cart", cartID)
	}
	lines, err := f(append([]model.CartLine(nil), prev.Lines...))
	if err != nil {
		s.m.mu.Unlock()
		return model.Cart{}, err
	}
	if lines == nil {
		lines = []model.CartLine{}
	}
	next := prev
	next.Lines = lines
	next.UpdatedAt = s.m.now().UTC()
	s.m.carts[cartID] = next
	s.tx.record(func() { s.m.carts[cartID] = prev })
	s.m.mu.Unlock()
	return cloneCart(next), s.m.commit(s.tx)
}

func (s memCarts) AddLine(_ context.Context, cartID, productID string, quantity int) (model.Cart, error) {
	if err := model.ValidateQuantity(quantity); err != nil {
		return model.Cart{}, err
	}
	if strings.TrimSpace(productID) == "" {
		return model.Cart{}, apperr.Validation("productId", "is required")
	}
	return s.mutate(cartID, func(lines []model.CartLine) ([]model.CartLine, error) {
		return model.MergeLine(lines, productID, quantity)
	})
}

func (s memCarts) RemoveLine(_ context.Context, cartID, productID string) (model.Cart, error) {
	return s.mutate(cartID, func(lines []model.CartLine) ([]model.CartLine, error) {
		for i, l := range lines {
			if l.ProductID == productID {
				return append(lines[:i], lines[i+1:]...), nil
			}
		}
		return nil, apperr.NotFound("cart line", productID)
	})
}

func (s memCarts) SetLineQuantity(_ context.Context, cartID, productID string, quantity int) (model.Cart, error) {
	if err := model.ValidateQuantity(quantity); err != nil {
		return model.Cart{}, err
	}
	return s.mutate(cartID, func(lines []model.CartLine) ([]model.CartLine, error) {
		for i := range lines {
			if lines[i].ProductID == productID {
				lines[i].Quantity = quantity
				return lines, nil
			}
		}
		return nil, apperr.NotFound("cart line", productID)
	})
}

func (s memCarts) ReplaceLines(_ context.Context, cartID string, lines []model.CartLine) (model.Cart, error) {
	norm, err := model.NormalizeLines(lines)
	if err != nil {
		return model.Cart{}, err
	}
	return s.mutate(cartID, func([]model.CartLine) ([]model.CartLine, error) { return norm, nil })
}

func (s memCarts) Clear(_ context.Context, cartID string) (model.Cart, error) {
	return s.mutate(cartID, func([]model.CartLine) ([]model.CartLine, error) { return []model.CartLine{}, nil })
}

type memTickets struct {
	m  *Memory
	tx *memTx
}

func (s memTickets) Create(_ context.Context, amount decimal.Decimal, purchaser string) (model.Ticket, error) {
	t, err := model.NewTicket(amount, purchaser, s.m.now())
	if err != nil {
		return model.Ticket{}, err
	}
	defer s.m.lockWrite(s.tx)()
	s.m.mu.Lock()
	for {
		if _, taken := s.m.byCode[t.Code]; !taken {
			break
		}
		t.Code = model.NewTicketCode()
	}
	s.m.byCode[t.Code] = len(s.m.tickets)
	s.m.tickets = append(s.m.tickets, t)
	s.tx.record(func() {
		delete(s.m.byCode, t.Code)
		s.m.tickets = s.m.tickets[:len(s.m.tickets)-1]
	})
	s.m.mu.Unlock()
	return t, s.m.commit(s.tx)
}

func (s memTickets) GetByCode(_ context.Context, code string) (model.Ticket, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	i, ok := s.m.byCode[code]
	if !ok {
		return model.Ticket{}, apperr.NotFound("ticket", code)
	}
	return s.m.tickets[i], nil
}

func cloneProduct(p model.Product) model.Product {
	if p.Thumbnails != nil {
		p.Thumbnails = append([]string(nil), p.Thumbnails...)
	}
	return p
}

func cloneCart(c model.Cart) model.Cart {
	c.Lines = append([]model.CartLine{}, c.Lines...)
	return c
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
