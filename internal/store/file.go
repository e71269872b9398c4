package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fairyhunter13/cart-checkout-service/internal/model"
)

const (
	productsFile = "products.json"
	cartsFile    = "carts.json"
	ticketsFile  = "tickets.json"
)

// OpenFile returns a Memory repository loaded from JSON files in dir and
// rewriting them after every committed mutation.
func OpenFile(dir string) (*Memory, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	m := New()

	var products []model.Product
	if err := readJSON(filepath.Join(dir, productsFile), &products); err != nil {
		return nil, err
	}
	for _, p := range products {
		m.products[p.ID] = p
		m.order = append(m.order, p.ID)
	}
	var carts []model.Cart
	if err := readJSON(filepath.Join(dir, cartsFile), &carts); err != nil {
		return nil, err
	}
	for _, c := range carts {
		if c.Lines == nil {
			c.Lines = []model.CartLine{}
		}
		m.carts[c.ID] = c
	}
	if err := readJSON(filepath.Join(dir, ticketsFile), &m.tickets); err != nil {
		return nil, err
	}
	for i, t := range m.tickets {
		m.byCode[t.Code] = i
	}

	m.flush = func() error { return m.writeSnapshot(dir) }
	return m, nil
}

func (m *Memory) writeSnapshot(dir string) error {
	m.mu.RLock()
	products := make([]model.Product, 0, len(m.order))
	for _, id := range m.order {
		products = append(products, m.products[id])
	}
	carts := make([]model.Cart, 0, len(m.carts))
	for _, c := range m.carts {
		carts = append(carts, c)
	}
	tickets := append([]model.Ticket{}, m.tickets...)
	m.mu.RUnlock()

	// All three files are staged before any is renamed into place.
	staged := make(map[string]string, 3)
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()
	for name, v := range map[string]any{productsFile: products, cartsFile: carts, ticketsFile: tickets} {
		tmp, err := stageJSON(filepath.Join(dir, name), v)
		if err != nil {
			return err
		}
		staged[name] = tmp
	}
	for _, name := range []string{ticketsFile, productsFile, cartsFile} {
		if err := os.Rename(staged[name], filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		delete(staged, name)
	}
	return nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// stageJSON writes v to a synced temp file next to path and returns its name.
func stageJSON(path string, v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	_, err = tmp.Write(b)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return tmp.Name(), nil
}
