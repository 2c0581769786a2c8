package demo

import (
	"context"
	"sort"
	"strconv"
	"sync"
)

// MemoryStore keeps products in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
	nextID   int
}

// NewMemoryStore creates a store holding seed.
func NewMemoryStore(seed []Product) *MemoryStore {
	s := &MemoryStore{products: make(map[string]Product, len(seed))}
	for _, p := range seed {
		s.products[p.ID] = p
		if n, err := strconv.Atoi(p.ID); err == nil && n > s.nextID {
			s.nextID = n
		}
	}
	return s
}

// List returns all products ordered by ID.
func (s *MemoryStore) List(context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sortProducts(out)
	return out, nil
}

// Get returns one product.
func (s *MemoryStore) Get(_ context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

// Create adds a product with the next free ID.
func (s *MemoryStore) Create(_ context.Context, in ProductInput) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p := Product{
		ID:          strconv.Itoa(s.nextID),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	}
	s.products[p.ID] = p
	return p, nil
}

// Update applies patch to a product.
func (s *MemoryStore) Update(_ context.Context, id string, patch ProductPatch) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	p, err := patch.Apply(p)
	if err != nil {
		return Product{}, err
	}
	s.products[id] = p
	return p, nil
}

// Delete removes a product.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	return nil
}

// sortProducts orders numerically when IDs are numbers.
func sortProducts(ps []Product) {
	sort.Slice(ps, func(i, j int) bool {
		a, errA := strconv.Atoi(ps[i].ID)
		b, errB := strconv.Atoi(ps[j].ID)
		if errA == nil && errB == nil {
			return a < b
		}
		return ps[i].ID < ps[j].ID
	})
}
