package demo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vyrodovalexey/wiggly/internal/util"
)

// ErrProductNotFound is returned for unknown product IDs.
var ErrProductNotFound = fmt.Errorf("product %w", util.ErrNotFound)

// Product is a catalogue entry.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// ProductInput creates a product.
type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Validate checks the input.
func (p ProductInput) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required: %w", util.ErrInvalidInput)
	}
	if p.Price < 0 {
		return fmt.Errorf("price must not be negative: %w", util.ErrInvalidInput)
	}
	return nil
}

// ProductPatch updates the fields that are set.
type ProductPatch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// Apply returns p with the patch applied.
func (u ProductPatch) Apply(p Product) (Product, error) {
	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return p, fmt.Errorf("name must not be empty: %w", util.ErrInvalidInput)
		}
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		if *u.Price < 0 {
			return p, fmt.Errorf("price must not be negative: %w", util.ErrInvalidInput)
		}
		p.Price = *u.Price
	}
	return p, nil
}

// ProductStore persists products. Implementations are safe for
// concurrent use.
type ProductStore interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, in ProductInput) (Product, error)
	Update(ctx context.Context, id string, patch ProductPatch) (Product, error)
	// Delete removes a product. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}

// SeedProducts returns the initial catalogue.
func SeedProducts() []Product {
	return []Product{
		{ID: "1", Name: "Laptop", Description: "A high-performance laptop", Price: 1500},
		{ID: "2", Name: "Smartphone", Description: "A latest model smartphone", Price: 800},
		{ID: "3", Name: "Headphones", Description: "Noise-cancelling headphones", Price: 200},
	}
}

// IsNotFound reports whether err means a missing product.
func IsNotFound(err error) bool {
	return errors.Is(err, util.ErrNotFound)
}
