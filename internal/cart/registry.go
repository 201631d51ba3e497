package cart

import (
	"sync"

	"techstore/internal/domain"
)

// Registry keeps the open cart of each customer for the life of the process
type Registry struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewRegistry returns an empty Registry
func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*Cart)}
}

// Open returns the customer's cart, creating an empty one on first use
func (r *Registry) Open(customer *domain.Customer) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.carts[customer.ID()]; ok {
		return c
	}
	c := New(customer)
	r.carts[customer.ID()] = c
	return c
}

// Get returns the open cart of a customer, if any
func (r *Registry) Get(customerID string) (*Cart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[customerID]
	return c, ok
}

// Discard drops the customer's cart
func (r *Registry) Discard(customerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, customerID)
}
