package pos

import "sync"

// Registry owns one cart per terminal. Carts are created lazily on
// first use and live for the terminal session; there is no global
// mutable cart state anywhere else.
type Registry struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*Cart)}
}

// Cart returns the cart owned by the given terminal, creating it on
// first access.
func (r *Registry) Cart(terminal string) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[terminal]
	if !ok {
		cart = NewCart()
		r.carts[terminal] = cart
	}
	return cart
}

// Drop forgets a terminal's cart, ending its session.
func (r *Registry) Drop(terminal string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, terminal)
}
