package rpc

import (
	"fmt"
	"sync"
)

// Web3Iterator cycles over the endpoints of one chain. Next always returns
// the first available endpoint; a disabled endpoint goes to the disabled
// list until every endpoint has failed, then all of them become available
// again.
type Web3Iterator struct {
	mu        sync.Mutex
	available []*Web3Endpoint
	disabled  []*Web3Endpoint
}

// NewWeb3Iterator returns an iterator over endpoints.
func NewWeb3Iterator(endpoints ...*Web3Endpoint) *Web3Iterator {
	return &Web3Iterator{available: endpoints}
}

// Add appends an endpoint to the available list, unless its URI is already
// known.
func (w *Web3Iterator) Add(endpoints ...*Web3Endpoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range endpoints {
		if w.find(e.URI) {
			continue
		}
		w.available = append(w.available, e)
	}
}

func (w *Web3Iterator) find(uri string) bool {
	for _, e := range w.available {
		if e.URI == uri {
			return true
		}
	}
	for _, e := range w.disabled {
		if e.URI == uri {
			return true
		}
	}
	return false
}

// Next returns the current endpoint.
func (w *Web3Iterator) Next() (*Web3Endpoint, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.available) == 0 {
		if len(w.disabled) == 0 {
			return nil, fmt.Errorf("no endpoints")
		}
		w.available, w.disabled = w.disabled, nil
	}
	return w.available[0], nil
}

// Disable moves the endpoint with uri to the disabled list.
func (w *Web3Iterator) Disable(uri string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, e := range w.available {
		if e.URI == uri {
			w.available = append(w.available[:i], w.available[i+1:]...)
			w.disabled = append(w.disabled, e)
			return
		}
	}
}

// Available returns the number of available endpoints.
func (w *Web3Iterator) Available() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.available)
}

// Disabled returns the number of disabled endpoints.
func (w *Web3Iterator) Disabled() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.disabled)
}
