// Package blob keeps in-memory payloads addressable by opaque URLs until they
// are revoked, in the manner of browser object URLs.
package blob

import (
	"sync"

	"github.com/google/uuid"
)

const scheme = "blob:subtake/"

type object struct {
	data []byte
	mime string
}

// Registry maps blob URLs to payloads. The zero value is not usable; use
// NewRegistry.
type Registry struct {
	mu      sync.RWMutex
	objects map[string]object
}

func NewRegistry() *Registry {
	return &Registry{objects: make(map[string]object)}
}

// Create stores data and returns a fresh URL for it. data is not copied.
func (r *Registry) Create(data []byte, mime string) string {
	url := scheme + uuid.NewString()
	r.mu.Lock()
	r.objects[url] = object{data: data, mime: mime}
	r.mu.Unlock()
	return url
}

// Get returns the payload and MIME type behind url.
func (r *Registry) Get(url string) ([]byte, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.objects[url]
	return o.data, o.mime, ok
}

// Revoke releases url. Unknown and empty URLs are ignored.
func (r *Registry) Revoke(url string) {
	if url == "" {
		return
	}
	r.mu.Lock()
	delete(r.objects, url)
	r.mu.Unlock()
}

// Len reports how many URLs are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}
