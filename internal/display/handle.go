// Package display manages the lifetime of decrypted bytes handed to
// rendering surfaces. A Handle is reference counted: every surface showing
// the content retains it, every exit path releases it, and the underlying
// buffer is wiped when the last reference goes away. "Still in use
// elsewhere" (an actively playing track, a zoomed photo) is expressed by an
// extra reference, not by ad hoc state checks.
package display

import (
	"errors"
	"sync"

	"github.com/tearleads/rapidvault/internal/common"
)

// ErrReleased reports use of a handle whose last reference was already
// released.
var ErrReleased = errors.New("display handle released")

// Handle owns one decrypted payload. A new handle starts with one
// reference held by the creator.
type Handle struct {
	mu   sync.Mutex
	data []byte
	refs int
}

// NewHandle wraps the decrypted payload. The handle takes ownership of the
// slice; callers must not retain their own reference to it.
func NewHandle(data []byte) *Handle {
	return &Handle{data: data, refs: 1}
}

// Bytes returns the payload for rendering. The slice stays valid until the
// last reference is released.
func (h *Handle) Bytes() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.refs == 0 {
		return nil, ErrReleased
	}
	return h.data, nil
}

// Retain adds a reference for another surface displaying the same content.
func (h *Handle) Retain() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.refs == 0 {
		return ErrReleased
	}
	h.refs++
	return nil
}

// Release drops one reference. When the count reaches zero the payload is
// wiped and the handle becomes unusable. Releasing more times than
// retained is ErrReleased.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.refs == 0 {
		return ErrReleased
	}
	h.refs--
	if h.refs == 0 {
		common.WipeByteArray(h.data)
		h.data = nil
	}
	return nil
}

// Refs returns the current reference count.
func (h *Handle) Refs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}
