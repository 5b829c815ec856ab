package propstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hazyhaar/gmameta/gma"
)

// ErrAlreadyInitialized is returned by a second Initialize call.
var ErrAlreadyInitialized = errors.New("propstore: handler already initialized")

// Handler decodes one archive stream into its own Store. It is initialized
// at most once; a failed Initialize leaves it reusable.
type Handler struct {
	dec *gma.Decoder

	mu    sync.Mutex
	store *Store
}

// NewHandler creates a handler decoding with dec.
func NewHandler(dec *gma.Decoder) *Handler {
	return &Handler{dec: dec}
}

// Initialize decodes the header of r (total length size) and publishes it.
// No slot is visible unless every step succeeds.
func (h *Handler) Initialize(ctx context.Context, r io.ReadSeeker, size int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.store != nil {
		return ErrAlreadyInitialized
	}

	hdr, err := h.dec.DecodeReader(ctx, r, size)
	if err != nil {
		return err
	}
	store := NewStore()
	if err := Publish(store, hdr); err != nil {
		return fmt.Errorf("propstore: %w", err)
	}
	h.store = store
	return nil
}

// Store returns the published slots, or nil before a successful Initialize.
func (h *Handler) Store() *Store {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store
}
