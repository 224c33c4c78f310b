package lifecycle

import (
	"sync"

	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
)

// UIContextHolder is a UIContextProvider the host updates as its UI
// surface comes and goes.
type UIContextHolder struct {
	mu sync.RWMutex
	ui sdk.UIContext
}

// NewUIContextHolder creates a holder with an initial context, which may be nil.
func NewUIContextHolder(ui sdk.UIContext) *UIContextHolder {
	return &UIContextHolder{ui: ui}
}

// Set replaces the current context.
func (h *UIContextHolder) Set(ui sdk.UIContext) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ui = ui
}

// Clear forgets the current context.
func (h *UIContextHolder) Clear() {
	h.Set(nil)
}

// CurrentUIContext implements UIContextProvider.
func (h *UIContextHolder) CurrentUIContext() sdk.UIContext {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ui
}
