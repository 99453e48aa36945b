package agent

import (
	"errors"
	"sync"
)

// Mode selects which provider class serves a session.
type Mode string

const (
	// ModePrimary routes to the subscription-bound provider. It is a
	// single seat: the client itself serializes calls.
	ModePrimary Mode = "primary"
	// ModeUtility routes to the secondary provider, which carries no
	// exclusivity lock and is bounded only by its own rate limits.
	ModeUtility Mode = "utility"
)

// Router picks the active model client per session.
type Router struct {
	mu      sync.Mutex
	mode    Mode
	primary ModelClient
	utility ModelClient
}

func NewRouter(primary, utility ModelClient, mode Mode) *Router {
	if mode != ModePrimary {
		mode = ModeUtility
	}
	return &Router{mode: mode, primary: primary, utility: utility}
}

func (r *Router) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Toggle flips between primary and utility mode and returns the new mode.
func (r *Router) Toggle() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode == ModePrimary {
		r.mode = ModeUtility
	} else {
		r.mode = ModePrimary
	}
	return r.mode
}

// Active returns the client for the current mode. There is no silent
// cross-mode fallback: a missing client is reported so the caller can
// surface it instead of burning the other provider's budget.
func (r *Router) Active() (ModelClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode == ModePrimary {
		if r.primary == nil {
			return nil, errors.New("primary provider not configured")
		}
		return r.primary, nil
	}
	if r.utility == nil {
		return nil, errors.New("utility provider not configured")
	}
	return r.utility, nil
}
