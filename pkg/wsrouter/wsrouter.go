package wsrouter

import (
	"context"
	"encoding/json"
	"fmt"
)

type envelope struct {
	Type string `json:"type"`
}

// HandlerFunc handles a single inbound frame. The raw frame is passed
// whole because relay messages carry their fields next to the type
// discriminator, not nested under a payload key.
type HandlerFunc func(ctx context.Context, raw json.RawMessage) error

type Router struct {
	routes map[string]HandlerFunc
}

func New() *Router {
	return &Router{routes: make(map[string]HandlerFunc)}
}

func (r *Router) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// Dispatch routes a raw frame to the handler registered for its type.
// Frames without a known type are an error for the caller to log and
// drop.
func (r *Router) Dispatch(ctx context.Context, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed frame: %w", err)
	}

	handler, exists := r.routes[env.Type]
	if !exists {
		return fmt.Errorf("unknown message type %q", env.Type)
	}

	return handler(ctx, raw)
}
