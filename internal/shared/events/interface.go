package events

import (
	"context"
	"fmt"
	"time"

	"github.com/social-security/patient-office/internal/shared/config"
)

// EventBus defines the interface for publishing session events and reading
// them back.
type EventBus interface {
	// Publish publishes an event to the bus
	Publish(ctx context.Context, event Event) error

	// Recent returns up to limit events, newest first
	Recent(ctx context.Context, limit int) ([]Event, error)

	// Close closes the event bus connection
	Close()

	// Health checks the event bus connection
	Health() error
}

// NewEventBus returns a KurrentDB bus when enabled, and an in-process ring
// buffer otherwise.
func NewEventBus(ctx context.Context, cfg config.KurrentDBConfig) (EventBus, string, error) {
	if !cfg.Enabled {
		return NewMemoryBus(DefaultMemoryCapacity), "memory", nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	bus, err := NewBus(timeoutCtx, cfg)
	if err != nil {
		return nil, "", err
	}

	if err := bus.Health(); err != nil {
		bus.Close()
		return nil, "", fmt.Errorf("KurrentDB health check failed: %w", err)
	}

	return bus, "kurrentdb", nil
}

// Ensure Bus implements EventBus
var _ EventBus = (*Bus)(nil)

// Ensure MemoryBus implements EventBus
var _ EventBus = (*MemoryBus)(nil)
