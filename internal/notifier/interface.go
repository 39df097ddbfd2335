// Package notifier tells operators when a live session stops on an error.
package notifier

import (
	"context"
	"time"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Event describes a live session that stopped on an error.
type Event struct {
	Session   string    `json:"session"`
	Symbols   []string  `json:"symbols"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message"`
	StoppedAt time.Time `json:"stopped_at"`
}

// Notifier delivers stop events
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Notify delivers one event
	Notify(ctx context.Context, ev Event) error
}
