package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout is the default timeout for database reads
	DefaultTimeout = 10 * time.Second

	// LongTimeout bounds an upload from file write to vector upsert
	LongTimeout = 5 * time.Minute

	// ShortTimeout is for health probes
	ShortTimeout = 5 * time.Second
)

// WithTimeout creates a context with default timeout
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

// WithLongTimeout creates a context with long timeout for operations that may take longer
func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}
