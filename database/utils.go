package database

import (
	"context"
	"errors"
	"time"
)

// Common timeout durations for database operations
const (
	// ShortTimeout for quick operations like create, update, delete single documents
	ShortTimeout = 5 * time.Second

	// MediumTimeout for queries that might return multiple documents
	MediumTimeout = 10 * time.Second

	// LongTimeout for bulk operations
	LongTimeout = 30 * time.Second
)

var (
	// ErrDuplicateKey is returned when an insert violates a unique index
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConditionNotMet is returned when a conditional update matched no document
	ErrConditionNotMet = errors.New("update condition not met")

	// ErrUsernameTaken is returned when a profile write collides with another profile's username
	ErrUsernameTaken = errors.New("username already taken")
)

// WithShortTimeout derives a context bounded by ShortTimeout
func WithShortTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, ShortTimeout)
}

// WithMediumTimeout derives a context bounded by MediumTimeout
func WithMediumTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, MediumTimeout)
}

// WithLongTimeout derives a context bounded by LongTimeout
func WithLongTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, LongTimeout)
}
