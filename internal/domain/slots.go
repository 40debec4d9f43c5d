package domain

import (
	"context"
	"errors"
)

// Durable slot keys. Each holds one JSON array.
const (
	SlotChalkboards     = "savedChalkboards"
	SlotUnassignedCards = "unassignedCards"
)

var ErrSlotNotFound = errors.New("slot not found")

// SlotStore is a durable key-value store holding whole encoded collections.
// Put overwrites the slot.
type SlotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
