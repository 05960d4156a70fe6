// Package statestore holds the small durable key/value surface shared by
// every concurrent caller: circuit breaker flag, daily counters, per-symbol
// last-trade timestamps. Values are JSON; every write carries a timestamp
// for audit. All read-modify-write sequences go through CompareAndSwap so
// limits hold under concurrent callers.
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("statestore: key not found")

type Entry struct {
	Value     json.RawMessage
	UpdatedAt time.Time
}

type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, value any) error

	// CompareAndSwap writes value only if the stored JSON equals old.
	// A nil old means the key must not exist yet. Returns false when the
	// stored value has moved on.
	CompareAndSwap(ctx context.Context, key string, old, value any) (bool, error)
}

func unmarshal(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}

func marshal(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
