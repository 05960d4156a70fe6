package statestore

import "context"

const KeyBreaker = "breaker/state"

type BreakerState string

const (
	BreakerOpen   BreakerState = "open"
	BreakerClosed BreakerState = "closed"
)

// Breaker is the global circuit breaker flag. The engine only ever reads it
// or opens it; clearing is an explicit external write so a halt is resumed
// consciously, never automatically.
type Breaker struct {
	store Store
}

func NewBreaker(store Store) *Breaker {
	return &Breaker{store: store}
}

func (b *Breaker) State(ctx context.Context) (BreakerState, error) {
	e, err := b.store.Get(ctx, KeyBreaker)
	if err == ErrNotFound {
		return BreakerClosed, nil
	}
	if err != nil {
		return BreakerClosed, err
	}
	var s BreakerState
	if err := unmarshal(e.Value, &s); err != nil {
		return BreakerClosed, err
	}
	if s != BreakerOpen {
		s = BreakerClosed
	}
	return s, nil
}

func (b *Breaker) IsOpen(ctx context.Context) (bool, error) {
	s, err := b.State(ctx)
	return s == BreakerOpen, err
}

func (b *Breaker) Open(ctx context.Context) error {
	return b.store.Set(ctx, KeyBreaker, BreakerOpen)
}

func (b *Breaker) Close(ctx context.Context) error {
	return b.store.Set(ctx, KeyBreaker, BreakerClosed)
}
