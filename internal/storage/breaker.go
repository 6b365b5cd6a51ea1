package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"amarms/internal/logging"

	"github.com/sony/gobreaker"
)

// BreakerStore fails fast once the wrapped store keeps erroring.
type BreakerStore struct {
	inner ObjectStore
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerStore(name string, inner ObjectStore) *BreakerStore {
	return &BreakerStore{
		inner: inner,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
			// caller mistakes are not storage failures
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrInvalidPath) || errors.Is(err, ErrNotFound) ||
					errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Logger.WithFields(map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("storage circuit breaker changed state")
			},
		}),
	}
}

func (b *BreakerStore) Upload(ctx context.Context, objectPath string, r io.Reader) (string, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Upload(ctx, objectPath, r)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (b *BreakerStore) Delete(ctx context.Context, objectPath string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Delete(ctx, objectPath)
	})
	return err
}

func (b *BreakerStore) URL(ctx context.Context, objectPath string) (string, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.URL(ctx, objectPath)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (b *BreakerStore) PathOf(url string) (string, bool) {
	return b.inner.PathOf(url)
}

// State exposes the breaker state for health checks.
func (b *BreakerStore) State() string {
	return b.cb.State().String()
}
