package chain

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"chronicle/internal/model"
)

var errSubscriptionClosed = errors.New("subscription closed")

// LogStream is an infinite, non-restartable sequence of live logs.
type LogStream interface {
	// Next blocks until the next log arrives. It returns ctx.Err() when ctx
	// is done and a *ConnectionError when the subscription fails.
	Next(ctx context.Context) (model.RawEvent, error)
	Close()
}

type subscription struct {
	client *Client
	sub    ethereum.Subscription
	logs   chan types.Log
	once   sync.Once
}

func (s *subscription) Next(ctx context.Context) (model.RawEvent, error) {
	select {
	case <-ctx.Done():
		return model.RawEvent{}, ctx.Err()
	case err := <-s.sub.Err():
		if err == nil {
			err = errSubscriptionClosed
		}
		return model.RawEvent{}, s.client.connErr("subscription", err)
	case log := <-s.logs:
		return s.client.rawEvent(ctx, log)
	}
}

func (s *subscription) Close() {
	s.once.Do(s.sub.Unsubscribe)
}
