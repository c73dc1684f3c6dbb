package mq

import (
	"context"

	"tasktracker/pkg/circuitbreaker"
)

type publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// GuardedPublisher stops calling a broker that keeps failing, so a dead
// broker costs callers ErrOpen instead of a timeout per publish.
type GuardedPublisher struct {
	next    publisher
	breaker *circuitbreaker.Breaker
}

func NewGuardedPublisher(next publisher, breaker *circuitbreaker.Breaker) *GuardedPublisher {
	return &GuardedPublisher{next: next, breaker: breaker}
}

func (g *GuardedPublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	return g.breaker.Execute(func() error {
		return g.next.PublishWithContext(ctx, routingKey, payload)
	})
}
