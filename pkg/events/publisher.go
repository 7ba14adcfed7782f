package events

import (
	"context"
	"errors"
)

// EventPublisher is the interface for publishing bridge delivery events.
type EventPublisher interface {
	PublishDropped(ctx context.Context, event *DropEvent) error
	PublishArgumentError(ctx context.Context, event *ArgumentErrorEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for in-process usage without events).
type NoOpPublisher struct{}

// PublishDropped is a no-op.
func (p *NoOpPublisher) PublishDropped(_ context.Context, _ *DropEvent) error {
	return nil
}

// PublishArgumentError is a no-op.
func (p *NoOpPublisher) PublishArgumentError(_ context.Context, _ *ArgumentErrorEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls callback functions (for testing).
// A nil callback is skipped.
type CallbackPublisher struct {
	OnDropped       func(ctx context.Context, event *DropEvent) error
	OnArgumentError func(ctx context.Context, event *ArgumentErrorEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher that only reports drops.
func NewCallbackPublisher(cb func(ctx context.Context, event *DropEvent) error) *CallbackPublisher {
	return &CallbackPublisher{OnDropped: cb}
}

// PublishDropped calls the drop callback.
func (p *CallbackPublisher) PublishDropped(ctx context.Context, event *DropEvent) error {
	if p.OnDropped == nil {
		return nil
	}
	return p.OnDropped(ctx, event)
}

// PublishArgumentError calls the argument error callback.
func (p *CallbackPublisher) PublishArgumentError(ctx context.Context, event *ArgumentErrorEvent) error {
	if p.OnArgumentError == nil {
		return nil
	}
	return p.OnArgumentError(ctx, event)
}

// MultiPublisher fans events out to several publishers. Every publisher is
// called; the errors are joined.
type MultiPublisher struct {
	publishers []EventPublisher
}

// NewMultiPublisher creates a MultiPublisher. Nil publishers are ignored.
func NewMultiPublisher(publishers ...EventPublisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// PublishDropped sends the event to every publisher.
func (m *MultiPublisher) PublishDropped(ctx context.Context, event *DropEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishDropped(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishArgumentError sends the event to every publisher.
func (m *MultiPublisher) PublishArgumentError(ctx context.Context, event *ArgumentErrorEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishArgumentError(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Compile-time interface satisfaction checks.
var (
	_ EventPublisher = (*NoOpPublisher)(nil)
	_ EventPublisher = (*CallbackPublisher)(nil)
	_ EventPublisher = (*MultiPublisher)(nil)
)
