package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/script-bridge/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// DropSubject overrides the drop event base subject (e.g. from BRIDGE_DROP_SUBJECT).
	DropSubject string
	// ArgumentErrorSubject overrides the argument error subject.
	ArgumentErrorSubject string
}

// CommsPublisher publishes bridge delivery events to COMMS subjects.
type CommsPublisher struct {
	nc                   *comms.Conn
	dropSubject          string
	argumentErrorSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	p := &CommsPublisher{
		nc:                   nc,
		dropSubject:          commsutil.SubjectDropEvent,
		argumentErrorSubject: commsutil.SubjectArgumentError,
	}
	if opts != nil && opts.DropSubject != "" {
		p.dropSubject = opts.DropSubject
	}
	if opts != nil && opts.ArgumentErrorSubject != "" {
		p.argumentErrorSubject = opts.ArgumentErrorSubject
	}
	return p
}

// PublishDropped publishes a DropEvent to both the granular
// and global drop subjects.
func (p *CommsPublisher) PublishDropped(_ context.Context, event *DropEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	granularSubject := commsutil.BuildDropSubject(p.dropSubject, event.Bridge)
	if err := p.nc.Publish(granularSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, granularSubject, err))
		return err
	}

	if err := p.nc.Publish(p.dropSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.dropSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published drop event %s for %s", commsPublisherLogPrefix, event.ID, event.Bridge))
	return nil
}

// PublishArgumentError publishes an ArgumentErrorEvent to the argument error subject.
func (p *CommsPublisher) PublishArgumentError(_ context.Context, event *ArgumentErrorEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	if err := p.nc.Publish(p.argumentErrorSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.argumentErrorSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published argument error event %s", commsPublisherLogPrefix, event.ID))
	return nil
}
