// Package commsutil provides COMMS connection helpers, bridge subjects and
// payload codecs.
package commsutil

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"
)

const logPrefix = "commsutil:connect"

// DefaultClientName is used when Connect is given an empty name.
const DefaultClientName = "script-bridge"

// ConnectOptions tunes a COMMS connection. Zero fields take defaults.
type ConnectOptions struct {
	Timeout       time.Duration
	ReconnectWait time.Duration
	MaxReconnects int
}

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = 2 * time.Second
	}
	if o.MaxReconnects == 0 {
		o.MaxReconnects = 60
	}
	return o
}

// Connect creates a COMMS connection to the given URL with default options.
func Connect(url, name string) (*comms.Conn, error) {
	return ConnectWithOptions(url, name, ConnectOptions{})
}

// ConnectWithOptions creates a COMMS connection to the given URL.
func ConnectWithOptions(url, name string, opts ConnectOptions) (*comms.Conn, error) {
	if name == "" {
		name = DefaultClientName
	}
	opts = opts.withDefaults()
	slog.Info(fmt.Sprintf("%s - Connecting to COMMS at %s as %s", logPrefix, url, name))

	nc, err := comms.Connect(url,
		comms.Name(name),
		comms.Timeout(opts.Timeout),
		comms.ReconnectWait(opts.ReconnectWait),
		comms.MaxReconnects(opts.MaxReconnects),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			slog.Warn(fmt.Sprintf("%s - COMMS disconnected: %v", logPrefix, err))
		}),
		comms.ReconnectHandler(func(nc *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS reconnected to %s", logPrefix, nc.ConnectedUrl()))
		}),
		comms.ClosedHandler(func(nc *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS connection closed", logPrefix))
		}),
		comms.ErrorHandler(asyncErrorHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Connected to COMMS at %s", logPrefix, nc.ConnectedUrl()))
	return nc, nil
}

// asyncErrorHandler logs errors NATS reports outside a call. A slow consumer
// on a bridge subscription means payloads were discarded before delivery.
func asyncErrorHandler(_ *comms.Conn, sub *comms.Subscription, err error) {
	subject := ""
	if sub != nil {
		subject = sub.Subject
	}
	if errors.Is(err, comms.ErrSlowConsumer) {
		slog.Error(fmt.Sprintf("%s - slow consumer on %s, bridge payloads discarded", logPrefix, subject))
		return
	}
	slog.Error(fmt.Sprintf("%s - async COMMS error on %q: %v", logPrefix, subject, err))
}
