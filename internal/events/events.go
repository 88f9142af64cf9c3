// Package events publishes committed circulation events to other systems.
package events

import (
	"context"

	"github.com/kozaktomas/library-kiosk/internal/database"
)

// Publisher delivers committed circulation events. Publishing happens after the
// store commit, so a failed publish never undoes a loan change.
type Publisher interface {
	Publish(ctx context.Context, ev database.CirculationEvent) error
	Close() error
}

// Noop discards every event. It is used when AMQP_URL is unset.
type Noop struct{}

func (Noop) Publish(context.Context, database.CirculationEvent) error { return nil }
func (Noop) Close() error                                             { return nil }
