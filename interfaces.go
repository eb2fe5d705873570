package evdash

import (
	"context"

	"github.com/jd3nn1s/evdash/evcan"
)

type CANBus interface {
	Close() error
	Start(context.Context, evcan.Handler) error
	Send(evcan.Frame) error
}

// Producer writes telemetry into the store until its context is cancelled.
type Producer interface {
	Name() string
	Run(ctx context.Context) error
}

type FrameSender interface {
	Send(evcan.Frame) error
}
