// Package evcan connects to a SocketCAN interface and delivers raw frames.
//
// Two drivers are available: "brutella" (github.com/brutella/can) and
// "socketcan" (go.einride.tech/can). Both deliver frames with the payload
// trimmed to the frame length and stop receiving when the context passed to
// Start is cancelled.
package evcan

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

const (
	DriverBrutella  = "brutella"
	DriverSocketCAN = "socketcan"

	maxDataLength = 8
)

type Frame struct {
	ID   uint32
	Data []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("%03X#%X", f.ID, f.Data)
}

type Handler func(Frame)

type Bus interface {
	// Start blocks delivering received frames to h until ctx is done or the
	// transport fails.
	Start(ctx context.Context, h Handler) error
	Send(Frame) error
	Close() error
}

var (
	_ Bus = (*Connection)(nil)
	_ Bus = (*SocketConn)(nil)
)

var ErrNotConnected = errors.New("can bus not connected")

// Open connects to iface with the named driver. An empty driver selects
// brutella.
func Open(ctx context.Context, driver, iface string) (Bus, error) {
	switch driver {
	case "", DriverBrutella:
		c, err := Connect(iface)
		if err != nil {
			return nil, err
		}
		return c, nil
	case DriverSocketCAN:
		s, err := Dial(ctx, iface)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, errors.Errorf("unknown can driver %q", driver)
}

func payload(data []byte, length uint8) []byte {
	n := int(length)
	if n > maxDataLength {
		n = maxDataLength
	}
	out := make([]byte, n)
	copy(out, data[:n])
	return out
}
