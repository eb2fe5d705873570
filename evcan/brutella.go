package evcan

import (
	"context"

	"github.com/brutella/can"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type CANBus interface {
	SubscribeFunc(can.HandlerFunc)
	ConnectAndPublish() error
	Disconnect() error
	Publish(can.Frame) error
}

// to allow testing
var newBus = func(iface string) (CANBus, error) {
	return can.NewBusForInterfaceWithName(iface)
}

// Connection is a brutella/can bus.
type Connection struct {
	bus     CANBus
	handler Handler
}

func Connect(iface string) (*Connection, error) {
	bus, err := newBus(iface)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open can interface %s", iface)
	}
	return &Connection{
		bus: bus,
	}, nil
}

func (c *Connection) Start(ctx context.Context, h Handler) error {
	if c.bus == nil {
		return ErrNotConnected
	}
	c.handler = h
	c.bus.SubscribeFunc(c.handleFrame)
	log.Info("CAN bus opened and subscribed")

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			log.Infof("stopping can bus: %v", ctx.Err())
			if err := c.bus.Disconnect(); err != nil {
				log.WithField("err", err).Warn("unable to disconnect canbus after context")
			}
		case <-stopped:
		}
	}()

	err := c.bus.ConnectAndPublish()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Connection) Close() error {
	if c.bus == nil {
		return ErrNotConnected
	}
	return c.bus.Disconnect()
}

func (c *Connection) Send(f Frame) error {
	if c.bus == nil {
		return ErrNotConnected
	}
	if len(f.Data) > maxDataLength {
		return errors.Errorf("frame payload too long: %d", len(f.Data))
	}
	frame := can.Frame{
		ID:     f.ID,
		Length: uint8(len(f.Data)),
	}
	copy(frame.Data[:], f.Data)
	log.WithField("frame", f).Debug("sending frame over canbus")
	return c.bus.Publish(frame)
}

func (c *Connection) handleFrame(frame can.Frame) {
	log.WithField("canID", frame.ID).
		WithField("length", frame.Length).
		Debug("received canbus frame")

	if c.handler == nil {
		log.WithField("canID", frame.ID).Debug("no handler registered")
		return
	}
	c.handler(Frame{
		ID:   frame.ID,
		Data: payload(frame.Data[:], frame.Length),
	})
}
