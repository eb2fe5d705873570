package evcan

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// PollTimeout bounds a single blocking read so cancellation is noticed.
var PollTimeout = 500 * time.Millisecond

// to allow testing
var dialSocketCAN = func(ctx context.Context, iface string) (net.Conn, error) {
	return socketcan.DialContext(ctx, "can", iface)
}

type frameReceiver interface {
	Receive() bool
	Frame() can.Frame
	Err() error
}

// SocketConn is an einride socketcan connection.
type SocketConn struct {
	conn net.Conn
	tx   *socketcan.Transmitter

	newReceiver func(net.Conn) frameReceiver
}

func Dial(ctx context.Context, iface string) (*SocketConn, error) {
	conn, err := dialSocketCAN(ctx, iface)
	if err != nil {
		return nil, errors.Wrapf(err, "socketcan dial %s", iface)
	}
	return newSocketConn(conn), nil
}

func newSocketConn(conn net.Conn) *SocketConn {
	return &SocketConn{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
		newReceiver: func(c net.Conn) frameReceiver {
			return socketcan.NewReceiver(c)
		},
	}
}

func (s *SocketConn) Start(ctx context.Context, h Handler) error {
	if s.conn == nil {
		return ErrNotConnected
	}
	log.Info("socketcan receiver started")

	recv := s.newReceiver(s.conn)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.conn.SetReadDeadline(time.Now().Add(PollTimeout)); err != nil {
			return errors.Wrap(err, "unable to set read deadline")
		}
		if recv.Receive() {
			f := recv.Frame()
			if f.IsRemote {
				continue
			}
			h(Frame{
				ID:   f.ID,
				Data: payload(f.Data[:], f.Length),
			})
			continue
		}
		err := recv.Err()
		if isTimeout(err) {
			// a receiver keeps its error, start over with a fresh one
			recv = s.newReceiver(s.conn)
			continue
		}
		if err == nil {
			err = errors.New("socketcan receiver closed")
		}
		return errors.Wrap(err, "socketcan receive")
	}
}

func (s *SocketConn) Send(f Frame) error {
	if s.conn == nil {
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
	ctx, cancel := context.WithTimeout(context.Background(), PollTimeout)
	defer cancel()
	return s.tx.TransmitFrame(ctx, frame)
}

func (s *SocketConn) Close() error {
	if s.conn == nil {
		return ErrNotConnected
	}
	return s.conn.Close()
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
