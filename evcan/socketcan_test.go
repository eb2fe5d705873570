package evcan

import (
	"context"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.einride.tech/can"
)

type receiverStub struct {
	frames []can.Frame
	frame  can.Frame
	err    error
	// fail is returned once the queued frames are used up, nil means time out
	fail error
}

func (r *receiverStub) Receive() bool {
	if len(r.frames) == 0 {
		if r.fail != nil {
			r.err = r.fail
		} else {
			time.Sleep(time.Millisecond)
			r.err = os.ErrDeadlineExceeded
		}
		return false
	}
	r.frame, r.frames = r.frames[0], r.frames[1:]
	return true
}

func (r *receiverStub) Frame() can.Frame {
	return r.frame
}

func (r *receiverStub) Err() error {
	return r.err
}

func pipeSocketConn(t *testing.T, stub *receiverStub) *SocketConn {
	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})
	s := newSocketConn(local)
	s.newReceiver = func(net.Conn) frameReceiver {
		stub.err = nil
		return stub
	}
	return s
}

func TestSocketConnStart(t *testing.T) {
	stub := &receiverStub{
		frames: []can.Frame{
			{ID: 0x100, Length: 2, Data: can.Data{0x30, 0x39}},
			{ID: 0x100, IsRemote: true},
			{ID: 0x200, Length: 1, Data: can.Data{75}},
		},
	}
	s := pipeSocketConn(t, stub)

	received := make(chan Frame, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := sync.WaitGroup{}
	wg.Add(1)
	var startErr error
	go func() {
		startErr = s.Start(ctx, func(f Frame) {
			received <- f
		})
		wg.Done()
	}()

	assert.Equal(t, Frame{ID: 0x100, Data: []byte{0x30, 0x39}}, <-received)
	assert.Equal(t, Frame{ID: 0x200, Data: []byte{75}}, <-received)

	// the receiver keeps timing out until cancelled
	cancel()
	wg.Wait()
	assert.Equal(t, context.Canceled, startErr)
	assert.Len(t, received, 0, "remote frames must not be delivered")
}

func TestSocketConnStartError(t *testing.T) {
	stub := &receiverStub{
		fail: errors.New("network is down"),
	}
	s := pipeSocketConn(t, stub)

	err := s.Start(context.Background(), func(Frame) {})
	assert.EqualError(t, err, "socketcan receive: network is down")
}

func TestSocketConnNotConnected(t *testing.T) {
	s := &SocketConn{}
	assert.Equal(t, ErrNotConnected, s.Start(context.Background(), func(Frame) {}))
	assert.Equal(t, ErrNotConnected, s.Send(Frame{}))
	assert.Equal(t, ErrNotConnected, s.Close())
}

func TestDialError(t *testing.T) {
	origDial := dialSocketCAN
	dialSocketCAN = func(context.Context, string) (net.Conn, error) {
		return nil, errors.New("no such device")
	}
	defer func() {
		dialSocketCAN = origDial
	}()

	b, err := Open(context.Background(), DriverSocketCAN, "vcan0")
	assert.Nil(t, b)
	assert.EqualError(t, err, "socketcan dial vcan0: no such device")
}

func TestIsTimeout(t *testing.T) {
	assert.False(t, isTimeout(nil))
	assert.False(t, isTimeout(errors.New("boom")))
	assert.True(t, isTimeout(os.ErrDeadlineExceeded))
	assert.True(t, isTimeout(errors.Wrap(os.ErrDeadlineExceeded, "read")))
}
