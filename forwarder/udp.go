package forwarder

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"
	"unsafe"

	"github.com/jd3nn1s/evdash"
	"github.com/jd3nn1s/evdash/config"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var maxDisplaySize = int(unsafe.Sizeof(Header{}) + unsafe.Sizeof(Display{}))

// UDPForwarder sends display states to a remote renderer. Only the latest
// state is kept, older ones are dropped when the sender is behind.
type UDPForwarder struct {
	Config config.UDPConfig

	conn    net.Conn
	fwdChan chan Display
}

var _ evdash.Renderer = (*UDPForwarder)(nil)

func NewUDPForwarder(cfg config.UDPConfig) (*UDPForwarder, error) {
	if cfg.Interval.Duration <= 0 {
		cfg.Interval.Duration = 100 * time.Millisecond
	}
	udp := &UDPForwarder{
		Config:  cfg,
		fwdChan: make(chan Display, 1),
	}
	if err := udp.connect(); err != nil {
		return nil, err
	}
	return udp, nil
}

func (udp *UDPForwarder) Close() error {
	return udp.conn.Close()
}

func (udp *UDPForwarder) Render(ds evdash.DisplayState, at time.Time) error {
	d := NewDisplay(ds, at)
	for {
		select {
		case udp.fwdChan <- d:
			return nil
		default:
		}
		// replace the pending state with the newer one
		select {
		case <-udp.fwdChan:
		default:
		}
	}
}

func (udp *UDPForwarder) Start(ctx context.Context) error {
	limiter := time.NewTicker(udp.Config.Interval.Duration)
	defer limiter.Stop()
	for {
		select {
		case <-limiter.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case d := <-udp.fwdChan:
			if err := udp.forward(&d); err != nil {
				log.Error("unable to forward display to renderer ", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (udp *UDPForwarder) forward(d *Display) error {
	buf := bytes.NewBuffer(make([]byte, 0, maxDisplaySize))
	hdr := Header{
		Type: TypeDisplay,
	}
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return errors.Wrap(err, "unable to write udp packet header")
	}
	if err := binary.Write(buf, binary.LittleEndian, d); err != nil {
		return errors.Wrap(err, "unable to write display udp packet")
	}
	_, err := udp.conn.Write(buf.Bytes())
	return err
}

func (udp *UDPForwarder) connect() error {
	writeBufSize := maxDisplaySize * 2

	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d",
		udp.Config.Server,
		udp.Config.Port))
	if err != nil {
		return errors.Wrap(err, "unable to dial renderer")
	}
	udpConn := conn.(*net.UDPConn)
	if err = udpConn.SetWriteBuffer(writeBufSize); err != nil {
		return errors.Wrapf(err, "unable to set OS write buffer to %v", writeBufSize)
	}

	udp.conn = conn
	return nil
}
