package evdash

import (
	"sync"

	"github.com/jd3nn1s/evdash/evcan"
	log "github.com/sirupsen/logrus"
)

// BusSink encodes every changed field into a frame and sends it. Running the
// simulator against it puts synthetic telemetry on a real or virtual bus.
type BusSink struct {
	profile Profile
	sender  FrameSender

	mu   sync.Mutex
	last map[uint32]string
}

var _ Sink = (*BusSink)(nil)

func NewBusSink(profile Profile, sender FrameSender) *BusSink {
	if profile == nil {
		profile = StandardProfile
	}
	return &BusSink{
		profile: profile,
		sender:  sender,
		last:    map[uint32]string{},
	}
}

func (b *BusSink) forward(u Update) {
	f, ok := b.profile.Encode(u)
	if !ok {
		return
	}

	b.mu.Lock()
	if prev, seen := b.last[f.ID]; seen && prev == string(f.Data) {
		b.mu.Unlock()
		return
	}
	b.last[f.ID] = string(f.Data)
	b.mu.Unlock()

	if err := b.sender.Send(evcan.Frame{ID: f.ID, Data: f.Data}); err != nil {
		log.WithField("field", u.Field).WithError(err).Warn("unable to send frame")
		// send again on the next update
		b.mu.Lock()
		delete(b.last, f.ID)
		b.mu.Unlock()
	}
}

func (b *BusSink) SetSpeed(kmh float64) {
	b.forward(Update{Field: FieldSpeed, Value: kmh})
}

func (b *BusSink) SetRPM(rpm int) {
	b.forward(Update{Field: FieldRPM, Value: float64(rpm)})
}

func (b *BusSink) SetSoC(percent float64) {
	b.forward(Update{Field: FieldSoC, Value: percent})
}

func (b *BusSink) SetGear(g Gear) {
	b.forward(Update{Field: FieldGear, Gear: g})
}

func (b *BusSink) SetMode(m Mode) {
	b.forward(Update{Field: FieldMode, Mode: m})
}

func (b *BusSink) SetIndicators(i Indicators) {
	b.forward(Update{Field: FieldIndicators, Indicators: i})
}

func (b *BusSink) SetBatteryTemp(celsius int) {
	b.forward(Update{Field: FieldBatteryTemp, Value: float64(celsius)})
}

func (b *BusSink) SetMotorTemp(celsius int) {
	b.forward(Update{Field: FieldMotorTemp, Value: float64(celsius)})
}
