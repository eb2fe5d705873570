package evdash

import (
	"sync"
	"time"
)

// Sink receives single-field telemetry updates. Both the CAN decoder and the
// simulator write through it.
type Sink interface {
	SetSpeed(kmh float64)
	SetRPM(rpm int)
	SetSoC(percent float64)
	SetGear(g Gear)
	SetMode(m Mode)
	SetIndicators(i Indicators)
	SetBatteryTemp(celsius int)
	SetMotorTemp(celsius int)
}

// Store holds the latest known value of every telemetry field. Values are
// clamped before the lock is taken and the lock is held for one assignment
// only, so a snapshot may mix fields written at different times.
type Store struct {
	mu  sync.Mutex
	t   Telemetry
	now func() time.Time
}

var _ Sink = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		t:   DefaultTelemetry(),
		now: time.Now,
	}
}

func (s *Store) Snapshot() Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}

func (s *Store) write(fn func(t *Telemetry)) {
	now := s.now()
	s.mu.Lock()
	fn(&s.t)
	s.t.UpdatedAt = now
	s.mu.Unlock()
}

func (s *Store) SetSpeed(kmh float64) {
	v := clampFloat(kmh, 0, MaxSpeed)
	s.write(func(t *Telemetry) { t.Speed = v })
}

func (s *Store) SetRPM(rpm int) {
	v := clampInt(rpm, 0, MaxRPM)
	s.write(func(t *Telemetry) { t.RPM = v })
}

func (s *Store) SetSoC(percent float64) {
	v := clampFloat(percent, 0, MaxSoC)
	s.write(func(t *Telemetry) { t.SoC = v })
}

func (s *Store) SetGear(g Gear) {
	if g > GearUnknown {
		g = GearUnknown
	}
	s.write(func(t *Telemetry) { t.Gear = g })
}

func (s *Store) SetMode(m Mode) {
	if m > ModeUnknown {
		m = ModeUnknown
	}
	s.write(func(t *Telemetry) { t.Mode = m })
}

func (s *Store) SetIndicators(i Indicators) {
	i &= indicatorMask
	s.write(func(t *Telemetry) { t.Indicators = i })
}

func (s *Store) SetBatteryTemp(celsius int) {
	v := clampInt(celsius, MinTemp, MaxTemp)
	s.write(func(t *Telemetry) { t.BatteryTemp = v })
}

func (s *Store) SetMotorTemp(celsius int) {
	v := clampInt(celsius, MinTemp, MaxTemp)
	s.write(func(t *Telemetry) { t.MotorTemp = v })
}
