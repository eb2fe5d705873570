package evdash

import (
	"context"
	"sync"
	"time"

	"github.com/jd3nn1s/evdash/evcan"
)

type sensorStub struct {
	startChan chan struct{}
	errChan   chan error
	fnChan    chan func()
}

type canBusStub struct {
	sensorStub
	handler evcan.Handler

	mu     sync.Mutex
	sent   []evcan.Frame
	closed int
}

func createSensorStub() *sensorStub {
	ret := sensorStub{
		startChan: make(chan struct{}),
		errChan:   make(chan error),
		fnChan:    make(chan func()),
	}
	return &ret
}

func (s *sensorStub) start(ctx context.Context) error {
	select {
	case s.startChan <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-s.errChan:
			return err
		case fn := <-s.fnChan:
			fn()
		}
	}
}

func createCANBusStub() *canBusStub {
	return &canBusStub{
		sensorStub: *createSensorStub(),
	}
}

func (c *canBusStub) Start(ctx context.Context, h evcan.Handler) error {
	c.handler = h
	return c.sensorStub.start(ctx)
}

func (c *canBusStub) Send(f evcan.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, f)
	return nil
}

func (c *canBusStub) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// sinkRecorder is a Sink that remembers the calls made on it.
type sinkRecorder struct {
	mu    sync.Mutex
	calls []Update
}

func (s *sinkRecorder) record(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, u)
}

func (s *sinkRecorder) Calls() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Update(nil), s.calls...)
}

func (s *sinkRecorder) SetSpeed(v float64) { s.record(Update{Field: FieldSpeed, Value: v}) }
func (s *sinkRecorder) SetRPM(v int)       { s.record(Update{Field: FieldRPM, Value: float64(v)}) }
func (s *sinkRecorder) SetSoC(v float64)   { s.record(Update{Field: FieldSoC, Value: v}) }
func (s *sinkRecorder) SetGear(g Gear)     { s.record(Update{Field: FieldGear, Gear: g}) }
func (s *sinkRecorder) SetMode(m Mode)     { s.record(Update{Field: FieldMode, Mode: m}) }
func (s *sinkRecorder) SetIndicators(i Indicators) {
	s.record(Update{Field: FieldIndicators, Indicators: i})
}
func (s *sinkRecorder) SetBatteryTemp(v int) {
	s.record(Update{Field: FieldBatteryTemp, Value: float64(v)})
}
func (s *sinkRecorder) SetMotorTemp(v int) {
	s.record(Update{Field: FieldMotorTemp, Value: float64(v)})
}

// renderRecorder collects every display state handed to it.
type renderRecorder struct {
	mu     sync.Mutex
	states []DisplayState
	err    error
}

func (r *renderRecorder) Render(ds DisplayState, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, ds)
	return r.err
}

func (r *renderRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *renderRecorder) Last() DisplayState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return DisplayState{}
	}
	return r.states[len(r.states)-1]
}
