package evdash

import (
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultSimulatorInterval = 50 * time.Millisecond

	modeDwell = 10 * time.Second
	gearDwell = 15 * time.Second
)

var (
	simModes = []Mode{ModeEco, ModeNormal, ModeSport}
	simGears = []Gear{GearDrive, GearReverse, GearNeutral, GearPark}
)

// SimulatedTelemetry returns the synthetic telemetry for the given time since
// the simulator started. The result only depends on elapsed.
func SimulatedTelemetry(elapsed time.Duration) Telemetry {
	s := elapsed.Seconds()
	speed := (math.Sin(s*0.3)*0.5 + 0.5) * MaxSpeed

	// turn signal blinks at 1.5Hz for five seconds out of every twenty
	var ind Indicators = IndicatorLowBeam
	blinkOn := int(s*3)%2 == 0
	switch int(s/5) % 4 {
	case 1:
		if blinkOn {
			ind |= IndicatorLeft
		}
	case 3:
		if blinkOn {
			ind |= IndicatorRight
		}
	}
	if int(s/20)%2 == 1 {
		ind |= IndicatorHighBeam
	}

	return Telemetry{
		Speed:       speed,
		RPM:         int(speed / MaxSpeed * MaxRPM * 0.95),
		SoC:         (math.Sin(s*0.05)*0.5+0.5)*40 + 40,
		Mode:        simModes[int(elapsed/modeDwell)%len(simModes)],
		Gear:        simGears[int(elapsed/gearDwell)%len(simGears)],
		Indicators:  ind,
		BatteryTemp: 25 + int(math.Round(5*math.Sin(s*0.01))),
		MotorTemp:   40 + int(math.Round(20*(math.Sin(s*0.02)*0.5+0.5))),
	}
}

// Simulator is a producer of synthetic telemetry, used when there is no bus.
type Simulator struct {
	sink     Sink
	interval time.Duration
	now      func() time.Time
}

func NewSimulator(sink Sink, interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = DefaultSimulatorInterval
	}
	return &Simulator{
		sink:     sink,
		interval: interval,
		now:      time.Now,
	}
}

func (sim *Simulator) Name() string {
	return "simulator"
}

func (sim *Simulator) Run(ctx context.Context) error {
	log.WithField("interval", sim.interval).Info("simulator started")
	start := sim.now()
	ticker := time.NewTicker(sim.interval)
	defer ticker.Stop()

	for {
		sim.apply(SimulatedTelemetry(sim.now().Sub(start)))
		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Info("simulator stopped")
			return ctx.Err()
		}
	}
}

func (sim *Simulator) apply(t Telemetry) {
	sim.sink.SetSpeed(t.Speed)
	sim.sink.SetRPM(t.RPM)
	sim.sink.SetSoC(t.SoC)
	sim.sink.SetGear(t.Gear)
	sim.sink.SetMode(t.Mode)
	sim.sink.SetIndicators(t.Indicators)
	sim.sink.SetBatteryTemp(t.BatteryTemp)
	sim.sink.SetMotorTemp(t.MotorTemp)
}
