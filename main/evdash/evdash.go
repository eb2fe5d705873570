package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jd3nn1s/evdash"
	"github.com/jd3nn1s/evdash/config"
	"github.com/jd3nn1s/evdash/forwarder"
	log "github.com/sirupsen/logrus"
)

var configFile = flag.String("config", "evdash.toml", "configuration file, relative to the binary")
var demo = flag.Bool("demo", false, "generate simulated telemetry instead of reading the CAN bus")
var printTelemetry = flag.Bool("print-telemetry", false, "print display state to stdout")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.WithError(err).Warn("using default configuration")
		cfg = config.Default()
	}
	logFile, err := config.SetupLogging(cfg.Log)
	if err != nil {
		log.Fatal("unable to set up logging: ", err)
	}
	defer logFile.Close()

	profile, err := evdash.ProfileByName(cfg.CAN.Profile)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dash := evdash.NewDashboard(evdash.Options{
		CANDriver:         cfg.CAN.Driver,
		CANInterface:      cfg.CAN.Interface,
		Profile:           profile,
		SimulatorInterval: cfg.Simulator.Interval.Duration,
		Loop: evdash.LoopConfig{
			FrameRate:     cfg.Render.FrameRate,
			SmoothingRate: cfg.Render.SmoothingRate,
			StaleAfter:    cfg.Render.StaleAfter.Duration,
		},
	})
	dash.SetSimulated(*demo || cfg.Simulator.Enabled)

	if cfg.Forwarder.UDP.Enabled {
		udp, err := forwarder.NewUDPForwarder(cfg.Forwarder.UDP)
		if err != nil {
			log.Fatal("unable to load UDP forwarder: ", err)
		}
		defer udp.Close()
		go udp.Start(ctx)
		dash.AddRenderer(udp)
	}
	if cfg.Forwarder.Kafka.Enabled {
		kafka, err := forwarder.NewKafkaForwarder(cfg.Forwarder.Kafka)
		if err != nil {
			log.Fatal("unable to load kafka forwarder: ", err)
		}
		defer kafka.Close()
		dash.AddRenderer(kafka)
	}
	if *printTelemetry {
		dash.AddRenderer(&printer{every: time.Second})
	}

	toggle := make(chan os.Signal, 1)
	signal.Notify(toggle, syscall.SIGUSR1)
	go func() {
		for {
			select {
			case <-toggle:
				log.WithField("source", dash.ToggleSimulated()).Info("switched telemetry source")
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := dash.Run(ctx); err != nil {
		log.WithError(err).Error("render loop failed")
	}
	log.Info("shut down")
}

type printer struct {
	every time.Duration
	last  time.Time
}

func (p *printer) Render(ds evdash.DisplayState, at time.Time) error {
	if at.Sub(p.last) < p.every {
		return nil
	}
	p.last = at
	_, err := fmt.Printf("%s %+v\n", at.Format(time.RFC3339), ds)
	return err
}
