package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/jd3nn1s/evdash"
	"github.com/jd3nn1s/evdash/config"
	"github.com/jd3nn1s/evdash/evcan"
	log "github.com/sirupsen/logrus"
)

var configFile = flag.String("config", "evdash.toml", "configuration file, relative to the binary")
var iface = flag.String("iface", "", "CAN interface to send on, overrides the configuration")

// evemu puts simulated telemetry on a CAN interface, usually vcan0, for
// bench testing the dashboard.
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
	if *iface != "" {
		cfg.CAN.Interface = *iface
	}

	profile, err := evdash.ProfileByName(cfg.CAN.Profile)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus, err := evcan.Open(ctx, cfg.CAN.Driver, cfg.CAN.Interface)
	if err != nil {
		log.Fatal("unable to open can bus: ", err)
	}
	defer bus.Close()

	log.WithField("interface", cfg.CAN.Interface).Info("emulating vehicle")
	sim := evdash.NewSimulator(evdash.NewBusSink(profile, bus), cfg.Simulator.Interval.Duration)
	if err := sim.Run(ctx); err != nil && err != context.Canceled {
		log.WithError(err).Error("simulator failed")
	}
}
