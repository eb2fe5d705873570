package forwarder

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jd3nn1s/evdash"
	"github.com/jd3nn1s/evdash/config"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// to allow testing
var newKafkaWriter = func(cfg config.KafkaConfig) messageWriter {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
	}
}

// DisplayMessage is the JSON body published for every forwarded state.
type DisplayMessage struct {
	Session     string    `json:"session"`
	Time        time.Time `json:"time"`
	Speed       float64   `json:"speed"`
	RPM         float64   `json:"rpm"`
	SoC         float64   `json:"soc"`
	Gear        string    `json:"gear"`
	Mode        string    `json:"mode"`
	Left        bool      `json:"left"`
	Right       bool      `json:"right"`
	LowBeam     bool      `json:"lowBeam"`
	HighBeam    bool      `json:"highBeam"`
	BatteryTemp int       `json:"batteryTemp"`
	MotorTemp   int       `json:"motorTemp"`
	Status      string    `json:"status"`
	Stale       bool      `json:"stale"`
}

// KafkaForwarder publishes display states to a topic, at most one per
// interval. Messages are keyed by a session id that is new for every run.
type KafkaForwarder struct {
	session  string
	interval time.Duration
	writer   messageWriter

	mu   sync.Mutex
	last time.Time
}

var _ evdash.Renderer = (*KafkaForwarder)(nil)

func NewKafkaForwarder(cfg config.KafkaConfig) (*KafkaForwarder, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	k := &KafkaForwarder{
		session:  uuid.NewString(),
		interval: cfg.Interval.Duration,
		writer:   newKafkaWriter(cfg),
	}
	log.WithField("brokers", cfg.Brokers).
		WithField("topic", cfg.Topic).
		WithField("session", k.session).
		Info("initialized kafka forwarder")
	return k, nil
}

func (k *KafkaForwarder) Render(ds evdash.DisplayState, at time.Time) error {
	k.mu.Lock()
	if !k.last.IsZero() && at.Sub(k.last) < k.interval {
		k.mu.Unlock()
		return nil
	}
	k.last = at
	k.mu.Unlock()

	body, err := json.Marshal(k.message(ds, at))
	if err != nil {
		return errors.Wrap(err, "unable to marshal display message")
	}
	// the writer is asynchronous, this only queues the message
	err = k.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(k.session),
		Value: body,
	})
	return errors.Wrap(err, "unable to publish display message")
}

func (k *KafkaForwarder) message(ds evdash.DisplayState, at time.Time) DisplayMessage {
	return DisplayMessage{
		Session:     k.session,
		Time:        at.UTC(),
		Speed:       ds.Speed,
		RPM:         ds.RPM,
		SoC:         ds.SoC,
		Gear:        ds.Gear.String(),
		Mode:        ds.Mode.String(),
		Left:        ds.Indicators.Left(),
		Right:       ds.Indicators.Right(),
		LowBeam:     ds.Indicators.LowBeam(),
		HighBeam:    ds.Indicators.HighBeam(),
		BatteryTemp: ds.BatteryTemp,
		MotorTemp:   ds.MotorTemp,
		Status:      ds.Status,
		Stale:       ds.Stale,
	}
}

func (k *KafkaForwarder) Close() error {
	return k.writer.Close()
}
