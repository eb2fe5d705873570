package evdash

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Field uint8

const (
	FieldSpeed Field = iota
	FieldRPM
	FieldSoC
	FieldGear
	FieldMode
	FieldIndicators
	FieldBatteryTemp
	FieldMotorTemp
)

func (f Field) String() string {
	switch f {
	case FieldSpeed:
		return "speed"
	case FieldRPM:
		return "rpm"
	case FieldSoC:
		return "soc"
	case FieldGear:
		return "gear"
	case FieldMode:
		return "mode"
	case FieldIndicators:
		return "indicators"
	case FieldBatteryTemp:
		return "batteryTemp"
	case FieldMotorTemp:
		return "motorTemp"
	}
	return "unknown"
}

// Frame is a single CAN message as handed over by the transport.
type Frame struct {
	ID   uint32
	Data []byte
}

const (
	IDSpeed       uint32 = 0x100
	IDSoC         uint32 = 0x200
	IDMode        uint32 = 0x300
	IDGear        uint32 = 0x310
	IDRPM         uint32 = 0x181
	IDIndicators  uint32 = 0x184
	IDBatteryTemp uint32 = 0x185
	IDMotorTemp   uint32 = 0x186

	IDSimpleSpeed uint32 = 0x180
	IDSimpleSoC   uint32 = 0x182
	IDSimpleGear  uint32 = 0x183
)

type signal struct {
	field Field
	// size is the number of big-endian payload bytes the signal needs
	size int
	// scale divides the raw value, 1 for plain units
	scale float64
}

// Profile maps bus identifiers to signals. Profiles are fixed tables; there is
// no way to configure individual identifiers.
type Profile map[uint32]signal

var StandardProfile = Profile{
	IDSpeed:       {FieldSpeed, 2, 100},
	IDSoC:         {FieldSoC, 1, 1},
	IDMode:        {FieldMode, 1, 1},
	IDGear:        {FieldGear, 1, 1},
	IDRPM:         {FieldRPM, 2, 1},
	IDIndicators:  {FieldIndicators, 1, 1},
	IDBatteryTemp: {FieldBatteryTemp, 1, 1},
	IDMotorTemp:   {FieldMotorTemp, 1, 1},
}

// SimpleProfile sends speed as whole km/h in one byte and has no drive mode.
var SimpleProfile = Profile{
	IDSimpleSpeed: {FieldSpeed, 1, 1},
	IDRPM:         {FieldRPM, 2, 1},
	IDSimpleSoC:   {FieldSoC, 1, 1},
	IDSimpleGear:  {FieldGear, 1, 1},
	IDIndicators:  {FieldIndicators, 1, 1},
	IDBatteryTemp: {FieldBatteryTemp, 1, 1},
	IDMotorTemp:   {FieldMotorTemp, 1, 1},
}

func ProfileByName(name string) (Profile, error) {
	switch name {
	case "", "standard":
		return StandardProfile, nil
	case "simple":
		return SimpleProfile, nil
	}
	return nil, errors.Errorf("unknown CAN profile %q", name)
}

// Update is one decoded field value. Value carries numeric fields, the other
// members carry the discrete ones.
type Update struct {
	Field      Field
	Value      float64
	Gear       Gear
	Mode       Mode
	Indicators Indicators
}

// Decode turns a frame into a field update. Unknown identifiers and payloads
// shorter than the signal are reported as no update.
func (p Profile) Decode(f Frame) (Update, bool) {
	sig, ok := p[f.ID]
	if !ok {
		return Update{}, false
	}
	if len(f.Data) < sig.size {
		log.WithField("canID", f.ID).
			WithField("length", len(f.Data)).
			Debug("frame too short for signal")
		return Update{}, false
	}

	u := Update{Field: sig.field}
	switch sig.field {
	case FieldGear:
		u.Gear = gearFromCode(f.Data[0])
		if u.Gear == GearUnknown {
			log.WithField("code", f.Data[0]).Debug("unknown gear code")
		}
	case FieldMode:
		u.Mode = modeFromCode(f.Data[0])
		if u.Mode == ModeUnknown {
			log.WithField("code", f.Data[0]).Debug("unknown mode code")
		}
	case FieldIndicators:
		u.Indicators = Indicators(f.Data[0]) & indicatorMask
	default:
		u.Value = float64(bigEndian(f.Data[:sig.size])) / sig.scale
	}
	return u, true
}

// Encode is the inverse of Decode. It reports false when the profile has no
// identifier for the field.
func (p Profile) Encode(u Update) (Frame, bool) {
	for id, sig := range p {
		if sig.field != u.Field {
			continue
		}
		data := make([]byte, sig.size)
		switch sig.field {
		case FieldGear:
			data[0] = uint8(u.Gear)
		case FieldMode:
			data[0] = uint8(u.Mode)
		case FieldIndicators:
			data[0] = uint8(u.Indicators & indicatorMask)
		default:
			maxRaw := float64(uint64(1)<<(8*sig.size) - 1)
			putBigEndian(data, uint64(clampFloat(math.Round(u.Value*sig.scale), 0, maxRaw)))
		}
		return Frame{ID: id, Data: data}, true
	}
	return Frame{}, false
}

func (u Update) Apply(s Sink) {
	switch u.Field {
	case FieldSpeed:
		s.SetSpeed(u.Value)
	case FieldRPM:
		s.SetRPM(int(u.Value))
	case FieldSoC:
		s.SetSoC(u.Value)
	case FieldGear:
		s.SetGear(u.Gear)
	case FieldMode:
		s.SetMode(u.Mode)
	case FieldIndicators:
		s.SetIndicators(u.Indicators)
	case FieldBatteryTemp:
		s.SetBatteryTemp(int(u.Value))
	case FieldMotorTemp:
		s.SetMotorTemp(int(u.Value))
	}
}

// DecodeInto decodes the frame and applies it, reporting whether a field was
// written.
func (p Profile) DecodeInto(f Frame, s Sink) bool {
	u, ok := p.Decode(f)
	if !ok {
		return false
	}
	u.Apply(s)
	return true
}

func bigEndian(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(b))
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func putBigEndian(b []byte, v uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = uint8(v)
		v >>= 8
	}
}
