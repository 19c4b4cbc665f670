package m2skeleton

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/motion.match/internal/motion/geom"
)

// ChannelKind is one degree of freedom of a joint.
type ChannelKind uint8

const (
	XPosition ChannelKind = iota
	YPosition
	ZPosition
	XRotation
	YRotation
	ZRotation
)

var channelNames = [...]string{
	XPosition: "Xposition",
	YPosition: "Yposition",
	ZPosition: "Zposition",
	XRotation: "Xrotation",
	YRotation: "Yrotation",
	ZRotation: "Zrotation",
}

func (k ChannelKind) String() string {
	if int(k) < len(channelNames) {
		return channelNames[k]
	}
	return fmt.Sprintf("ChannelKind(%d)", k)
}

// Valid reports whether k is one of the six known channel kinds.
func (k ChannelKind) Valid() bool { return k <= ZRotation }

// IsRotation reports whether k is a rotation channel.
func (k ChannelKind) IsRotation() bool { return k >= XRotation && k <= ZRotation }

// Axis returns the unit axis the channel acts along or about.
func (k ChannelKind) Axis() r3.Vec {
	switch k {
	case XPosition, XRotation:
		return geom.UnitX
	case YPosition, YRotation:
		return geom.UnitY
	default:
		return geom.UnitZ
	}
}

// ParseChannelKind accepts the conventional mocap channel names
// ("Xposition", "Zrotation", ...), case-insensitively.
func ParseChannelKind(s string) (ChannelKind, error) {
	for i, name := range channelNames {
		if strings.EqualFold(s, name) {
			return ChannelKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k ChannelKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid channel kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ChannelKind) UnmarshalText(text []byte) error {
	parsed, err := ParseChannelKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Channel maps one joint degree of freedom to a slot in the pose vector.
type Channel struct {
	Kind  ChannelKind `json:"kind"`
	Index int         `json:"index"`
}
