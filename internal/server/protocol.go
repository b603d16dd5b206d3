package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/tiltball/internal/dynamo"
)

// Message types.
const (
	MsgSample   = "sample"
	MsgInit     = "init"
	MsgReset    = "reset"
	MsgPosition = "position"
	MsgError    = "error"
)

// Inbound is a client message. Which fields matter depends on Type; a
// sample without t is stamped with the server's receive time.
type Inbound struct {
	Type   string  `json:"type"`
	T      int64   `json:"t,omitempty"`
	GX     float64 `json:"gx,omitempty"`
	GY     float64 `json:"gy,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Size   float64 `json:"size,omitempty"`
}

// Field returns the field described by an init message.
func (m Inbound) Field() dynamo.Field {
	return dynamo.Field{Width: m.Width, Height: m.Height, BallSize: m.Size}
}

type Position struct {
	Type    string  `json:"type"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	T       int64   `json:"t,omitempty"`
	Contact string  `json:"contact,omitempty"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

var errEmpty = errors.New("empty message")

func Decode(b []byte) (Inbound, error) {
	if len(b) == 0 {
		return Inbound{}, errEmpty
	}
	var m Inbound
	if err := json.Unmarshal(b, &m); err != nil {
		return Inbound{}, fmt.Errorf("decode: %w", err)
	}
	switch m.Type {
	case MsgSample:
		if math.IsNaN(m.GX) || math.IsInf(m.GX, 0) || math.IsNaN(m.GY) || math.IsInf(m.GY, 0) {
			return Inbound{}, fmt.Errorf("decode: non-finite gravity")
		}
	case MsgInit, MsgReset:
	default:
		return Inbound{}, fmt.Errorf("decode: unknown message type %q", m.Type)
	}
	return m, nil
}

func encodePosition(u dynamo.Update) ([]byte, error) {
	p := Position{Type: MsgPosition, X: u.Position.X, Y: u.Position.Y, T: u.Time}
	if u.Contact != 0 {
		p.Contact = u.Contact.String()
	}
	return json.Marshal(p)
}

func encodeError(err error) ([]byte, error) {
	return json.Marshal(Error{Type: MsgError, Message: err.Error()})
}
