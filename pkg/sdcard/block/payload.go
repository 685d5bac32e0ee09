/*
   SDCtl - flight computer SD card tool
   Copyright (c) 2022, CU InSpace

   This file is part of SDCtl.

   SDCtl is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   SDCtl is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with SDCtl. If not, see <http://www.gnu.org/licenses/>.
*/

package block

import (
	"encoding/binary"
	"fmt"

	"github.com/cuinspace/sdctl/pkg/sdcard/data"
)

// Block is a decoded record. It is one of *Spacer, *LogMessage, *RadioPacket,
// *Telemetry, or *Unknown.
type Block interface {
	Describe() string
	isBlock()
}

// Spacer pads unused space. Only its length is meaningful.
type Spacer struct {
	Length int
}

//
func (s *Spacer) Describe() string {
	return fmt.Sprintf("spacer, length %d", s.Length)
}

// LogMessage is a diagnostic text message.
type LogMessage struct {
	Ticks   uint32
	Message string
}

//
func (l *LogMessage) Describe() string {
	return fmt.Sprintf("log message at %d: %q", l.Ticks, l.Message)
}

//
func (l *LogMessage) MissionTime() uint32 {
	return l.Ticks
}

//
type Direction int

//
const (
	Outgoing Direction = iota
	Incoming
)

//
func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// RadioPacket is a copy of a packet sent or received over the radio link.
type RadioPacket struct {
	Direction Direction
	Packet    []byte
}

//
func (r *RadioPacket) Describe() string {
	return fmt.Sprintf("%v radio packet, %d bytes", r.Direction, len(r.Packet))
}

// Telemetry is a record carrying a data block.
type Telemetry struct {
	Data data.Block
}

//
func (t *Telemetry) Describe() string {
	return fmt.Sprintf("telemetry, %v at %d", t.Data.Subtype(),
		t.Data.MissionTime())
}

// Unknown is a record for which no decoder is registered. It is reported,
// but not decoded.
type Unknown struct {
	Class  Class
	Type   uint16
	Length int
}

//
func (u *Unknown) Describe() string {
	return fmt.Sprintf("unknown record, %v, type 0x%03x, length %d",
		u.Class, u.Type, u.Length)
}

func (*Spacer) isBlock()      {}
func (*LogMessage) isBlock()  {}
func (*RadioPacket) isBlock() {}
func (*Telemetry) isBlock()   {}
func (*Unknown) isBlock()     {}

//
func decodeSpacer(r *Record) (Block, error) {
	return &Spacer{Length: r.Length}, nil
}

//
func decodeLogMessage(r *Record) (Block, error) {
	p := r.Payload()
	if len(p) < 4 {
		return nil, fmt.Errorf("%w: log message without mission time",
			data.ErrMalformedPayload)
	}
	return &LogMessage{
		Ticks:   binary.LittleEndian.Uint32(p),
		Message: data.TrimText(p[4:]),
	}, nil
}

//
func decodeRadioPacket(d Direction) func(r *Record) (Block, error) {
	return func(r *Record) (Block, error) {
		return &RadioPacket{Direction: d, Packet: r.Payload()}, nil
	}
}
