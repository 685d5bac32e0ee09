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

// HeaderSize is the size of a record header. The length stored in a header
// includes the header itself.
const HeaderSize = 4

// Class is the coarse category of a record.
type Class uint8

//
const (
	ClassLoggingMetadata Class = 0x0
	ClassTelemetry       Class = 0x1
	ClassDiagnostic      Class = 0x2
)

//
func (c Class) String() string {
	switch c {
	case ClassLoggingMetadata:
		return "logging metadata"
	case ClassTelemetry:
		return "telemetry"
	case ClassDiagnostic:
		return "diagnostic"
	}
	return fmt.Sprintf("class 0x%02x", uint8(c))
}

// record types per class
const (
	TypeSpacer              uint16 = 0x0
	TypeLogMessage          uint16 = 0x0
	TypeOutgoingRadioPacket uint16 = 0x1
	TypeIncomingRadioPacket uint16 = 0x2
)

// Layout describes how the first header word splits into class and type. The
// low ClassBits bits hold the class, the remaining upper bits the type.
type Layout struct {
	ClassBits uint
}

// DefaultLayout is the split used by the flight computer.
var DefaultLayout = Layout{ClassBits: 6}

//
func (l Layout) Validate() error {
	if l.ClassBits < 1 || l.ClassBits > 15 {
		return fmt.Errorf("invalid number of class bits: %d", l.ClassBits)
	}
	return nil
}

// Split splits a first header word into class and type.
func (l Layout) Split(word uint16) (Class, uint16) {
	mask := uint16(1)<<l.ClassBits - 1
	return Class(word & mask), word >> l.ClassBits
}

// Join is the inverse of Split.
func (l Layout) Join(c Class, typ uint16) uint16 {
	mask := uint16(1)<<l.ClassBits - 1
	return uint16(c)&mask | typ<<l.ClassBits
}

// Header is a decoded record header.
type Header struct {
	Class  Class
	Type   uint16
	Length int
}

// PayloadLength is the number of bytes following the header.
func (h Header) PayloadLength() int {
	return h.Length - HeaderSize
}

// DataType returns the data block type of a telemetry record.
func (h Header) DataType() data.Type {
	return data.Type(h.Type & 0xf)
}

// Subtype returns the data block subtype of a telemetry record.
func (h Header) Subtype() data.Subtype {
	return data.Subtype((h.Type >> 4) & 0x3f)
}

//
func (h Header) String() string {
	if h.Class == ClassTelemetry {
		return fmt.Sprintf("%v, data type %d, %v, length %d",
			h.Class, h.DataType(), h.Subtype(), h.Length)
	}
	return fmt.Sprintf("%v, type 0x%03x, length %d", h.Class, h.Type, h.Length)
}

/*
	ParseHeader decodes a 4 byte record header. The second return value is
	false if the header bytes are blank, i.e. all 0x00 or all 0xff, which is
	how unwritten card space reads back. A blank header is not a record start.
*/
func ParseHeader(b []byte, l Layout) (Header, bool) {

	if isBlank(b[:HeaderSize]) {
		return Header{}, false
	}

	c, t := l.Split(binary.LittleEndian.Uint16(b[0:]))

	return Header{
		Class:  c,
		Type:   t,
		Length: int(binary.LittleEndian.Uint16(b[2:])),
	}, true
}

//
func isBlank(b []byte) bool {
	zero, ones := true, true
	for _, v := range b {
		zero = zero && v == 0x00
		ones = ones && v == 0xff
	}
	return zero || ones
}

// Frame builds a complete record with header for the given payload.
func (l Layout) Frame(c Class, typ uint16, payload []byte) []byte {
	ret := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint16(ret[0:], l.Join(c, typ))
	binary.LittleEndian.PutUint16(ret[2:], uint16(len(ret)))
	copy(ret[HeaderSize:], payload)
	return ret
}

// TelemetryType combines a data block type and subtype into the type bits of
// a telemetry record.
func TelemetryType(t data.Type, s data.Subtype) uint16 {
	return uint16(t)&0xf | (uint16(s)&0x3f)<<4
}
