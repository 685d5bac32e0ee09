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

package data

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-restruct/restruct"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
)

//
var (
	ErrUnknownSubtype   = errors.New("data: unknown data block subtype")
	ErrMalformedPayload = errors.New("data: malformed payload")
	ErrMalformedBatch   = errors.New("data: malformed sample batch")
)

// Type is the data block type carried in the low four type bits of a
// telemetry record.
type Type uint8

//
const (
	TypeData Type = 0x0
)

// Subtype selects the payload layout of a telemetry data block.
type Subtype uint8

//
const (
	SubtypeDebugMessage    Subtype = 0x0
	SubtypeStatus          Subtype = 0x1
	SubtypeStartupMessage  Subtype = 0x2
	SubtypeAltitude        Subtype = 0x3
	SubtypeAcceleration    Subtype = 0x4
	SubtypeAngularVelocity Subtype = 0x5
	SubtypeGNSSLocation    Subtype = 0x6
	SubtypeGNSSMetadata    Subtype = 0x7
	SubtypePowerInfo       Subtype = 0x8
	SubtypeTemperature     Subtype = 0x9
	SubtypeMPU9250IMU      Subtype = 0xa
	SubtypeKX134Accel      Subtype = 0xb
)

//
var subtypeNames = map[Subtype]string{
	SubtypeDebugMessage:    "debug message",
	SubtypeStatus:          "status",
	SubtypeStartupMessage:  "startup message",
	SubtypeAltitude:        "altitude",
	SubtypeAcceleration:    "acceleration",
	SubtypeAngularVelocity: "angular velocity",
	SubtypeGNSSLocation:    "GNSS location",
	SubtypeGNSSMetadata:    "GNSS metadata",
	SubtypePowerInfo:       "power info",
	SubtypeTemperature:     "temperature",
	SubtypeMPU9250IMU:      "MPU9250 IMU",
	SubtypeKX134Accel:      "KX134 accelerometer",
}

//
func (s Subtype) String() string {
	if n, ok := subtypeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("subtype 0x%02x", uint8(s))
}

// Block is a decoded telemetry data block.
type Block interface {
	Subtype() Subtype
	// MissionTime returns the block's mission time in ticks
	MissionTime() uint32
}

//
type decoder struct {
	decode func(payload []byte) (Block, error)
	stream base.Stream
}

//
var decoders = map[Subtype]decoder{
	SubtypeDebugMessage:    {decodeDebugMessage, base.StreamLogMessages},
	SubtypeStatus:          {decodeStatus, base.StreamStatus},
	SubtypeAltitude:        {decodeAltitude, base.StreamAltitude},
	SubtypeAcceleration:    {decodeAcceleration, base.StreamAcceleration},
	SubtypeAngularVelocity: {decodeAngularVelocity, base.StreamAngularVelocity},
	SubtypeGNSSLocation:    {decodeGNSSLocation, base.StreamGNSSLocation},
	SubtypeGNSSMetadata:    {decodeGNSSMetadata, base.StreamGNSSMetadata},
	SubtypeMPU9250IMU:      {decodeMPU9250, base.StreamMPU9250IMU},
	SubtypeKX134Accel:      {decodeKX134, base.StreamKX134Accel},
}

// IsKnown tells whether there is a decoder for the subtype.
func IsKnown(s Subtype) bool {
	_, ok := decoders[s]
	return ok
}

// Decode decodes the payload of a telemetry data block of the given subtype.
// It also returns the stream to which the block is routed.
func Decode(s Subtype, payload []byte) (Block, base.Stream, error) {

	d, ok := decoders[s]
	if !ok {
		return nil, base.StreamNone, fmt.Errorf("%w: %v", ErrUnknownSubtype, s)
	}

	b, err := d.decode(payload)
	if err != nil {
		return nil, base.StreamNone, fmt.Errorf("%v block: %w", s, err)
	}

	return b, d.stream, nil
}

// unpackFixed decodes a payload that must exactly match the size of v.
func unpackFixed(payload []byte, size int, v interface{}) error {
	if len(payload) != size {
		return fmt.Errorf("%w: want %d bytes, got %d",
			ErrMalformedPayload, size, len(payload))
	}
	if err := restruct.Unpack(payload, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// sampleCount returns the number of samples in a batch payload with a
// configuration header of size header, and samples of size sample.
func sampleCount(payload []byte, header, sample int) (int, error) {

	if len(payload) < header {
		return 0, fmt.Errorf("%w: payload of %d bytes shorter than header (%d)",
			ErrMalformedBatch, len(payload), header)
	}

	body := len(payload) - header
	if body%sample != 0 {
		return 0, fmt.Errorf(
			"%w: %d sample bytes not a multiple of sample size %d",
			ErrMalformedBatch, body, sample)
	}

	return body / sample, nil
}

// sampleTime returns the time in milliseconds of sample ix in a batch whose
// first sample was taken at mission time ticks, with a rate of hz.
func sampleTime(ticks uint32, ix int, hz float64) float64 {
	t := base.TicksToMillis(ticks)
	if hz > 0 {
		t += float64(ix) * 1000 / hz
	}
	return t
}

// scale maps a signed raw reading onto a full scale range.
func scale(raw int, fullScale float64, resolution int) float64 {
	return float64(raw) * fullScale / float64(int(1)<<(resolution-1))
}
