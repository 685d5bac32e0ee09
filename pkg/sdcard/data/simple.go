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
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// DebugMessage is a text message emitted by the flight computer.
type DebugMessage struct {
	Ticks   uint32
	Message string
}

//
func (d *DebugMessage) Subtype() Subtype   { return SubtypeDebugMessage }
func (d *DebugMessage) MissionTime() uint32 { return d.Ticks }

//
func decodeDebugMessage(payload []byte) (Block, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: message without mission time",
			ErrMalformedPayload)
	}
	return &DebugMessage{
		Ticks:   binary.LittleEndian.Uint32(payload),
		Message: TrimText(payload[4:]),
	}, nil
}

// TrimText turns NUL padded text into a string.
func TrimText(b []byte) string {
	if ix := bytes.IndexByte(b, 0); ix > -1 {
		b = b[:ix]
	}
	return strings.ToValidUTF8(string(b), "�")
}

// Altitude is a barometric altimeter reading.
type Altitude struct {
	Ticks uint32
	// Pa
	Pressure uint32
	// milli degree Celsius
	RawTemperature int32
	// mm
	RawAltitude int32
}

//
const altitudeSize = 16

//
func (a *Altitude) Subtype() Subtype   { return SubtypeAltitude }
func (a *Altitude) MissionTime() uint32 { return a.Ticks }

// Temperature in degree Celsius
func (a *Altitude) Temperature() float64 {
	return float64(a.RawTemperature) / 1000
}

// Meters returns the altitude in meters.
func (a *Altitude) Meters() float64 {
	return float64(a.RawAltitude) / 1000
}

//
func decodeAltitude(payload []byte) (Block, error) {
	ret := &Altitude{}
	if err := unpackFixed(payload, altitudeSize, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Vector is a three axis reading with a full scale range, as sent in
// acceleration and angular velocity blocks.
type Vector struct {
	Ticks uint32
	// g for acceleration, degree per second for angular velocity
	FSR  uint16
	RawX int16
	RawY int16
	RawZ int16
}

//
const vectorSize = 12

//
func (v *Vector) MissionTime() uint32 { return v.Ticks }

//
func (v *Vector) X() float64 { return scale(int(v.RawX), float64(v.FSR), 16) }
func (v *Vector) Y() float64 { return scale(int(v.RawY), float64(v.FSR), 16) }
func (v *Vector) Z() float64 { return scale(int(v.RawZ), float64(v.FSR), 16) }

//
type Acceleration struct {
	Vector
}

//
func (a *Acceleration) Subtype() Subtype { return SubtypeAcceleration }

//
type AngularVelocity struct {
	Vector
}

//
func (a *AngularVelocity) Subtype() Subtype { return SubtypeAngularVelocity }

//
func decodeAcceleration(payload []byte) (Block, error) {
	ret := &Acceleration{}
	if err := unpackFixed(payload, vectorSize, &ret.Vector); err != nil {
		return nil, err
	}
	return ret, nil
}

//
func decodeAngularVelocity(payload []byte) (Block, error) {
	ret := &AngularVelocity{}
	if err := unpackFixed(payload, vectorSize, &ret.Vector); err != nil {
		return nil, err
	}
	return ret, nil
}
