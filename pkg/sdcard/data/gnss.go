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
	"fmt"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
)

// FixType of a GNSS location
type FixType uint8

//
const (
	FixUnknown FixType = iota
	FixNone
	Fix2D
	Fix3D
)

//
func (f FixType) String() string {
	switch f {
	case FixNone:
		return "none"
	case Fix2D:
		return "2D"
	case Fix3D:
		return "3D"
	}
	return "unknown"
}

// GNSSLocation is a position fix from the GNSS receiver.
type GNSSLocation struct {
	Ticks uint32

	// 1/600000 degree
	RawLatitude  int32
	RawLongitude int32

	// seconds since epoch
	UTCTime uint32
	// mm
	RawAltitude int32
	// 1/100 knots
	RawSpeed int16
	// 1/100 degree
	RawCourse int16

	// 1/100
	RawPDOP       uint16
	RawHDOP       uint16
	RawVDOP       uint16
	SatellitesFix uint8
	Fix           FixType
}

//
const gnssLocationSize = 32

//
func (g *GNSSLocation) Subtype() Subtype   { return SubtypeGNSSLocation }
func (g *GNSSLocation) MissionTime() uint32 { return g.Ticks }

//
func (g *GNSSLocation) Latitude() float64 {
	return base.CoordinateToDegrees(g.RawLatitude)
}

//
func (g *GNSSLocation) Longitude() float64 {
	return base.CoordinateToDegrees(g.RawLongitude)
}

// Altitude in meters
func (g *GNSSLocation) Altitude() float64 { return float64(g.RawAltitude) / 1000 }

// Speed in knots
func (g *GNSSLocation) Speed() float64 { return float64(g.RawSpeed) / 100 }

// Course in degree
func (g *GNSSLocation) Course() float64 { return float64(g.RawCourse) / 100 }

//
func (g *GNSSLocation) PDOP() float64 { return float64(g.RawPDOP) / 100 }
func (g *GNSSLocation) HDOP() float64 { return float64(g.RawHDOP) / 100 }
func (g *GNSSLocation) VDOP() float64 { return float64(g.RawVDOP) / 100 }

//
func decodeGNSSLocation(payload []byte) (Block, error) {
	ret := &GNSSLocation{}
	if err := unpackFixed(payload, gnssLocationSize, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// SatelliteType tells which constellation a satellite belongs to.
type SatelliteType uint8

//
const (
	SatelliteGPS SatelliteType = iota
	SatelliteGLONASS
)

//
func (s SatelliteType) String() string {
	if s == SatelliteGLONASS {
		return "GLONASS"
	}
	return "GPS"
}

// Satellite is one entry of the satellites in view list.
type Satellite struct {
	// degree
	Elevation uint8
	// dB-Hz
	SNR     uint8
	ID      uint8
	Type    SatelliteType
	Azimuth uint16
}

// GNSSMetadata lists the satellites in use and in view.
type GNSSMetadata struct {
	Ticks        uint32
	GPSInUse     uint32
	GLONASSInUse uint32
	Satellites   []Satellite
}

//
const (
	gnssMetadataHeaderSize = 12
	satelliteSize          = 4
)

//
func (g *GNSSMetadata) Subtype() Subtype   { return SubtypeGNSSMetadata }
func (g *GNSSMetadata) MissionTime() uint32 { return g.Ticks }

// InUse tells whether the given satellite is used for the current fix.
func (g *GNSSMetadata) InUse(s Satellite) bool {
	if s.ID >= 32 {
		return false
	}
	mask := g.GPSInUse
	if s.Type == SatelliteGLONASS {
		mask = g.GLONASSInUse
	}
	return mask&(1<<s.ID) != 0
}

//
func decodeGNSSMetadata(payload []byte) (Block, error) {

	if len(payload) < gnssMetadataHeaderSize {
		return nil, fmt.Errorf("%w: metadata header truncated",
			ErrMalformedPayload)
	}

	list := payload[gnssMetadataHeaderSize:]
	if len(list)%satelliteSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes of satellite entries",
			ErrMalformedPayload, len(list))
	}

	ret := &GNSSMetadata{
		Ticks:        binary.LittleEndian.Uint32(payload[0:]),
		GPSInUse:     binary.LittleEndian.Uint32(payload[4:]),
		GLONASSInUse: binary.LittleEndian.Uint32(payload[8:]),
		Satellites:   make([]Satellite, 0, len(list)/satelliteSize),
	}

	for ix := 0; ix < len(list); ix += satelliteSize {
		packed := binary.LittleEndian.Uint16(list[ix+2:])
		ret.Satellites = append(ret.Satellites, Satellite{
			Elevation: list[ix],
			SNR:       list[ix+1],
			ID:        uint8(packed & 0x1f),
			Type:      SatelliteType((packed >> 5) & 0x1),
			Azimuth:   (packed >> 6) & 0x1ff,
		})
	}

	return ret, nil
}
