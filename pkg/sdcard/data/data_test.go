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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
)

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func join(parts ...[]byte) []byte {
	var ret []byte
	for _, p := range parts {
		ret = append(ret, p...)
	}
	return ret
}

func TestDebugMessage(t *testing.T) {
	payload := join(le32(2048), []byte("hello"), make([]byte, 3))

	b, stream, err := Decode(SubtypeDebugMessage, payload)
	require.NoError(t, err)
	require.Equal(t, base.StreamLogMessages, stream)

	msg, ok := b.(*DebugMessage)
	require.True(t, ok)
	require.Equal(t, "hello", msg.Message)
	require.Equal(t, uint32(2048), msg.MissionTime())

	_, _, err = Decode(SubtypeDebugMessage, []byte{1, 2})
	require.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestAltitude(t *testing.T) {
	payload := join(le32(1024), le32(101325), le32(uint32(21500)),
		le32(uint32(0xffffffff-999)))

	b, stream, err := Decode(SubtypeAltitude, payload)
	require.NoError(t, err)
	require.Equal(t, base.StreamAltitude, stream)

	alt := b.(*Altitude)
	require.Equal(t, uint32(101325), alt.Pressure)
	require.InDelta(t, 21.5, alt.Temperature(), 1e-9)
	require.InDelta(t, -1.0, alt.Meters(), 1e-9)

	_, _, err = Decode(SubtypeAltitude, payload[:15])
	require.True(t, errors.Is(err, ErrMalformedPayload))
	_, _, err = Decode(SubtypeAltitude, append(payload, 0))
	require.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestAcceleration(t *testing.T) {
	payload := join(le32(0), le16(16), le16(16384), le16(uint16(0x8000)), le16(0))

	b, stream, err := Decode(SubtypeAcceleration, payload)
	require.NoError(t, err)
	require.Equal(t, base.StreamAcceleration, stream)

	acc := b.(*Acceleration)
	require.InDelta(t, 8.0, acc.X(), 1e-9)
	require.InDelta(t, -16.0, acc.Y(), 1e-9)
	require.InDelta(t, 0.0, acc.Z(), 1e-9)

	b, stream, err = Decode(SubtypeAngularVelocity, payload)
	require.NoError(t, err)
	require.Equal(t, base.StreamAngularVelocity, stream)
	require.Equal(t, SubtypeAngularVelocity, b.Subtype())
}

func TestGNSSLocation(t *testing.T) {
	payload := join(le32(10), le32(uint32(27000000)), le32(uint32(0xffffffff-45360000+1)),
		le32(1668434478), le32(120000), le16(1050), le16(9000),
		le16(150), le16(90), le16(120), []byte{7, byte(Fix3D)})
	require.Len(t, payload, 32)

	b, stream, err := Decode(SubtypeGNSSLocation, payload)
	require.NoError(t, err)
	require.Equal(t, base.StreamGNSSLocation, stream)

	loc := b.(*GNSSLocation)
	require.InDelta(t, 45.0, loc.Latitude(), 1e-9)
	require.InDelta(t, -75.6, loc.Longitude(), 1e-9)
	require.InDelta(t, 120.0, loc.Altitude(), 1e-9)
	require.InDelta(t, 10.5, loc.Speed(), 1e-9)
	require.InDelta(t, 1.5, loc.PDOP(), 1e-9)
	require.Equal(t, uint8(7), loc.SatellitesFix)
	require.Equal(t, Fix3D, loc.Fix)
}

func TestGNSSMetadata(t *testing.T) {
	// id 3, GLONASS, azimuth 270
	packed := uint16(3) | 1<<5 | 270<<6
	payload := join(le32(5), le32(0), le32(1<<3),
		[]byte{45, 30}, le16(packed),
		[]byte{10, 20}, le16(uint16(4)|90<<6))

	b, stream, err := Decode(SubtypeGNSSMetadata, payload)
	require.NoError(t, err)
	require.Equal(t, base.StreamGNSSMetadata, stream)

	meta := b.(*GNSSMetadata)
	require.Len(t, meta.Satellites, 2)
	require.Equal(t, Satellite{Elevation: 45, SNR: 30, ID: 3,
		Type: SatelliteGLONASS, Azimuth: 270}, meta.Satellites[0])
	require.True(t, meta.InUse(meta.Satellites[0]))
	require.Equal(t, SatelliteGPS, meta.Satellites[1].Type)
	require.False(t, meta.InUse(meta.Satellites[1]))

	_, _, err = Decode(SubtypeGNSSMetadata, append(payload, 1, 2))
	require.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestStatus(t *testing.T) {
	payload := join(le32(9), []byte{2, 2, 1, 2, 0, 0, 0, 0}, le32(4000), le32(3))

	b, stream, err := Decode(SubtypeStatus, payload)
	require.NoError(t, err)
	require.Equal(t, base.StreamStatus, stream)

	st := b.(*Status)
	require.Equal(t, DeviceRunning, st.KX134)
	require.Equal(t, DeviceInitFailed, st.IMU)
	require.Equal(t, uint32(4000), st.BlocksRecorded)
	require.Equal(t, uint32(3), st.CheckoutsMissed)
}

func TestKX134(t *testing.T) {
	// 16 bit, 32g, 100 Hz
	settings := uint16(7) | 2<<4 | 0x80
	header := join(le32(1024), le16(settings), le16(0))

	var samples []byte
	for ix := 0; ix < 4; ix++ {
		samples = append(samples, le16(uint16(ix*1024))...)
		samples = append(samples, le16(0)...)
		samples = append(samples, le16(uint16(0x10000-16384))...)
	}

	b, stream, err := Decode(SubtypeKX134Accel, join(header, samples))
	require.NoError(t, err)
	require.Equal(t, base.StreamKX134Accel, stream)

	kx := b.(*KX134Accel)
	require.Equal(t, 4, kx.Len())
	require.Equal(t, 16, kx.Resolution())
	require.Equal(t, 100.0, kx.Rate())
	require.Equal(t, 32.0, kx.Range())

	var times []float64
	kx.Each(func(ix int, s KX134Sample) {
		times = append(times, s.Time)
		require.InDelta(t, float64(ix)*1024*32/32768, s.X, 1e-9)
		require.InDelta(t, -16.0, s.Z, 1e-9)
	})
	require.Equal(t, []float64{1000, 1010, 1020, 1030}, times)

	// one trailing byte
	_, _, err = Decode(SubtypeKX134Accel, join(header, samples, []byte{0}))
	require.True(t, errors.Is(err, ErrMalformedBatch))

	// header only
	b, _, err = Decode(SubtypeKX134Accel, header)
	require.NoError(t, err)
	require.Equal(t, 0, b.(*KX134Accel).Len())

	_, _, err = Decode(SubtypeKX134Accel, header[:5])
	require.True(t, errors.Is(err, ErrMalformedBatch))
}

func TestKX134EightBit(t *testing.T) {
	// 8 bit, 8g, 25600 Hz
	header := join(le32(0), le16(15), le16(0))
	samples := []byte{64, 0x80, 0, 1, 2, 3}

	b, _, err := Decode(SubtypeKX134Accel, join(header, samples))
	require.NoError(t, err)

	kx := b.(*KX134Accel)
	require.Equal(t, 2, kx.Len())
	require.Equal(t, 8, kx.Resolution())

	s := kx.Sample(0)
	require.InDelta(t, 4.0, s.X, 1e-9)
	require.InDelta(t, -8.0, s.Y, 1e-9)
	require.InDelta(t, 1000.0/25600, kx.Sample(1).Time, 1e-9)
}

func TestMPU9250(t *testing.T) {
	// div 9 => 100 Hz; accel 4g, gyro 500 dps
	header := []byte{0, 4, 0, 0, 9, 1 | 1<<2, 0, 0}

	sample := make([]byte, mpu9250SampleSize)
	binary.BigEndian.PutUint16(sample[0:], 8192)
	binary.BigEndian.PutUint16(sample[6:], 0)
	binary.BigEndian.PutUint16(sample[8:], 16384)
	binary.LittleEndian.PutUint16(sample[14:], 100)
	sample[20] = 0x10 | 0x08

	payload := join(header, sample, sample, sample)

	b, stream, err := Decode(SubtypeMPU9250IMU, payload)
	require.NoError(t, err)
	require.Equal(t, base.StreamMPU9250IMU, stream)

	imu := b.(*MPU9250IMU)
	require.Equal(t, 3, imu.Len())
	require.Equal(t, 100.0, imu.Rate())
	require.Equal(t, uint32(1024), imu.MissionTime())

	s := imu.Sample(2)
	require.InDelta(t, 1020.0, s.Time, 1e-9)
	require.InDelta(t, 1.0, s.AccelX, 1e-9)
	require.InDelta(t, 21.0, s.Temperature, 1e-9)
	require.InDelta(t, 250.0, s.GyroX, 1e-9)
	require.InDelta(t, 15.0, s.MagX, 1e-9)
	require.True(t, s.MagOverflow)

	_, _, err = Decode(SubtypeMPU9250IMU, payload[:len(payload)-1])
	require.True(t, errors.Is(err, ErrMalformedBatch))
}

func TestUnknownSubtype(t *testing.T) {
	require.False(t, IsKnown(SubtypePowerInfo))
	_, _, err := Decode(SubtypePowerInfo, nil)
	require.True(t, errors.Is(err, ErrUnknownSubtype))
}
