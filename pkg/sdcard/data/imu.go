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
)

/*
	Batched sensor blocks carry a small configuration header followed by a
	run of equally sized samples. The number of samples is implied by the
	payload length. Samples are taken at a fixed rate given by the header,
	the block's mission time being the time of the first sample.
*/

// MPU9250 sample layout
const (
	mpu9250HeaderSize = 8
	mpu9250SampleSize = 22
)

//
var (
	mpu9250AccelFSR = [4]float64{2, 4, 8, 16}
	mpu9250GyroFSR  = [4]float64{250, 500, 1000, 2000}
)

// MPU9250 magnetometer sensitivity in micro Tesla per LSB
const (
	mpu9250Mag14Bit = 0.6
	mpu9250Mag16Bit = 0.15
)

// MPU9250IMU is a batch of accelerometer, gyroscope and magnetometer samples.
type MPU9250IMU struct {
	Ticks     uint32
	AGRateDiv uint8
	FSR       uint8
	Bandwidth uint8
	samples   []byte
}

// MPU9250Sample is one reading of the MPU9250 in physical units.
type MPU9250Sample struct {
	// milliseconds since mission start
	Time float64
	// g
	AccelX, AccelY, AccelZ float64
	// degree Celsius
	Temperature float64
	// degree per second
	GyroX, GyroY, GyroZ float64
	// micro Tesla
	MagX, MagY, MagZ float64

	MagOverflow bool
}

//
func (m *MPU9250IMU) Subtype() Subtype   { return SubtypeMPU9250IMU }
func (m *MPU9250IMU) MissionTime() uint32 { return m.Ticks }

// Rate returns the accelerometer and gyroscope sample rate in Hz.
func (m *MPU9250IMU) Rate() float64 {
	return 1000 / (1 + float64(m.AGRateDiv))
}

// AccelRange returns the accelerometer full scale range in g.
func (m *MPU9250IMU) AccelRange() float64 {
	return mpu9250AccelFSR[m.FSR&0x3]
}

// GyroRange returns the gyroscope full scale range in degree per second.
func (m *MPU9250IMU) GyroRange() float64 {
	return mpu9250GyroFSR[(m.FSR>>2)&0x3]
}

// MagRate returns the magnetometer sample rate in Hz.
func (m *MPU9250IMU) MagRate() float64 {
	if m.FSR&0x10 != 0 {
		return 100
	}
	return 8
}

//
func (m *MPU9250IMU) Len() int {
	return len(m.samples) / mpu9250SampleSize
}

// Sample decodes sample ix of this batch. Accelerometer, temperature and
// gyroscope readings are big endian, the magnetometer is little endian.
func (m *MPU9250IMU) Sample(ix int) MPU9250Sample {

	s := m.samples[ix*mpu9250SampleSize : (ix+1)*mpu9250SampleSize]
	be := func(o int) int { return int(int16(binary.BigEndian.Uint16(s[o:]))) }
	le := func(o int) int { return int(int16(binary.LittleEndian.Uint16(s[o:]))) }

	aRange := m.AccelRange()
	gRange := m.GyroRange()

	status := s[20]
	magScale := mpu9250Mag14Bit
	if status&0x10 != 0 {
		magScale = mpu9250Mag16Bit
	}

	return MPU9250Sample{
		Time:        sampleTime(m.Ticks, ix, m.Rate()),
		AccelX:      scale(be(0), aRange, 16),
		AccelY:      scale(be(2), aRange, 16),
		AccelZ:      scale(be(4), aRange, 16),
		Temperature: float64(be(6))/333.87 + 21,
		GyroX:       scale(be(8), gRange, 16),
		GyroY:       scale(be(10), gRange, 16),
		GyroZ:       scale(be(12), gRange, 16),
		MagX:        float64(le(14)) * magScale,
		MagY:        float64(le(16)) * magScale,
		MagZ:        float64(le(18)) * magScale,
		MagOverflow: status&0x08 != 0,
	}
}

// Each calls fn for every sample in this batch, in order.
func (m *MPU9250IMU) Each(fn func(ix int, s MPU9250Sample)) {
	for ix := 0; ix < m.Len(); ix++ {
		fn(ix, m.Sample(ix))
	}
}

//
func decodeMPU9250(payload []byte) (Block, error) {

	if _, err := sampleCount(payload, mpu9250HeaderSize,
		mpu9250SampleSize); err != nil {
		return nil, err
	}

	return &MPU9250IMU{
		Ticks:     binary.LittleEndian.Uint32(payload),
		AGRateDiv: payload[4],
		FSR:       payload[5],
		Bandwidth: payload[6],
		samples:   payload[mpu9250HeaderSize:],
	}, nil
}

// KX134 sample layout
const (
	kx134HeaderSize   = 8
	kx134Sample16Size = 6
	kx134Sample8Size  = 3
)

// output data rates in Hz, indexed by the ODR setting
var kx134ODR = [16]float64{
	0.781, 1.563, 3.125, 6.25, 12.5, 25, 50, 100,
	200, 400, 800, 1600, 3200, 6400, 12800, 25600,
}

//
var kx134Range = [4]float64{8, 16, 32, 64}

// KX134Accel is a batch of high-g accelerometer samples.
type KX134Accel struct {
	Ticks    uint32
	Settings uint16
	samples  []byte
}

// KX134Sample is one reading of the KX134 in g.
type KX134Sample struct {
	// milliseconds since mission start
	Time    float64
	X, Y, Z float64
}

//
func (k *KX134Accel) Subtype() Subtype   { return SubtypeKX134Accel }
func (k *KX134Accel) MissionTime() uint32 { return k.Ticks }

// Rate returns the output data rate in Hz.
func (k *KX134Accel) Rate() float64 {
	return kx134ODR[k.Settings&0xf]
}

// Range returns the full scale range in g.
func (k *KX134Accel) Range() float64 {
	return kx134Range[(k.Settings>>4)&0x3]
}

// Rolloff tells whether the low pass filter corner is at ODR/2 rather than
// ODR/9.
func (k *KX134Accel) Rolloff() bool {
	return k.Settings&0x40 != 0
}

// Resolution returns the sample resolution in bits.
func (k *KX134Accel) Resolution() int {
	if k.Settings&0x80 != 0 {
		return 16
	}
	return 8
}

//
func (k *KX134Accel) sampleSize() int {
	if k.Resolution() == 16 {
		return kx134Sample16Size
	}
	return kx134Sample8Size
}

//
func (k *KX134Accel) Len() int {
	return len(k.samples) / k.sampleSize()
}

// Sample decodes sample ix of this batch.
func (k *KX134Accel) Sample(ix int) KX134Sample {

	size := k.sampleSize()
	s := k.samples[ix*size : (ix+1)*size]
	r := k.Range()

	ret := KX134Sample{Time: sampleTime(k.Ticks, ix, k.Rate())}

	if size == kx134Sample16Size {
		raw := func(o int) int {
			return int(int16(binary.LittleEndian.Uint16(s[o:])))
		}
		ret.X = scale(raw(0), r, 16)
		ret.Y = scale(raw(2), r, 16)
		ret.Z = scale(raw(4), r, 16)
	} else {
		ret.X = scale(int(int8(s[0])), r, 8)
		ret.Y = scale(int(int8(s[1])), r, 8)
		ret.Z = scale(int(int8(s[2])), r, 8)
	}

	return ret
}

// Each calls fn for every sample in this batch, in order.
func (k *KX134Accel) Each(fn func(ix int, s KX134Sample)) {
	for ix := 0; ix < k.Len(); ix++ {
		fn(ix, k.Sample(ix))
	}
}

//
func decodeKX134(payload []byte) (Block, error) {

	if len(payload) < kx134HeaderSize {
		// let sampleCount produce the error
		_, err := sampleCount(payload, kx134HeaderSize, kx134Sample16Size)
		return nil, err
	}

	ret := &KX134Accel{
		Ticks:    binary.LittleEndian.Uint32(payload),
		Settings: binary.LittleEndian.Uint16(payload[4:]),
		samples:  payload[kx134HeaderSize:],
	}

	if _, err := sampleCount(payload, kx134HeaderSize,
		ret.sampleSize()); err != nil {
		return nil, err
	}

	return ret, nil
}
