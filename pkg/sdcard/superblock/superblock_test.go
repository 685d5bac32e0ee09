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

package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
)

func makeSector(version byte, length uint32, flights ...Flight) []byte {
	s := make([]byte, base.SectorSize)
	copy(s, Magic[:])
	copy(s[0x1f8:], Magic[:])
	s[0x09] = version
	binary.LittleEndian.PutUint32(s[0x0c:], length)
	for ix, f := range flights {
		o := 0x60 + 12*ix
		binary.LittleEndian.PutUint32(s[o:], f.FirstBlock)
		binary.LittleEndian.PutUint32(s[o+4:], f.NumBlocks)
		binary.LittleEndian.PutUint32(s[o+8:], f.Timestamp)
	}
	return s
}

func TestDecode(t *testing.T) {
	s := makeSector(0x03, 123456,
		Flight{FirstBlock: 1, NumBlocks: 100, Timestamp: 1668434478},
		Flight{FirstBlock: 101, NumBlocks: 50, Timestamp: 1668438000})

	sb, err := Decode(s)
	require.NoError(t, err)
	require.Equal(t, uint8(3), sb.Version)
	require.True(t, sb.Continued())
	require.Equal(t, uint32(123456), sb.PartitionLength)
	require.Equal(t, []int{0, 1}, sb.Used())
	require.Equal(t, uint32(151), sb.LastBlock())
	require.Equal(t, Flight{FirstBlock: 101, NumBlocks: 50, Timestamp: 1668438000},
		sb.Flights[1])
	require.False(t, sb.Flights[2].IsUsed())
	require.Equal(t,
		time.Date(2022, 11, 14, 14, 1, 18, 0, time.UTC), sb.Flights[0].StartTime())
	require.Equal(t, int64(50*512), sb.Flights[1].Size())
}

func TestDecodeInvalid(t *testing.T) {
	good := makeSector(0, 10)

	_, err := Decode(good[:511])
	require.True(t, errors.Is(err, ErrInvalidSuperblock))

	for _, ix := range []int{0, 7, 0x1f8, 0x1ff} {
		bad := append([]byte{}, good...)
		bad[ix] ^= 0xff
		_, err = Decode(bad)
		require.True(t, errors.Is(err, ErrInvalidSuperblock), "corrupted byte %d", ix)
	}
}

func TestRoundTrip(t *testing.T) {
	s := makeSector(0x01, 7777,
		Flight{FirstBlock: 1, NumBlocks: 2, Timestamp: 3},
		Flight{FirstBlock: 3, NumBlocks: 4, Timestamp: 5})
	// reserved bytes survive
	s[0x08] = 0xaa
	s[0x20] = 0xbb
	s[0x1f0] = 0xcc

	sb, err := Decode(s)
	require.NoError(t, err)

	enc, err := sb.Encode()
	require.NoError(t, err)
	require.Equal(t, s, enc)

	again, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, sb, again)
}

func TestRenumber(t *testing.T) {
	a := Flight{FirstBlock: 10, NumBlocks: 5, Timestamp: 1000}
	b := Flight{FirstBlock: 20, NumBlocks: 3, Timestamp: 2000}
	c := Flight{FirstBlock: 30, NumBlocks: 7, Timestamp: 3000}

	sb, err := Decode(makeSector(0, 99, a, b, c))
	require.NoError(t, err)

	sel, err := sb.Select([]int{0, 1})
	require.NoError(t, err)

	out, err := sb.Renumber(sel)
	require.NoError(t, err)
	require.Equal(t, Flight{FirstBlock: 1, NumBlocks: 5, Timestamp: 1000}, out.Flights[0])
	require.Equal(t, Flight{FirstBlock: 6, NumBlocks: 3, Timestamp: 2000}, out.Flights[1])
	for ix := 2; ix < FlightCount; ix++ {
		require.Equal(t, Flight{}, out.Flights[ix])
	}
	require.Equal(t, uint32(9), out.LastBlock())
	require.Equal(t, sb.PartitionLength, out.PartitionLength)

	// source untouched
	require.Equal(t, c, sb.Flights[2])

	// caller order is kept
	sel, err = sb.Select([]int{2, 0})
	require.NoError(t, err)
	out, err = sb.Renumber(sel)
	require.NoError(t, err)
	require.Equal(t, Flight{FirstBlock: 1, NumBlocks: 7, Timestamp: 3000}, out.Flights[0])
	require.Equal(t, Flight{FirstBlock: 8, NumBlocks: 5, Timestamp: 1000}, out.Flights[1])

	// encodes cleanly
	enc, err := out.Encode()
	require.NoError(t, err)
	back, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, out.Flights, back.Flights)
}

func TestSelect(t *testing.T) {
	sb, err := Decode(makeSector(0, 99, Flight{FirstBlock: 1, NumBlocks: 1}))
	require.NoError(t, err)

	_, err = sb.Select([]int{1})
	require.Error(t, err)
	_, err = sb.Select([]int{-1})
	require.Error(t, err)
	_, err = sb.Select([]int{FlightCount})
	require.Error(t, err)
}

func TestRead(t *testing.T) {
	img := make([]byte, 4*base.SectorSize)
	copy(img[2*base.SectorSize:], makeSector(0, 42))

	sb, err := Read(bytes.NewReader(img), 2)
	require.NoError(t, err)
	require.Equal(t, uint32(42), sb.PartitionLength)

	_, err = Read(bytes.NewReader(img), 1)
	require.True(t, errors.Is(err, ErrInvalidSuperblock))
}

func TestRecorded(t *testing.T) {
	sb, err := Decode(makeSector(0, 99,
		Flight{FirstBlock: 1, NumBlocks: 1},
		Flight{FirstBlock: 2, NumBlocks: 1},
		Flight{},
		Flight{FirstBlock: 9, NumBlocks: 1}))
	require.NoError(t, err)

	require.Equal(t, []int{0, 1}, sb.Recorded())
	require.Equal(t, []int{0, 1, 3}, sb.Used())
}

func TestParseSlots(t *testing.T) {
	slots, err := ParseSlots("2, 0,,31")
	require.NoError(t, err)
	require.Equal(t, []int{2, 0, 31}, slots)

	slots, err = ParseSlots("")
	require.NoError(t, err)
	require.Empty(t, slots)

	for _, bad := range []string{"x", "-1", "32", "1;2"} {
		_, err = ParseSlots(bad)
		require.Error(t, err, bad)
	}
}
