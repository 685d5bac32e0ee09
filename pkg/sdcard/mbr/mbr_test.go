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

package mbr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
)

func makeMBR(entries ...[16]byte) []byte {
	s := make([]byte, base.SectorSize)
	for ix, e := range entries {
		copy(s[446+16*ix:], e[:])
	}
	s[510] = 0x55
	s[511] = 0xaa
	return s
}

func makeEntry(status, typ byte, first, count uint32) [16]byte {
	var e [16]byte
	e[0] = status
	e[1], e[2], e[3] = 0x01, 0xc2, 0x03 // head 1, sector 2, cylinder 0x303
	e[4] = typ
	binary.LittleEndian.PutUint32(e[8:], first)
	binary.LittleEndian.PutUint32(e[12:], count)
	return e
}

func TestDecode(t *testing.T) {
	m, err := Decode(makeMBR(
		makeEntry(0x00, 0x0c, 63, 1000),
		makeEntry(0x80, PartitionType, 2048, 4096),
		makeEntry(0x01, PartitionType, 9999, 1), // invalid status
		makeEntry(0x00, 0x00, 1, 1)))            // unused
	require.NoError(t, err)
	require.Len(t, m.Partitions, 2)

	p := m.Partitions[1]
	require.True(t, p.Bootable)
	require.Equal(t, byte(PartitionType), p.Type)
	require.Equal(t, uint32(2048), p.FirstSector)
	require.Equal(t, uint32(4096), p.SectorCount)
	require.Equal(t, CHS{Cylinder: 0x303, Head: 1, Sector: 2}, p.FirstCHS)

	f, err := m.FindPartition(PartitionType)
	require.NoError(t, err)
	require.Equal(t, uint32(2048), f.FirstSector)

	_, err = m.FindPartition(0x83)
	require.True(t, errors.Is(err, ErrNoPartition))
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode(make([]byte, 100))
	require.True(t, errors.Is(err, ErrInvalidMBR))

	_, err = Decode(make([]byte, base.SectorSize))
	require.True(t, errors.Is(err, ErrInvalidMBR))
}

func TestLocate(t *testing.T) {
	// no MBR at all
	off, err := Locate(bytes.NewReader(make([]byte, base.SectorSize)), PartitionType)
	require.NoError(t, err)
	require.Equal(t, uint32(0), off)

	// MBR with partition
	img := makeMBR(makeEntry(0x00, PartitionType, 2048, 10))
	off, err = Locate(bytes.NewReader(img), PartitionType)
	require.NoError(t, err)
	require.Equal(t, uint32(2048), off)

	// MBR without matching partition
	img = makeMBR(makeEntry(0x00, 0x0b, 2048, 10))
	_, err = Locate(bytes.NewReader(img), PartitionType)
	require.True(t, errors.Is(err, ErrNoPartition))
}
