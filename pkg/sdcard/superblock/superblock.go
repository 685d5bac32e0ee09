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
	"fmt"
	"io"
	"time"

	"github.com/go-restruct/restruct"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
)

// FlightCount is the number of slots in the flight table.
const FlightCount = 32

// Magic is found in both the first and the last eight bytes of a superblock.
var Magic = [8]byte{'C', 'U', 'I', 'n', 'S', 'p', 'a', 'c'}

// ErrInvalidSuperblock is returned when a sector does not hold a superblock.
var ErrInvalidSuperblock = errors.New("superblock: invalid superblock")

/*
	sector is the on-card layout of a superblock:

		0x000	magic
		0x009	version, bit 0 = continued from previous partition
		0x00c	partition length in sectors
		0x060	32 flight entries of 12 bytes each
		0x1f8	magic

	Bytes not covered by these fields are kept as they are, so that encoding
	a decoded superblock reproduces the original sector.
*/
type sector struct {
	Magic           [8]byte
	Reserved0       [1]byte
	Version         uint8
	Reserved1       [2]byte
	PartitionLength uint32
	Reserved2       [0x50]byte
	Flights         [FlightCount]Flight
	Reserved3       [0x18]byte
	MagicEnd        [8]byte
}

// Flight describes one recording session.
type Flight struct {
	// sector offset relative to partition start
	FirstBlock uint32
	// sector count; 0 means the slot is unused
	NumBlocks uint32
	// seconds since epoch, UTC
	Timestamp uint32
}

//
func (f Flight) IsUsed() bool {
	return f.NumBlocks != 0
}

//
func (f Flight) StartTime() time.Time {
	return time.Unix(int64(f.Timestamp), 0).UTC()
}

// Size returns the number of bytes allocated to this flight.
func (f Flight) Size() int64 {
	return int64(f.NumBlocks) * base.SectorSize
}

// End returns the first sector after this flight, relative to partition start.
func (f Flight) End() uint32 {
	return f.FirstBlock + f.NumBlocks
}

//
func (f Flight) String() string {
	return fmt.Sprintf("start: %d, length: %d, time: %d",
		f.FirstBlock, f.NumBlocks, f.Timestamp)
}

//
type SuperBlock struct {
	Version         uint8
	PartitionLength uint32
	Flights         [FlightCount]Flight
	//
	raw sector
}

// Continued tells whether the first flight of this partition is continued from
// the previous partition.
func (sb *SuperBlock) Continued() bool {
	return sb.Version&1 != 0
}

// Used returns the slot numbers of all used flights, in slot order.
func (sb *SuperBlock) Used() []int {
	var ret []int
	for ix, f := range sb.Flights {
		if f.IsUsed() {
			ret = append(ret, ix)
		}
	}
	return ret
}

// LastBlock returns the end of the highest used flight, relative to partition
// start, or 0 if there are no flights.
func (sb *SuperBlock) LastBlock() uint32 {
	var last uint32
	for _, f := range sb.Flights {
		if f.IsUsed() && f.End() > last {
			last = f.End()
		}
	}
	return last
}

// Decode decodes a superblock sector.
func Decode(data []byte) (*SuperBlock, error) {

	if len(data) != base.SectorSize {
		return nil, fmt.Errorf("%w: sector length %d", ErrInvalidSuperblock,
			len(data))
	}

	if !bytes.Equal(data[:8], Magic[:]) ||
		!bytes.Equal(data[base.SectorSize-8:], Magic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidSuperblock)
	}

	sb := &SuperBlock{}
	if err := restruct.Unpack(data, binary.LittleEndian, &sb.raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSuperblock, err)
	}

	sb.Version = sb.raw.Version
	sb.PartitionLength = sb.raw.PartitionLength
	sb.Flights = sb.raw.Flights

	return sb, nil
}

// Encode encodes this superblock into a sector.
func (sb *SuperBlock) Encode() ([]byte, error) {

	raw := sb.raw
	raw.Magic = Magic
	raw.MagicEnd = Magic
	raw.Version = sb.Version
	raw.PartitionLength = sb.PartitionLength
	raw.Flights = sb.Flights

	data, err := restruct.Pack(binary.LittleEndian, &raw)
	if err != nil {
		return nil, err
	}
	if len(data) != base.SectorSize {
		return nil, fmt.Errorf("superblock encoded to %d bytes", len(data))
	}

	return data, nil
}

// Read reads and decodes the superblock at the start of the partition that
// begins at the given absolute sector.
func Read(rs io.ReadSeeker, partitionOffset uint32) (*SuperBlock, error) {
	data, err := base.ReadSector(rs, partitionOffset)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
