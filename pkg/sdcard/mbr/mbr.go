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
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-restruct/restruct"
	log "github.com/sirupsen/logrus"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
)

// PartitionType is the MBR partition type used by the flight computer.
const PartitionType = 0x89

//
var (
	ErrInvalidMBR  = errors.New("mbr: invalid master boot record")
	ErrNoPartition = errors.New("mbr: no flight data partition found")
)

//
type chs struct {
	Head     uint8
	Sector   uint8
	Cylinder uint8
}

//
type entry struct {
	Status   uint8
	FirstCHS chs
	Type     uint8
	LastCHS  chs
	FirstLBA uint32
	Sectors  uint32
}

//
type layout struct {
	BootCode   [446]byte
	Partitions [4]entry
	Signature  [2]byte
}

// CHS is a decoded cylinder/head/sector address.
type CHS struct {
	Cylinder int
	Head     int
	Sector   int
}

//
func (c chs) decode() CHS {
	return CHS{
		Cylinder: int(c.Cylinder) | (int(c.Sector&0xc0) << 2),
		Head:     int(c.Head),
		Sector:   int(c.Sector & 0x3f),
	}
}

//
type Partition struct {
	Bootable    bool
	Type        byte
	FirstCHS    CHS
	LastCHS     CHS
	FirstSector uint32
	SectorCount uint32
}

//
type MBR struct {
	Partitions []Partition
}

// Decode decodes a master boot record sector. Only valid partition entries
// are retained, i.e. entries with a status of 0x00 or 0x80 and a non-zero
// type.
func Decode(sector []byte) (*MBR, error) {

	if len(sector) != base.SectorSize {
		return nil, fmt.Errorf("%w: sector length %d", ErrInvalidMBR, len(sector))
	}

	var raw layout
	if err := restruct.Unpack(sector, binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMBR, err)
	}

	if raw.Signature != [2]byte{0x55, 0xaa} {
		return nil, fmt.Errorf("%w: bad boot signature %x", ErrInvalidMBR,
			raw.Signature[:])
	}

	ret := &MBR{}
	for _, e := range raw.Partitions {
		if e.Status&0x7f != 0 || e.Type == 0 {
			continue
		}
		ret.Partitions = append(ret.Partitions, Partition{
			Bootable:    e.Status&0x80 != 0,
			Type:        e.Type,
			FirstCHS:    e.FirstCHS.decode(),
			LastCHS:     e.LastCHS.decode(),
			FirstSector: e.FirstLBA,
			SectorCount: e.Sectors,
		})
	}

	return ret, nil
}

// FindPartition returns the first valid partition of the given type.
func (m *MBR) FindPartition(typ byte) (*Partition, error) {
	for ix := range m.Partitions {
		if m.Partitions[ix].Type == typ {
			return &m.Partitions[ix], nil
		}
	}
	return nil, fmt.Errorf("%w: type 0x%02x", ErrNoPartition, typ)
}

/*
	Locate determines the sector at which the flight data partition starts.
	If the first sector of the image does not hold a valid MBR, the image is
	assumed to start directly with the superblock, and 0 is returned. If there
	is a valid MBR that does not list a partition of the requested type,
	ErrNoPartition is returned.
*/
func Locate(rs io.ReadSeeker, typ byte) (uint32, error) {

	sector, err := base.ReadSector(rs, 0)
	if err != nil {
		return 0, err
	}

	m, err := Decode(sector)
	if err != nil {
		log.Info("no valid MBR found, assuming that first sector is superblock")
		return 0, nil
	}

	p, err := m.FindPartition(typ)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"type":    fmt.Sprintf("0x%02x", p.Type),
		"start":   p.FirstSector,
		"sectors": p.SectorCount}).Debug("found flight data partition")

	return p.FirstSector, nil
}
