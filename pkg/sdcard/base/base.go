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

package base

import (
	"fmt"
	"io"
)

// SectorSize is the addressing granularity of the card. All block numbers in
// superblock, MBR, and flight table count sectors of this size.
const SectorSize = 512

// TicksPerSecond is the rate of the flight computer's mission time counter.
const TicksPerSecond = 1024

// CoordinateScale is the number of raw GNSS units per degree. The receiver
// reports coordinates in units of 100 micro-minutes, i.e. 1/600000 degree.
const CoordinateScale = 600000

// TicksToMillis converts mission time ticks into milliseconds.
func TicksToMillis(ticks uint32) float64 {
	return float64(ticks) * 1000 / TicksPerSecond
}

// CoordinateToDegrees converts a raw GNSS latitude or longitude into decimal
// degrees.
func CoordinateToDegrees(raw int32) float64 {
	return float64(raw) / CoordinateScale
}

//
func SectorOffset(sector uint32) int64 {
	return int64(sector) * SectorSize
}

// SeekSector positions rs at the start of the given absolute sector.
func SeekSector(rs io.Seeker, sector uint32) error {
	if _, err := rs.Seek(SectorOffset(sector), io.SeekStart); err != nil {
		return fmt.Errorf("cannot seek to sector %d: %w", sector, err)
	}
	return nil
}

// ReadSector reads the sector at the given absolute sector number.
func ReadSector(rs io.ReadSeeker, sector uint32) ([]byte, error) {

	if err := SeekSector(rs, sector); err != nil {
		return nil, err
	}

	buf := make([]byte, SectorSize)
	if _, err := io.ReadFull(rs, buf); err != nil {
		return nil, fmt.Errorf("cannot read sector %d: %w", sector, err)
	}

	return buf, nil
}
