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
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FirstExportBlock is where the first flight starts in an exported image. The
// sector before it holds the superblock.
const FirstExportBlock = 1

// Recorded returns the slots of all flights up to the first unused slot. The
// flight computer fills the table in slot order.
func (sb *SuperBlock) Recorded() []int {
	var ret []int
	for ix, f := range sb.Flights {
		if !f.IsUsed() {
			break
		}
		ret = append(ret, ix)
	}
	return ret
}

// ParseSlots parses a comma separated list of flight slot numbers.
func ParseSlots(list string) ([]int, error) {

	var ret []int

	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n >= FlightCount {
			return nil, fmt.Errorf("invalid flight number: '%s'", s)
		}
		ret = append(ret, n)
	}

	return ret, nil
}

// Select resolves flight slot numbers into flights, keeping the given order.
func (sb *SuperBlock) Select(slots []int) ([]Flight, error) {

	ret := make([]Flight, 0, len(slots))

	for _, s := range slots {
		if s < 0 || s >= FlightCount {
			return nil, fmt.Errorf("invalid flight number: %d", s)
		}
		f := sb.Flights[s]
		if !f.IsUsed() {
			return nil, fmt.Errorf("flight %d is not in use", s)
		}
		ret = append(ret, f)
	}

	return ret, nil
}

/*
	Renumber returns a sanitized copy of this superblock whose flight table
	only contains the given flights, in the given order. The flights are packed
	back to back starting at FirstExportBlock. Start time and length of each
	flight are preserved, all remaining slots are cleared. The receiver is not
	modified.
*/
func (sb *SuperBlock) Renumber(keep []Flight) (*SuperBlock, error) {

	if len(keep) > FlightCount {
		return nil, fmt.Errorf(
			"cannot keep %d flights, flight table has %d slots",
			len(keep), FlightCount)
	}

	ret := *sb
	ret.Flights = [FlightCount]Flight{}

	offset := uint64(FirstExportBlock)

	for ix, f := range keep {
		if offset+uint64(f.NumBlocks) > math.MaxUint32 {
			return nil, fmt.Errorf("flight %d does not fit into 32 bit block range", ix)
		}
		ret.Flights[ix] = Flight{
			FirstBlock: uint32(offset),
			NumBlocks:  f.NumBlocks,
			Timestamp:  f.Timestamp,
		}
		offset += uint64(f.NumBlocks)
	}
	ret.raw.Flights = ret.Flights

	return &ret, nil
}
