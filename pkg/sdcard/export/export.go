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

package export

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
	"github.com/cuinspace/sdctl/pkg/sdcard/superblock"
)

// Result summarizes a mission export.
type Result struct {
	// the superblock written to the export
	SuperBlock *superblock.SuperBlock
	// total sectors written, including the superblock
	Sectors int64
}

/*
	Export writes a mission image to dst that contains only the flights in
	the given slots of the partition starting at partitionOffset in src. The
	image starts with a sanitized superblock in which the selected flights are
	renumbered to follow each other from sector 1 on, in the given order. The
	flights' sectors are then copied verbatim, back to back. Record payloads
	are not looked at.
*/
func Export(src io.ReadSeeker, partitionOffset uint32, slots []int,
	dst io.Writer) (*Result, error) {

	sb, err := superblock.Read(src, partitionOffset)
	if err != nil {
		return nil, err
	}

	flights, err := sb.Select(slots)
	if err != nil {
		return nil, err
	}

	out, err := sb.Renumber(flights)
	if err != nil {
		return nil, err
	}

	sector, err := out.Encode()
	if err != nil {
		return nil, err
	}

	if _, err := dst.Write(sector); err != nil {
		return nil, fmt.Errorf("error writing superblock: %v", err)
	}

	ret := &Result{SuperBlock: out, Sectors: 1}

	for ix, f := range flights {

		log.WithFields(log.Fields{
			"slot":   slots[ix],
			"source": f.FirstBlock,
			"target": out.Flights[ix].FirstBlock,
			"blocks": f.NumBlocks,
		}).Debug("exporting flight")

		if err := copyFlight(src, partitionOffset, f, dst); err != nil {
			return nil, fmt.Errorf("error exporting flight %d: %w", slots[ix], err)
		}

		ret.Sectors += int64(f.NumBlocks)
	}

	log.WithFields(log.Fields{
		"flights": len(flights),
		"sectors": ret.Sectors,
	}).Info("mission exported")

	return ret, nil
}

//
func copyFlight(src io.ReadSeeker, partitionOffset uint32, f superblock.Flight,
	dst io.Writer) error {

	if _, err := src.Seek(base.SectorOffset(partitionOffset)+
		base.SectorOffset(f.FirstBlock), io.SeekStart); err != nil {
		return err
	}

	n, err := io.CopyN(dst, src, f.Size())
	if err == io.EOF {
		return fmt.Errorf("%w: source ends after %d of %d bytes",
			io.ErrUnexpectedEOF, n, f.Size())
	}

	return err
}
