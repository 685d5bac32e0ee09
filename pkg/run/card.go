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

package run

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/cuinspace/sdctl/pkg/sdcard/block"
	"github.com/cuinspace/sdctl/pkg/sdcard/format"
	"github.com/cuinspace/sdctl/pkg/sdcard/mbr"
	"github.com/cuinspace/sdctl/pkg/sdcard/superblock"
)

// Card holds the settings shared by all commands that read a card image.
type Card struct {
	Input         string
	PartitionType int
}

//
func (c *Card) addCardSettings(r *Runner) {
	r.AddSetting(&c.Input, "input", "i", "", nil,
		"SD card image; may be compressed with gzip, zip, or 7z", true)
	r.AddSetting(&c.PartitionType, "partition-type", "p", "",
		int(mbr.PartitionType), "MBR type of flight data partition", false)
}

// open opens the card image, and locates its flight data partition. The
// caller needs to close the returned image.
func (c *Card) open() (*format.Image, uint32, error) {

	if c.PartitionType < 1 || c.PartitionType > 0xff {
		return nil, 0, fmt.Errorf("invalid partition type: %d", c.PartitionType)
	}

	img, err := format.OpenImage(c.Input)
	if err != nil {
		return nil, 0, err
	}

	partition, err := mbr.Locate(img, byte(c.PartitionType))
	if err != nil {
		img.Close()
		return nil, 0, err
	}

	log.WithFields(log.Fields{
		"image":     img.Name(),
		"size":      img.Size(),
		"partition": partition,
	}).Info("card image opened")

	return img, partition, nil
}

// openSuperBlock is open followed by reading the superblock.
func (c *Card) openSuperBlock() (*format.Image, uint32, *superblock.SuperBlock,
	error) {

	img, partition, err := c.open()
	if err != nil {
		return nil, 0, nil, err
	}

	sb, err := superblock.Read(img, partition)
	if err != nil {
		img.Close()
		return nil, 0, nil, err
	}

	return img, partition, sb, nil
}

// selectFlights returns the slots in list, or all recorded flights if list is
// empty.
func selectFlights(sb *superblock.SuperBlock, list string) ([]int, error) {

	slots, err := superblock.ParseSlots(list)
	if err != nil {
		return nil, err
	}

	if len(slots) == 0 {
		slots = sb.Recorded()
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("no flights on card")
	}

	return slots, nil
}

//
func layout(classBits int) (block.Layout, error) {
	if classBits < 1 {
		return block.Layout{}, fmt.Errorf("invalid class bits: %d", classBits)
	}
	l := block.Layout{ClassBits: uint(classBits)}
	return l, l.Validate()
}
