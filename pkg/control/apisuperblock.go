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

package control

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cuinspace/sdctl/pkg/sdcard/superblock"
)

//
type FlightInfo struct {
	Slot       int       `json:"slot"`
	FirstBlock uint32    `json:"firstBlock"`
	NumBlocks  uint32    `json:"numBlocks"`
	Start      time.Time `json:"start"`
}

// SuperBlockInfo is the report of a card's flight table.
type SuperBlockInfo struct {
	Version         uint8         `json:"version"`
	Continued       bool          `json:"continued"`
	PartitionOffset uint32        `json:"partitionOffset"`
	PartitionLength uint32        `json:"partitionLength"`
	Flights         []*FlightInfo `json:"flights"`
	LastBlock       uint32        `json:"lastBlock"`
	// sector count to pass to dd for imaging the card up to its last flight
	DDCount uint32 `json:"ddCount"`
}

//
func NewSuperBlockInfo(sb *superblock.SuperBlock, partition uint32) *SuperBlockInfo {

	ret := &SuperBlockInfo{
		Version:         sb.Version,
		Continued:       sb.Continued(),
		PartitionOffset: partition,
		PartitionLength: sb.PartitionLength,
		Flights:         []*FlightInfo{},
		LastBlock:       sb.LastBlock(),
	}
	ret.DDCount = ret.LastBlock + partition + 1

	for _, ix := range sb.Used() {
		f := sb.Flights[ix]
		ret.Flights = append(ret.Flights, &FlightInfo{
			Slot:       ix,
			FirstBlock: f.FirstBlock,
			NumBlocks:  f.NumBlocks,
			Start:      f.StartTime(),
		})
	}

	return ret
}

//
func (i *SuperBlockInfo) Write(w io.Writer) {

	fmt.Fprintf(w, "\nversion:          %d\n", i.Version)
	fmt.Fprintf(w, "continued:        %v\n", i.Continued)
	fmt.Fprintf(w, "partition offset: %d\n", i.PartitionOffset)
	fmt.Fprintf(w, "partition length: %d sectors\n\n", i.PartitionLength)

	if len(i.Flights) == 0 {
		fmt.Fprint(w, "no flights\n\n")
	} else {
		fmt.Fprintf(w, "%4s  %10s  %10s  %s\n", "slot", "first", "blocks",
			"start time")
		for _, f := range i.Flights {
			fmt.Fprintf(w, "%4d  %10d  %10d  %s\n", f.Slot, f.FirstBlock,
				f.NumBlocks, f.Start.Format(time.RFC3339))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "last used block:  %d\n", i.LastBlock)
	fmt.Fprintf(w, "dd hint:          dd bs=512 count=%d\n\n", i.DDCount)
}

//
func (i *SuperBlockInfo) String() string {
	var sb strings.Builder
	i.Write(&sb)
	return sb.String()
}

//
func (a *api) superblock(w http.ResponseWriter, req *http.Request) {

	if !a.lockImage(w) {
		return
	}
	sb, err := superblock.Read(a.image, a.partition)
	a.unlockImage()

	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	info := NewSuperBlockInfo(sb, a.partition)

	if wantsJSON(req) {
		sendJSONReply(info, http.StatusOK, w)
	} else {
		sendReply([]byte(info.String()), http.StatusOK, w)
	}
}
