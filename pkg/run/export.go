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
	"bufio"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/cuinspace/sdctl/pkg/control"
	"github.com/cuinspace/sdctl/pkg/sdcard/export"
)

//
func NewExport() *Export {

	e := &Export{}
	e.Runner = *NewRunner(
		`export -i|--input {image} -o|--output {file} [-f|--flights {n,...}]
      [-p|--partition-type {type}]`,
		"write a mission image holding selected flights",
		`
Use the export command to write a mission image that only contains the selected
flights, in the given order. The image starts with a new superblock in which the
flights are renumbered to follow each other from sector 1 on. Flight data is
copied as is. An existing output file is never overwritten.`,
		"", runnerHelpEpilogue, e.Run)

	e.AddBaseSettings()
	e.addCardSettings(&e.Runner)
	e.AddSetting(&e.Output, "output", "o", "", nil, "mission image file", true)
	e.AddSetting(&e.Flights, "flights", "f", "", nil,
		"comma separated list of flights to export; default is all", false)

	return e
}

//
type Export struct {
	Runner
	Card
	//
	Output  string
	Flights string
}

//
func (e *Export) Run() error {

	e.ParseSettings()

	img, partition, sb, err := e.openSuperBlock()
	if err != nil {
		return err
	}
	defer img.Close()

	slots, err := selectFlights(sb, e.Flights)
	if err != nil {
		return err
	}

	out, err := os.OpenFile(e.Output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("output file %s already exists", e.Output)
		}
		return err
	}

	buf := bufio.NewWriter(out)
	res, err := export.Export(img, partition, slots, buf)
	if err == nil {
		err = buf.Flush()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		log.Errorf("export failed, removing %s", e.Output)
		os.Remove(e.Output)
		return err
	}

	fmt.Printf("\nexported flights %v to %s, %d sectors\n", slots, e.Output,
		res.Sectors)
	control.NewSuperBlockInfo(res.SuperBlock, 0).Write(os.Stdout)

	return nil
}
