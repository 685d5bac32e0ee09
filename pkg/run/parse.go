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
	"os"

	"github.com/cuinspace/sdctl/pkg/control"
	"github.com/cuinspace/sdctl/pkg/sdcard/flight"
)

//
func NewParse() *Parse {

	p := &Parse{}
	p.Runner = *NewRunner(
		`parse -i|--input {image} [-o|--output {dir}] [-f|--flights {n,...}]
      [-p|--partition-type {type}] [-b|--class-bits {bits}]`,
		"decode flights of an SD card image",
		`
Use the parse command to decode the records of the flights on an SD card image.
The output of each flight goes into its own directory flight_<n> below the
output directory, with one CSV file per record stream, and the raw telemetry in
telemetry.mission. Flights whose output directory already exists are skipped.
If a flight turns out to be corrupt, what could be decoded is kept in
flight_<n>.partial, and parsing continues with the next flight.`,
		"", runnerHelpEpilogue, p.Run)

	p.AddBaseSettings()
	p.addCardSettings(&p.Runner)
	p.AddSetting(&p.Output, "output", "o", "", "out", "output directory", false)
	p.AddSetting(&p.Flights, "flights", "f", "", nil,
		"comma separated list of flights to parse; default is all", false)
	p.AddSetting(&p.ClassBits, "class-bits", "b", "", 6,
		"number of low bits in record type word holding the record class",
		false)

	return p
}

//
type Parse struct {
	Runner
	Card
	//
	Output    string
	Flights   string
	ClassBits int
}

//
func (p *Parse) Run() error {

	p.ParseSettings()

	l, err := layout(p.ClassBits)
	if err != nil {
		return err
	}

	img, partition, sb, err := p.openSuperBlock()
	if err != nil {
		return err
	}
	defer img.Close()

	slots, err := selectFlights(sb, p.Flights)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.Output, 0755); err != nil {
		return err
	}

	stats, err := flight.ParseFlights(img, partition, sb, slots, p.Output, l)
	control.WriteStats(os.Stdout, stats...)
	if err != nil {
		return err
	}

	failed := 0
	for _, s := range stats {
		if s.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d flights corrupt, partial output kept",
			failed, len(stats))
	}

	return nil
}
