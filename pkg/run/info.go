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
	"encoding/json"
	"fmt"
	"os"

	"github.com/cuinspace/sdctl/pkg/control"
)

//
func NewInfo() *Info {

	i := &Info{}
	i.Runner = *NewRunner(
		"info -i|--input {image} [-p|--partition-type {type}] [-j|--json]",
		"show flight table of an SD card image",
		`
Use the info command to list the flights recorded on an SD card image, and to
get the dd parameters for imaging a card up to the end of its last flight.`,
		"", runnerHelpEpilogue, i.Run)

	i.AddBaseSettings()
	i.addCardSettings(&i.Runner)
	i.AddSetting(&i.JSON, "json", "j", "", false, "output as JSON", false)

	return i
}

//
type Info struct {
	Runner
	Card
	//
	JSON bool
}

//
func (i *Info) Run() error {

	i.ParseSettings()

	img, partition, sb, err := i.openSuperBlock()
	if err != nil {
		return err
	}
	defer img.Close()

	info := control.NewSuperBlockInfo(sb, partition)

	if i.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Printf("\nimage:            %s\n", img.Name())
	info.Write(os.Stdout)
	return nil
}
