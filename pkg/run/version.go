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
	"io"
	"strings"

	"github.com/cuinspace/sdctl/pkg/util"
)

//
func NewVersion() *Version {
	v := &Version{}
	v.Runner = *NewRunner(
		"version [-a|--address {address}]",
		"get version info of sdctl & server", "", "", "", v.Run)
	v.AddBaseSettings()
	v.AddSetting(&v.Address, "address", "a", "", "",
		"address of sdctl server to query", false)
	return v
}

//
type Version struct {
	Runner
	//
	Address string
}

//
func (v *Version) Run() error {

	v.ParseSettings()

	if v.Address == "" {
		PrintVersion("")
		return nil
	}

	resp, err := apiCall(v.Address, "GET", "/version", false, nil)
	if err != nil {
		PrintVersion("server:     not reachable\n")
		return nil
	}
	defer resp.Close()

	buf := new(strings.Builder)
	if _, err = io.Copy(buf, resp); err != nil {
		return err
	}

	PrintVersion(buf.String())
	return nil
}

//
func PrintVersion(remote string) {
	fmt.Printf(`
           _      _   _
  ___  __| | ___| |_| |
 / __|/ _' |/ __| __| |
 \__ \ (_| | (__| |_| |
 |___/\__,_|\___|\__|_|

 flight computer SD card tool

sdctl:      %s
`, util.SDCtlVersion)
	if remote != "" {
		fmt.Printf("%s", remote)
	}
	fmt.Println()
}
