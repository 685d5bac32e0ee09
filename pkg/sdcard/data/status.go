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

package data

import (
	"fmt"
)

// DeviceState is the state of a sensor or peripheral as reported in a status
// block.
type DeviceState uint8

//
const (
	DeviceNone DeviceState = iota
	DeviceInitFailed
	DeviceRunning
)

//
func (d DeviceState) String() string {
	switch d {
	case DeviceNone:
		return "none"
	case DeviceInitFailed:
		return "init failed"
	case DeviceRunning:
		return "running"
	}
	return fmt.Sprintf("state %d", uint8(d))
}

// Status is the periodic health report of the flight computer.
type Status struct {
	Ticks           uint32
	KX134           DeviceState
	Altimeter       DeviceState
	IMU             DeviceState
	SDCard          DeviceState
	Deployment      DeviceState
	Reserved        [3]byte
	BlocksRecorded  uint32
	CheckoutsMissed uint32
}

//
const statusSize = 20

//
func (s *Status) Subtype() Subtype   { return SubtypeStatus }
func (s *Status) MissionTime() uint32 { return s.Ticks }

//
func decodeStatus(payload []byte) (Block, error) {
	ret := &Status{}
	if err := unpackFixed(payload, statusSize, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
