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

// Stream identifies the output stream a decoded block is routed to. Every
// record kind that produces output maps onto exactly one stream.
type Stream string

//
const (
	StreamNone                 Stream = ""
	StreamLogMessages          Stream = "log_messages"
	StreamOutgoingRadioPackets Stream = "outgoing_radio_packets"
	StreamIncomingRadioPackets Stream = "incoming_radio_packets"
	StreamAltitude             Stream = "altitude"
	StreamGNSSLocation         Stream = "gnss_location"
	StreamGNSSMetadata         Stream = "gnss_metadata"
	StreamKX134Accel           Stream = "kx134_accel"
	StreamMPU9250IMU           Stream = "mpu9250_imu"
	StreamStatus               Stream = "status"
	StreamAcceleration         Stream = "acceleration"
	StreamAngularVelocity      Stream = "angular_velocity"
	StreamTelemetryMission     Stream = "telemetry.mission"
)

// Streams lists all streams that carry decoded blocks, in output order.
var Streams = []Stream{
	StreamLogMessages,
	StreamOutgoingRadioPackets,
	StreamIncomingRadioPackets,
	StreamAltitude,
	StreamGNSSLocation,
	StreamGNSSMetadata,
	StreamKX134Accel,
	StreamMPU9250IMU,
	StreamStatus,
	StreamAcceleration,
	StreamAngularVelocity,
}
