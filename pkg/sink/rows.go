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

package sink

import (
	"encoding/hex"
	"strconv"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
	"github.com/cuinspace/sdctl/pkg/sdcard/block"
	"github.com/cuinspace/sdctl/pkg/sdcard/data"
)

// column headers per stream
var headers = map[base.Stream][]string{
	base.StreamLogMessages: {
		"Mission Time (ms)", "Message"},
	base.StreamOutgoingRadioPackets: {
		"Length", "Packet"},
	base.StreamIncomingRadioPackets: {
		"Length", "Packet"},
	base.StreamAltitude: {
		"Mission Time (ms)", "Pressure (Pa)", "Temperature (C)", "Altitude (m)"},
	base.StreamGNSSLocation: {
		"Mission Time (ms)", "Latitude", "Longitude", "UTC Time", "Altitude (m)",
		"Speed (knots)", "Course (deg)", "PDOP", "HDOP", "VDOP", "Sats in Fix",
		"Fix Type"},
	base.StreamGNSSMetadata: {
		"Mission Time (ms)", "Satellite", "Constellation", "Elevation (deg)",
		"Azimuth (deg)", "SNR (dB-Hz)", "In Use"},
	base.StreamKX134Accel: {
		"Mission Time (ms)", "ODR (Hz)", "Range (g)", "LPF Rolloff (ODR/x)",
		"Resolution (bits)", "X (g)", "Y (g)", "Z (g)"},
	base.StreamMPU9250IMU: {
		"Mission Time (ms)", "Accel/Gyro Sample Rate (Hz)",
		"Mag Sample Rate (Hz)", "Accel FSR (g)", "Gyro FSR (deg/s)",
		"Accel X (g)", "Accel Y (g)", "Accel Z (g)", "Gyro X (dps)",
		"Gyro Y (dps)", "Gyro Z (dps)", "Mag X (uT)", "Mag Y (uT)",
		"Mag Z (uT)", "Mag Overflow", "Temperature (C)"},
	base.StreamStatus: {
		"Mission Time (ms)", "KX134 State", "Altimeter State", "IMU State",
		"SD Card Driver State", "Deployment State", "SD Blocks Recorded",
		"SD Checkouts Missed"},
	base.StreamAcceleration: {
		"Mission Time (ms)", "FSR (g)", "X (g)", "Y (g)", "Z (g)"},
	base.StreamAngularVelocity: {
		"Mission Time (ms)", "FSR (dps)", "X (dps)", "Y (dps)", "Z (dps)"},
}

// Header returns the CSV column header of a stream.
func Header(s base.Stream) []string {
	return headers[s]
}

//
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

//
func utoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

//
func ms(ticks uint32) string {
	return ftoa(base.TicksToMillis(ticks))
}

// Rows renders a decoded block into CSV rows. Batched blocks produce one row
// per sample, blocks that produce no output yield no rows.
func Rows(d *block.Decoded) [][]string {

	switch b := d.Block.(type) {

	case *block.LogMessage:
		return [][]string{{ms(b.Ticks), b.Message}}

	case *block.RadioPacket:
		return [][]string{{strconv.Itoa(len(b.Packet)),
			hex.EncodeToString(b.Packet)}}

	case *block.Telemetry:
		return telemetryRows(b.Data)

	case *block.Spacer, *block.Unknown:
		return nil
	}

	return nil
}

//
func telemetryRows(blk data.Block) [][]string {

	switch b := blk.(type) {

	case *data.DebugMessage:
		return [][]string{{ms(b.Ticks), b.Message}}

	case *data.Status:
		return [][]string{{ms(b.Ticks), b.KX134.String(),
			b.Altimeter.String(), b.IMU.String(), b.SDCard.String(),
			b.Deployment.String(), utoa(uint64(b.BlocksRecorded)),
			utoa(uint64(b.CheckoutsMissed))}}

	case *data.Altitude:
		return [][]string{{ms(b.Ticks), utoa(uint64(b.Pressure)),
			ftoa(b.Temperature()), ftoa(b.Meters())}}

	case *data.Acceleration:
		return [][]string{vectorRow(&b.Vector)}

	case *data.AngularVelocity:
		return [][]string{vectorRow(&b.Vector)}

	case *data.GNSSLocation:
		return [][]string{{ms(b.Ticks), ftoa(b.Latitude()),
			ftoa(b.Longitude()), utoa(uint64(b.UTCTime)), ftoa(b.Altitude()),
			ftoa(b.Speed()), ftoa(b.Course()), ftoa(b.PDOP()), ftoa(b.HDOP()),
			ftoa(b.VDOP()), utoa(uint64(b.SatellitesFix)), b.Fix.String()}}

	case *data.GNSSMetadata:
		if len(b.Satellites) == 0 {
			return [][]string{{ms(b.Ticks), "", "", "", "", "", ""}}
		}
		ret := make([][]string, 0, len(b.Satellites))
		for _, s := range b.Satellites {
			ret = append(ret, []string{ms(b.Ticks), utoa(uint64(s.ID)),
				s.Type.String(), utoa(uint64(s.Elevation)),
				utoa(uint64(s.Azimuth)), utoa(uint64(s.SNR)),
				strconv.FormatBool(b.InUse(s))})
		}
		return ret

	case *data.KX134Accel:
		ret := make([][]string, 0, b.Len())
		rolloff := "9"
		if b.Rolloff() {
			rolloff = "2"
		}
		b.Each(func(ix int, s data.KX134Sample) {
			ret = append(ret, []string{ftoa(s.Time), ftoa(b.Rate()),
				ftoa(b.Range()), rolloff, strconv.Itoa(b.Resolution()),
				ftoa(s.X), ftoa(s.Y), ftoa(s.Z)})
		})
		return ret

	case *data.MPU9250IMU:
		ret := make([][]string, 0, b.Len())
		b.Each(func(ix int, s data.MPU9250Sample) {
			ret = append(ret, []string{ftoa(s.Time), ftoa(b.Rate()),
				ftoa(b.MagRate()), ftoa(b.AccelRange()), ftoa(b.GyroRange()),
				ftoa(s.AccelX), ftoa(s.AccelY), ftoa(s.AccelZ),
				ftoa(s.GyroX), ftoa(s.GyroY), ftoa(s.GyroZ),
				ftoa(s.MagX), ftoa(s.MagY), ftoa(s.MagZ),
				strconv.FormatBool(s.MagOverflow), ftoa(s.Temperature)})
		})
		return ret
	}

	return nil
}

//
func vectorRow(v *data.Vector) []string {
	return []string{ms(v.Ticks), utoa(uint64(v.FSR)), ftoa(v.X()),
		ftoa(v.Y()), ftoa(v.Z())}
}
