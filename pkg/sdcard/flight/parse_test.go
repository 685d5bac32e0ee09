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

package flight

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
	"github.com/cuinspace/sdctl/pkg/sdcard/block"
	"github.com/cuinspace/sdctl/pkg/sdcard/data"
	"github.com/cuinspace/sdctl/pkg/sdcard/superblock"
	"github.com/cuinspace/sdctl/pkg/sink"
)

var layout = block.DefaultLayout

func altitude(ticks uint32) []byte {
	p := make([]byte, 16)
	binary.LittleEndian.PutUint32(p[0:], ticks)
	binary.LittleEndian.PutUint32(p[4:], 90000)
	binary.LittleEndian.PutUint32(p[8:], 15000)
	binary.LittleEndian.PutUint32(p[12:], 250000)
	return layout.Frame(block.ClassTelemetry,
		block.TelemetryType(data.TypeData, data.SubtypeAltitude), p)
}

func kx134(ticks uint32, samples int, extra int) []byte {
	p := make([]byte, 8+6*samples+extra)
	binary.LittleEndian.PutUint32(p[0:], ticks)
	// 16 bit, 8g, 100 Hz
	binary.LittleEndian.PutUint16(p[4:], 7|0x80)
	return layout.Frame(block.ClassTelemetry,
		block.TelemetryType(data.TypeData, data.SubtypeKX134Accel), p)
}

func logMessage(ticks uint32, msg string) []byte {
	p := make([]byte, 4, 8+len(msg))
	binary.LittleEndian.PutUint32(p, ticks)
	p = append(p, msg...)
	for len(p)%4 != 0 {
		p = append(p, 0)
	}
	return layout.Frame(block.ClassDiagnostic, block.TypeLogMessage, p)
}

func spacer(length int) []byte {
	return layout.Frame(block.ClassLoggingMetadata, block.TypeSpacer,
		make([]byte, length-block.HeaderSize))
}

func overrun() []byte {
	r := spacer(8)
	binary.LittleEndian.PutUint16(r[2:], 2000)
	return r
}

// image builds a card without MBR holding the given flights, one sector each,
// starting at sector 1
func image(flights ...[][]byte) ([]byte, *superblock.SuperBlock) {

	img := make([]byte, (1+len(flights))*base.SectorSize)
	copy(img, superblock.Magic[:])
	copy(img[0x1f8:], superblock.Magic[:])

	for ix, records := range flights {
		o := 0x60 + 12*ix
		binary.LittleEndian.PutUint32(img[o:], uint32(1+ix))
		binary.LittleEndian.PutUint32(img[o+4:], 1)
		binary.LittleEndian.PutUint32(img[o+8:], uint32(1668434478+ix))

		at := (1 + ix) * base.SectorSize
		for _, r := range records {
			at += copy(img[at:], r)
		}
	}

	sb, err := superblock.Decode(img[:base.SectorSize])
	if err != nil {
		panic(err)
	}
	return img, sb
}

func goodFlight() [][]byte {
	return [][]byte{
		altitude(1024),
		logMessage(1100, "launch detected"),
		layout.Frame(block.ClassDiagnostic, 0x20, []byte{1, 2, 3, 4}),
		kx134(2048, 3, 0),
		kx134(2100, 3, 1),
		spacer(64),
		altitude(3072),
	}
}

type collector struct {
	decoded []*block.Decoded
}

func (c *collector) Write(d *block.Decoded) error {
	c.decoded = append(c.decoded, d)
	return nil
}

func TestParse(t *testing.T) {
	img, sb := image(goodFlight())

	c := &collector{}
	st, err := Parse(bytes.NewReader(img), 0, 0, sb.Flights[0], layout, c)
	require.NoError(t, err)

	require.Equal(t, 7, st.Records)
	require.Equal(t, 3, st.Telemetry)
	require.Equal(t, 1, st.Unknown)
	require.Equal(t, 1, st.Malformed)
	require.Equal(t, int64(64), st.SpacerBytes)
	require.Equal(t, 1000.0, st.FirstTime)
	require.Equal(t, 3000.0, st.LastTime)
	require.Equal(t, 2, st.Streams[base.StreamAltitude])
	require.Equal(t, 1, st.Streams[base.StreamKX134Accel])
	require.Equal(t, 1, st.Streams[base.StreamLogMessages])
	require.Equal(t, int64(512), st.Budget)

	// malformed record is not handed on
	require.Len(t, c.decoded, 6)
}

func TestParseOverrun(t *testing.T) {
	img, sb := image([][]byte{altitude(1), overrun(), altitude(2)})

	c := &collector{}
	st, err := Parse(bytes.NewReader(img), 0, 0, sb.Flights[0], layout, c)
	require.Error(t, err)
	require.True(t, IsCorrupt(err))
	require.Equal(t, 1, st.Records)
	require.Len(t, c.decoded, 1)
}

func TestParseFlights(t *testing.T) {
	img, sb := image(goodFlight(), [][]byte{altitude(1), overrun()},
		[][]byte{logMessage(1024, "third")})
	root := t.TempDir()

	stats, err := ParseFlights(bytes.NewReader(img), 0, sb, sb.Recorded(),
		root, layout)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	// flight 0 complete
	dir := sink.FlightDir(root, 0)
	alt, err := os.ReadFile(filepath.Join(dir, "altitude"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(alt)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Mission Time (ms),Pressure (Pa),Temperature (C),Altitude (m)",
		lines[0])
	require.Equal(t, "1000,90000,15,250", lines[1])

	kx, err := os.ReadFile(filepath.Join(dir, "kx134_accel"))
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(string(kx)), "\n"), 4)

	mission, err := os.ReadFile(filepath.Join(dir, "telemetry.mission"))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(mission)), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "0,1668434478", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "2,48,00040000"), lines[1])

	_, err = os.Stat(filepath.Join(dir, "outgoing_radio_packets"))
	require.True(t, os.IsNotExist(err))

	// flight 1 corrupt, kept as partial
	require.NotEmpty(t, stats[1].Error)
	_, err = os.Stat(sink.FlightDir(root, 1))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(sink.FlightDir(root, 1) + sink.PartialSuffix)
	require.NoError(t, err)

	// flight 2 still parsed
	msgs, err := os.ReadFile(filepath.Join(sink.FlightDir(root, 2), "log_messages"))
	require.NoError(t, err)
	require.Contains(t, string(msgs), "1000,third")

	// second run skips existing output
	stats, err = ParseFlights(bytes.NewReader(img), 0, sb, []int{0, 2}, root,
		layout)
	require.NoError(t, err)
	require.True(t, stats[0].Skipped)
	require.True(t, stats[1].Skipped)
}
