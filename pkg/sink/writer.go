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
	"bufio"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
	"github.com/cuinspace/sdctl/pkg/sdcard/block"
	"github.com/cuinspace/sdctl/pkg/sdcard/superblock"
)

// ErrFlightExists is returned when output for a flight is already present.
var ErrFlightExists = errors.New("sink: flight output already exists")

// PartialSuffix marks a flight directory that is still being written, or
// whose parse failed.
const PartialSuffix = ".partial"

// telemetry.mission line tags
const (
	missionStart     = 0
	missionTelemetry = 2
)

// FlightDir returns the output directory of flight num below root.
func FlightDir(root string, num int) string {
	return filepath.Join(root, fmt.Sprintf("flight_%d", num))
}

//
type csvFile struct {
	file *os.File
	csv  *csv.Writer
	rows int
}

/*
	FlightWriter writes the decoded records of one flight into a flight
	directory, one file per stream. Files are only created once the first
	row for them arrives. All output goes into a .partial directory first,
	which is renamed to its final name on Commit. If parsing the flight
	fails, Abort leaves the .partial directory in place for inspection.
*/
type FlightWriter struct {
	dir     string
	partial string
	flight  superblock.Flight
	//
	files   map[base.Stream]*csvFile
	mission *os.File
	buf     *bufio.Writer
	//
	done bool
}

// NewFlightWriter prepares output for flight num below root. It fails with
// ErrFlightExists if the final flight directory is already present. Leftovers
// of a previous failed attempt are removed.
func NewFlightWriter(root string, num int, f superblock.Flight) (*FlightWriter, error) {

	dir := FlightDir(root, num)

	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrFlightExists, dir)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	partial := dir + PartialSuffix
	if err := os.RemoveAll(partial); err != nil {
		return nil, fmt.Errorf("cannot remove stale output %s: %v", partial, err)
	}
	if err := os.MkdirAll(partial, 0755); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"flight": num,
		"dir":    partial,
	}).Debug("flight output created")

	return &FlightWriter{
		dir:     dir,
		partial: partial,
		flight:  f,
		files:   make(map[base.Stream]*csvFile),
	}, nil
}

// Dir returns the final directory of this flight's output.
func (w *FlightWriter) Dir() string {
	return w.dir
}

// Rows returns the number of rows written to a stream so far, not counting
// the header.
func (w *FlightWriter) Rows(s base.Stream) int {
	if f, ok := w.files[s]; ok {
		return f.rows
	}
	return 0
}

// Write routes a decoded block to its stream. Telemetry records are also
// dumped raw into the telemetry.mission file.
func (w *FlightWriter) Write(d *block.Decoded) error {

	if w.done {
		return fmt.Errorf("flight writer already closed")
	}

	if _, ok := d.Block.(*block.Telemetry); ok {
		if err := w.writeMission(d.Record); err != nil {
			return err
		}
	}

	if d.Stream == base.StreamNone {
		return nil
	}

	rows := Rows(d)
	if len(rows) == 0 {
		return nil
	}

	f, err := w.stream(d.Stream)
	if err != nil {
		return err
	}

	f.rows += len(rows)
	return f.csv.WriteAll(rows)
}

//
func (w *FlightWriter) stream(s base.Stream) (*csvFile, error) {

	if f, ok := w.files[s]; ok {
		return f, nil
	}

	file, err := os.Create(filepath.Join(w.partial, string(s)))
	if err != nil {
		return nil, err
	}

	ret := &csvFile{file: file, csv: csv.NewWriter(file)}
	if err := ret.csv.Write(Header(s)); err != nil {
		file.Close()
		return nil, err
	}

	w.files[s] = ret
	return ret, nil
}

// writeMission appends a record to telemetry.mission. The first line holds
// the flight's start time.
func (w *FlightWriter) writeMission(r *block.Record) error {

	if w.mission == nil {
		f, err := os.Create(filepath.Join(w.partial,
			string(base.StreamTelemetryMission)))
		if err != nil {
			return err
		}
		w.mission = f
		w.buf = bufio.NewWriter(f)
		if _, err := fmt.Fprintf(w.buf, "%d,%d\n", missionStart,
			w.flight.Timestamp); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w.buf, "%d,%d,%s\n", missionTelemetry, r.Type,
		hex.EncodeToString(r.Payload()))
	return err
}

//
func (w *FlightWriter) close() error {

	if w.done {
		return nil
	}
	w.done = true

	var ret error
	keep := func(err error) {
		if err != nil && ret == nil {
			ret = err
		}
	}

	for _, f := range w.files {
		f.csv.Flush()
		keep(f.csv.Error())
		keep(f.file.Close())
	}

	if w.mission != nil {
		keep(w.buf.Flush())
		keep(w.mission.Close())
	}

	return ret
}

// Commit closes all output files and moves the flight's output into place.
func (w *FlightWriter) Commit() error {
	if err := w.close(); err != nil {
		return err
	}
	return os.Rename(w.partial, w.dir)
}

// Abort closes all output files, and leaves them in the .partial directory.
func (w *FlightWriter) Abort() error {
	log.WithField("dir", w.partial).Warn("keeping partial flight output")
	return w.close()
}
