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
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
	"github.com/cuinspace/sdctl/pkg/sdcard/block"
	"github.com/cuinspace/sdctl/pkg/sdcard/superblock"
	"github.com/cuinspace/sdctl/pkg/sink"
)

// Sink receives the decoded records of a flight.
type Sink interface {
	Write(d *block.Decoded) error
}

// Stats summarizes the parse of one flight.
type Stats struct {
	Flight      int                 `json:"flight"`
	Records     int                 `json:"records"`
	Telemetry   int                 `json:"telemetry"`
	Streams     map[base.Stream]int `json:"streams"`
	Unknown     int                 `json:"unknown"`
	Malformed   int                 `json:"malformed"`
	SpacerBytes int64               `json:"spacerBytes"`
	// mission time of first and last telemetry record, in ms
	FirstTime float64 `json:"firstTime"`
	LastTime  float64 `json:"lastTime"`
	// flight bytes covered by records
	Consumed int64 `json:"consumed"`
	Budget   int64 `json:"budget"`
	//
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
	//
	hasTime bool
}

//
func newStats(num int) *Stats {
	return &Stats{Flight: num, Streams: make(map[base.Stream]int)}
}

//
func (s *Stats) fields() log.Fields {
	return log.Fields{
		"flight":    s.Flight,
		"records":   s.Records,
		"telemetry": s.Telemetry,
		"unknown":   s.Unknown,
		"malformed": s.Malformed,
		"spacer":    s.SpacerBytes,
		"first":     s.FirstTime,
		"last":      s.LastTime,
	}
}

/*
	Parse reads the records of flight f, which occupies slot num in the flight
	table of the partition starting at partitionOffset. Decoded records are
	handed to sink, if not nil. Unknown records are counted and reported, but
	do not stop the parse. Neither do records with malformed payloads. A
	corrupt record frame, or an I/O error, ends the parse of this flight with
	an error. The returned stats are valid in both cases.
*/
func Parse(rs io.ReadSeeker, partitionOffset uint32, num int, f superblock.Flight,
	l block.Layout, snk Sink) (*Stats, error) {

	stats := newStats(num)

	log.WithFields(log.Fields{
		"flight": num,
		"start":  f.FirstBlock,
		"blocks": f.NumBlocks,
		"time":   f.StartTime(),
	}).Info("parsing flight")

	s, err := block.OpenFlight(rs, partitionOffset, f, l)
	if err != nil {
		return stats, err
	}
	stats.Budget = s.Budget()

	for {
		rec, err := s.Next()
		stats.Consumed = s.Consumed()

		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("flight %d: %w", num, err)
		}

		stats.Records++

		d, err := block.Dispatch(rec)
		if err != nil {
			stats.Malformed++
			log.WithFields(log.Fields{
				"flight": num,
				"offset": rec.Offset,
			}).Errorf("skipping record: %v", err)
			continue
		}

		switch b := d.Block.(type) {

		case *block.Spacer:
			stats.SpacerBytes += int64(b.Length)

		case *block.Unknown:
			stats.Unknown++
			log.WithFields(log.Fields{
				"flight": num,
				"offset": rec.Offset,
				"class":  b.Class,
				"type":   fmt.Sprintf("0x%03x", b.Type),
			}).Warn("no handler for record")

		case *block.Telemetry:
			stats.Telemetry++
			t := base.TicksToMillis(b.Data.MissionTime())
			if !stats.hasTime {
				stats.FirstTime = t
				stats.hasTime = true
			}
			stats.LastTime = t
		}

		if d.Stream != base.StreamNone {
			stats.Streams[d.Stream]++
		}

		if snk != nil {
			if err := snk.Write(d); err != nil {
				return stats, fmt.Errorf("flight %d: error writing output: %w",
					num, err)
			}
		}
	}

	log.WithFields(stats.fields()).Info("flight parsed")

	return stats, nil
}

// IsCorrupt tells whether a parse error is caused by the flight's data,
// rather than by the environment.
func IsCorrupt(err error) bool {
	return errors.Is(err, block.ErrFrameOverrun) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

/*
	ParseFlights parses the flights in the given slots, writing their output
	into flight directories below root. Flights whose output already exists
	are skipped. A flight with corrupt data keeps its partial output, and the
	next flight is parsed. Any other error aborts.
*/
func ParseFlights(rs io.ReadSeeker, partitionOffset uint32,
	sb *superblock.SuperBlock, slots []int, root string,
	l block.Layout) ([]*Stats, error) {

	flights, err := sb.Select(slots)
	if err != nil {
		return nil, err
	}

	var ret []*Stats

	for ix, f := range flights {

		num := slots[ix]

		w, err := sink.NewFlightWriter(root, num, f)
		if errors.Is(err, sink.ErrFlightExists) {
			log.WithField("flight", num).Info(
				"flight output already exists, skipping")
			st := newStats(num)
			st.Skipped = true
			ret = append(ret, st)
			continue
		}
		if err != nil {
			return ret, err
		}

		st, err := Parse(rs, partitionOffset, num, f, l, w)
		ret = append(ret, st)

		if err != nil {
			st.Error = err.Error()
			if e := w.Abort(); e != nil {
				log.Errorf("error closing output of flight %d: %v", num, e)
			}
			if IsCorrupt(err) {
				log.WithFields(st.fields()).Errorf("flight aborted: %v", err)
				continue
			}
			return ret, err
		}

		if err := w.Commit(); err != nil {
			return ret, err
		}

		log.WithFields(log.Fields{
			"flight": num,
			"dir":    w.Dir(),
		}).Info("flight output written")
	}

	return ret, nil
}
