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

package control

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
	"github.com/cuinspace/sdctl/pkg/sdcard/flight"
	"github.com/cuinspace/sdctl/pkg/sdcard/superblock"
)

// WriteStats writes a text report of flight parse results.
func WriteStats(w io.Writer, stats ...*flight.Stats) {

	for _, s := range stats {

		fmt.Fprintf(w, "\nflight %d", s.Flight)
		if s.Skipped {
			fmt.Fprint(w, ": skipped, output already exists\n")
			continue
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "  records:      %d\n", s.Records)
		fmt.Fprintf(w, "  telemetry:    %d\n", s.Telemetry)
		fmt.Fprintf(w, "  unknown:      %d\n", s.Unknown)
		fmt.Fprintf(w, "  malformed:    %d\n", s.Malformed)
		fmt.Fprintf(w, "  spacer bytes: %d\n", s.SpacerBytes)
		fmt.Fprintf(w, "  mission time: %.3f - %.3f ms\n", s.FirstTime, s.LastTime)
		fmt.Fprintf(w, "  consumed:     %d of %d bytes\n", s.Consumed, s.Budget)

		streams := make([]base.Stream, 0, len(s.Streams))
		for st := range s.Streams {
			streams = append(streams, st)
		}
		sort.Slice(streams, func(i, j int) bool {
			return streams[i] < streams[j]
		})
		for _, st := range streams {
			fmt.Fprintf(w, "    %-24s%d\n", st, s.Streams[st])
		}

		if s.Error != "" {
			fmt.Fprintf(w, "  error:        %s\n", s.Error)
		}
	}

	fmt.Fprintln(w)
}

//
func (a *api) flight(w http.ResponseWriter, req *http.Request) {

	num, err := strconv.Atoi(mux.Vars(req)["num"])
	if err == nil && (num < 0 || num >= superblock.FlightCount) {
		err = fmt.Errorf("invalid flight number: %d", num)
	}
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	if !a.lockImage(w) {
		return
	}
	defer a.unlockImage()

	sb, err := superblock.Read(a.image, a.partition)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	flights, err := sb.Select([]int{num})
	if handleError(err, http.StatusNotFound, w) {
		return
	}

	stats, err := flight.Parse(a.image, a.partition, num, flights[0], a.layout,
		nil)
	if err != nil {
		if !flight.IsCorrupt(err) {
			handleError(err, http.StatusInternalServerError, w)
			return
		}
		stats.Error = err.Error()
	}

	if wantsJSON(req) {
		sendJSONReply(stats, http.StatusOK, w)
	} else {
		var sb strings.Builder
		WriteStats(&sb, stats)
		sendReply([]byte(sb.String()), http.StatusOK, w)
	}
}
