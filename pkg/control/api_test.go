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
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
	"github.com/cuinspace/sdctl/pkg/sdcard/block"
	"github.com/cuinspace/sdctl/pkg/sdcard/data"
	"github.com/cuinspace/sdctl/pkg/sdcard/flight"
	"github.com/cuinspace/sdctl/pkg/sdcard/superblock"
)

// card holds two flights of one sector each, at sectors 1 and 3
func card() []byte {

	img := make([]byte, 4*base.SectorSize)
	copy(img, superblock.Magic[:])
	copy(img[0x1f8:], superblock.Magic[:])

	for ix, first := range []uint32{1, 3} {
		o := 0x60 + 12*ix
		binary.LittleEndian.PutUint32(img[o:], first)
		binary.LittleEndian.PutUint32(img[o+4:], 1)
		binary.LittleEndian.PutUint32(img[o+8:], 1668434478)

		p := make([]byte, 16)
		binary.LittleEndian.PutUint32(p, 1024*uint32(ix+1))
		rec := block.DefaultLayout.Frame(block.ClassTelemetry,
			block.TelemetryType(data.TypeData, data.SubtypeAltitude), p)
		copy(img[int(first)*base.SectorSize:], rec)
	}

	return img
}

func call(t *testing.T, a *api, url string, json bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", url, nil)
	if json {
		req.Header.Set("Accept", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func newTestAPI() *api {
	return newAPI(":0", bytes.NewReader(card()), 0, block.DefaultLayout, nil)
}

func TestSuperBlock(t *testing.T) {
	a := newTestAPI()

	rec := call(t, a, "/superblock", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var info SuperBlockInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Len(t, info.Flights, 2)
	require.Equal(t, uint32(3), info.Flights[1].FirstBlock)
	require.Equal(t, uint32(4), info.LastBlock)
	require.Equal(t, uint32(5), info.DDCount)
	require.Equal(t, "2022-11-14T14:01:18Z",
		info.Flights[0].Start.Format("2006-01-02T15:04:05Z07:00"))

	rec = call(t, a, "/superblock", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "dd bs=512 count=5")
}

func TestFlight(t *testing.T) {
	a := newTestAPI()

	rec := call(t, a, "/flight/1", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var st flight.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, 1, st.Flight)
	require.Equal(t, 1, st.Records)
	require.Equal(t, 1, st.Streams[base.StreamAltitude])
	require.Equal(t, 2000.0, st.FirstTime)

	rec = call(t, a, "/flight/0", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "flight 0")

	require.Equal(t, http.StatusNotFound, call(t, a, "/flight/5", false).Code)
	require.Equal(t, http.StatusUnprocessableEntity,
		call(t, a, "/flight/40", false).Code)
}

func TestExport(t *testing.T) {
	a := newTestAPI()
	img := card()

	rec := call(t, a, "/export?flights=1", false)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.Bytes()
	require.Len(t, out, 2*base.SectorSize)

	sb, err := superblock.Decode(out[:base.SectorSize])
	require.NoError(t, err)
	require.Equal(t, superblock.Flight{FirstBlock: 1, NumBlocks: 1,
		Timestamp: 1668434478}, sb.Flights[0])
	require.False(t, sb.Flights[1].IsUsed())
	require.Equal(t, img[3*base.SectorSize:], out[base.SectorSize:])

	// all recorded flights by default
	rec = call(t, a, "/export", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Body.Bytes(), 3*base.SectorSize)

	require.Equal(t, http.StatusUnprocessableEntity,
		call(t, a, "/export?flights=7", false).Code)
	require.Equal(t, http.StatusUnprocessableEntity,
		call(t, a, "/export?flights=x", false).Code)
}

func TestSearchUnavailable(t *testing.T) {
	rec := call(t, newTestAPI(), "/search?term=apogee", false)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVersion(t *testing.T) {
	rec := call(t, newTestAPI(), "/version", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var v Version
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Equal(t, "n/a", v.Image)
	require.True(t, strings.TrimSpace(v.Server) != "")
}
