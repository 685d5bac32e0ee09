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

	log "github.com/sirupsen/logrus"

	"github.com/cuinspace/sdctl/pkg/sdcard/export"
	"github.com/cuinspace/sdctl/pkg/sdcard/superblock"
)

/*
	export streams a mission image holding the flights given in the flights
	argument, in that order. Without that argument, all recorded flights are
	exported. The selection is checked before the reply starts. Errors while
	copying flight sectors can only be signalled by cutting the reply short.
*/
func (a *api) export(w http.ResponseWriter, req *http.Request) {

	slots, err := superblock.ParseSlots(getArg(req, "flights"))
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	if !a.lockImage(w) {
		return
	}

	sb, err := superblock.Read(a.image, a.partition)
	if err == nil {
		if len(slots) == 0 {
			slots = sb.Recorded()
		}
		if len(slots) == 0 {
			err = fmt.Errorf("no flights on card")
		} else {
			_, err = sb.Select(slots)
		}
	}
	if err != nil {
		a.unlockImage()
		handleError(err, http.StatusUnprocessableEntity, w)
		return
	}

	read, write := io.Pipe()

	go func() {
		defer a.unlockImage()
		res, err := export.Export(a.image, a.partition, slots, write)
		if err != nil {
			log.Errorf("export failed: %v", err)
		} else {
			log.WithFields(log.Fields{
				"flights": slots,
				"sectors": res.Sectors,
			}).Info("mission exported")
		}
		write.CloseWithError(err)
	}()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="mission.img"`)
	sendStreamReply(read, http.StatusOK, w)
}
