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
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/cuinspace/sdctl/pkg/control"
	"github.com/cuinspace/sdctl/pkg/repo"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Runner = *NewRunner(
		`serve -i|--input {image} [-a|--address {address}] [-x|--index {dir}
      -o|--output {dir}] [-p|--partition-type {type}] [-b|--class-bits {bits}]`,
		"serve SD card image via HTTP API",
		`
Use the serve command to make an SD card image available via HTTP. The API
offers the flight table, flight parse statistics, mission export, and search.
For search, an index directory needs to be set. The index then covers all log
messages below the parse output directory, and is kept up to date while flights
are parsed into it.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.addCardSettings(&s.Runner)
	s.AddSetting(&s.Address, "address", "a", "", ":8888",
		"listen address", false)
	s.AddSetting(&s.Output, "output", "o", "", "out",
		"parse output directory", false)
	s.AddSetting(&s.Index, "index", "x", "", "",
		"search index directory; search is off if not set", false)
	s.AddSetting(&s.ClassBits, "class-bits", "b", "", 6,
		"number of low bits in record type word holding the record class",
		false)

	return s
}

//
type Serve struct {
	Runner
	Card
	//
	Address   string
	Output    string
	Index     string
	ClassBits int
}

//
func (s *Serve) Run() error {

	s.ParseSettings()

	l, err := layout(s.ClassBits)
	if err != nil {
		return err
	}

	img, partition, err := s.open()
	if err != nil {
		return err
	}
	defer img.Close()

	var index *repo.Index
	if s.Index != "" {
		if err := os.MkdirAll(s.Output, 0755); err != nil {
			return err
		}
		if index, err = repo.NewIndex(s.Index, s.Output); err != nil {
			return err
		}
		defer index.Stop()
		if err := index.Start(); err != nil {
			return err
		}
	}

	server := control.NewAPIServer(s.Address, img, partition, l, index)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		if err := server.Stop(); err != nil {
			log.Errorf("error stopping API server: %v", err)
		}
	}()

	return server.Serve()
}
