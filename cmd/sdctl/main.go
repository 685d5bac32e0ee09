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

package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cuinspace/sdctl/pkg/run"
)

//
func main() {

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	log.SetOutput(os.Stderr)

	root := &cobra.Command{
		Use:   "sdctl",
		Short: "flight computer SD card tool",
		Long: `
sdctl reads SD card images written by the CU InSpace flight computer. It lists
the recorded flights, decodes them into per-stream CSV files, writes mission
images holding selected flights, and searches flight log messages.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		&run.NewInfo().Command,
		&run.NewParse().Command,
		&run.NewExport().Command,
		&run.NewSearch().Command,
		&run.NewServe().Command,
		&run.NewVersion().Command,
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
