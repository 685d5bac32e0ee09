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
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/cuinspace/sdctl/pkg/repo"
)

//
func NewSearch() *Search {

	s := &Search{}
	s.Runner = *NewRunner(
		`search -t|--term {search term} [-n|--items {max results}]
      [-a|--address {address} | -o|--output {dir} -x|--index {dir}]`,
		"search log messages of parsed flights",
		`
Use the search command to find log messages in parsed flights. With an address,
the search is run by an sdctl server. Otherwise, the index in the index
directory is brought up to date with the parse output directory, and searched.
The search term uses query string syntax, e.g. 'apogee +flight:2'.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddSetting(&s.Term, "term", "t", "", nil,
		"search term; used to search through log messages", true)
	s.AddSetting(&s.Items, "items", "n", "", 100,
		"max number of search results to return", false)
	s.AddSetting(&s.Address, "address", "a", "", "",
		"address of sdctl server to query", false)
	s.AddSetting(&s.Output, "output", "o", "", "out",
		"parse output directory", false)
	s.AddSetting(&s.Index, "index", "x", "", "index",
		"search index directory", false)

	return s
}

//
type Search struct {
	Runner
	//
	Term    string
	Items   int
	Address string
	Output  string
	Index   string
}

//
func (s *Search) Run() error {

	s.ParseSettings()

	if s.Address != "" {
		resp, err := apiCall(s.Address, "GET",
			fmt.Sprintf("/search?items=%d&term=%s", s.Items,
				url.QueryEscape(s.Term)), false, nil)
		if err != nil {
			return err
		}
		defer resp.Close()

		fmt.Println()
		_, err = io.Copy(os.Stdout, resp)
		return err
	}

	index, err := repo.NewIndex(s.Index, s.Output)
	if err != nil {
		return err
	}
	defer index.Stop()

	if err := index.Refresh(); err != nil {
		return err
	}

	res, err := index.Search(s.Term, s.Items)
	if err != nil {
		return err
	}

	fmt.Println()
	for _, h := range res.Hits {
		fmt.Println(h)
	}
	fmt.Printf("\ntotal hits: %d", res.Total)
	if !res.Complete {
		fmt.Printf(", showing first %d", len(res.Hits))
	}
	fmt.Println()

	return nil
}
