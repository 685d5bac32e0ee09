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

package repo

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	log "github.com/sirupsen/logrus"
)

//
type SearchResult struct {
	Hits     []*Message `json:"hits"`
	Total    uint64     `json:"total"`
	Complete bool       `json:"complete"`
}

// Search runs a query string query against the log messages, e.g.
// "apogee +flight:2". Hits are ordered by flight and mission time.
func (i *Index) Search(term string, max int) (*SearchResult, error) {

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("no search term")
	}

	if max < 1 {
		return nil, fmt.Errorf("invalid number of items: %d", max)
	}

	log.Debugf("searching for '%s'", term)
	query := bleve.NewQueryStringQuery(term)
	req := bleve.NewSearchRequestOptions(query, max+1, 0, false)
	req.Fields = []string{"source", "flight", "time", "message"}
	req.SortBy([]string{"flight", "time", "_id"})

	res, err := i.index.Search(req)
	if err != nil {
		return nil, err
	}

	ret := &SearchResult{
		Hits:     make([]*Message, len(res.Hits)),
		Total:    res.Total,
		Complete: true}

	for ix, h := range res.Hits {
		ret.Hits[ix] = toMessage(h)
	}

	if len(ret.Hits) > max {
		ret.Hits = ret.Hits[:max]
		ret.Complete = false
	}

	return ret, nil
}

//
func toMessage(h *search.DocumentMatch) *Message {

	ret := &Message{Source: sourceOf(h.ID)}

	if v, ok := h.Fields["flight"].(float64); ok {
		ret.Flight = int(v)
	}
	if v, ok := h.Fields["time"].(float64); ok {
		ret.Time = v
	}
	if v, ok := h.Fields["message"].(string); ok {
		ret.Message = v
	}

	return ret
}

//
func (m *Message) String() string {
	return fmt.Sprintf("flight %d, %10.3f ms: %s", m.Flight, m.Time, m.Message)
}
