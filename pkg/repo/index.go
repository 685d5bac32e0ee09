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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
	"github.com/cuinspace/sdctl/pkg/sink"
	"github.com/cuinspace/sdctl/pkg/util"
)

//
var flightDir = regexp.MustCompile(`^flight_(\d+)$`)

//
func NewIndex(base, repo string) (*Index, error) {
	if ret, err := createOrOpen(base, repo); err != nil {
		return nil, err
	} else {
		return ret, nil
	}
}

//
func newMapping() mapping.IndexMapping {

	source := bleve.NewTextFieldMapping()
	source.Analyzer = keyword.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("source", source)
	doc.AddFieldMappingsAt("message", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("flight", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("time", bleve.NewNumericFieldMapping())

	ret := bleve.NewIndexMapping()
	ret.DefaultMapping = doc
	return ret
}

//
func createOrOpen(base, repo string) (*Index, error) {

	var err error
	i := &Index{}

	if i.base, err = filepath.Abs(base); err != nil {
		return nil, err
	}
	if i.repo, err = filepath.Abs(repo); err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{"base": i.base, "repo": i.repo})

	if _, err := os.Stat(i.base); err != nil {
		if os.IsNotExist(err) {
			logger.Info("creating new index")
			i.index, err = bleve.New(i.base, newMapping())
		}

		if err != nil {
			logger.Errorf("cannot create index: %v", err)
			return nil, err
		}

		logger.Info("new index created")
		i.empty = true

	} else {
		logger.Info("opening index")
		i.index, err = bleve.Open(i.base)
		if err != nil {
			logger.Errorf("cannot open index: %v", err)
			return nil, err
		}

		logger.Info("index opened")
	}

	i.batch = i.index.NewBatch()
	return i, nil
}

// Message is the indexed form of one log message.
type Message struct {
	Source  string  `json:"source"`
	Flight  int     `json:"flight"`
	Time    float64 `json:"time"`
	Message string  `json:"message"`
}

/*
	Index is a full text index over the log messages of all flights parsed
	into the repo directory. Each message is a document, identified by its
	source file relative to the repo, and its row number.
*/
type Index struct {
	base    string
	repo    string
	stopped bool
	//
	index   bleve.Index
	empty   bool
	watcher *util.DirWatcher
	//
	batch      *bleve.Batch
	batchCount int
}

// Refresh brings the index in line with the current content of the repo.
func (i *Index) Refresh() error {

	start := time.Now()
	log.Info("pruning index")
	if err := i.prune(); err != nil {
		return fmt.Errorf("error pruning index: %v", err)
	}
	log.WithField(
		"duration", time.Now().Sub(start)).Info("index pruning finished")

	start = time.Now()
	log.Info("updating index")
	if err := i.update(); err != nil {
		return fmt.Errorf("error updating index: %v", err)
	}
	log.WithField(
		"duration", time.Now().Sub(start)).Info("index update finished")

	return i.batched(true)
}

// Start refreshes the index, and keeps it updated while flights are parsed
// into the repo, until Stop is called.
func (i *Index) Start() error {

	if err := i.Refresh(); err != nil {
		return err
	}

	if err := i.startWatching(); err != nil {
		return fmt.Errorf("error starting repo watcher: %v", err)
	}

	log.Info("index ready")
	return nil
}

//
func (i *Index) Stop() {

	if i.watcher != nil {
		i.watcher.Stop()
	}

	if i.index != nil {
		i.index.Close()
	}

	i.stopped = true
}

//
func (i *Index) prune() error {

	if i.empty {
		return nil
	}

	ix, err := i.index.Advanced()
	if err != nil {
		return err
	}

	rd, err := ix.Reader()
	if err != nil {
		return err
	}
	defer rd.Close()

	docs, err := rd.DocIDReaderAll()
	if err != nil {
		return err
	}
	defer docs.Close()

	for {
		d, err := docs.Next()
		if err != nil {
			return err
		}
		if d == nil {
			return nil
		}
		id, err := rd.ExternalID(d)
		if err != nil {
			return err
		}
		src := sourceOf(id)
		if _, err := os.Stat(filepath.Join(i.repo, src)); os.IsNotExist(err) {
			log.WithField("id", id).Debug("removing stale message from index")
			i.batch.Delete(id)
			if err := i.batched(false); err != nil {
				return err
			}
		}
	}
}

//
func (i *Index) update() error {

	var lastMod time.Time
	if !i.empty {
		if store, err := os.Stat(filepath.Join(i.base, "store")); err == nil {
			lastMod = store.ModTime()
			log.Debugf("last index mod time: %v", lastMod)
		}
	}

	i.empty = false

	return filepath.Walk(i.repo,

		func(path string, info os.FileInfo, err error) error {

			if i.stopped {
				return fmt.Errorf("forced exit")
			}

			if err != nil {
				return err
			}

			if info.IsDir() {
				if isPartial(path) {
					return filepath.SkipDir
				}
				return nil
			}

			if info.ModTime().After(lastMod) {
				return i.addSource(i.makeRelative(path))
			}

			return nil
		})
}

//
func (i *Index) startWatching() error {
	log.Info("starting index repo watcher")
	var err error
	if i.watcher, err = util.NewDirWatcher(i.repo, isPartial); err != nil {
		return err
	}
	return i.watcher.Start(5*time.Second, i.watchEvent, i.flushEvent)
}

//
func (i *Index) watchEvent(evt fsnotify.Event) error {

	rel := i.makeRelative(evt.Name)
	log.WithFields(log.Fields{"path": rel, "op": evt.Op}).Debug("index update")

	switch {

	case evt.Op&fsnotify.Create != 0:
		info, err := os.Stat(evt.Name)
		if err != nil {
			log.Errorf("cannot add new entry: %v", err)
			return nil
		}
		// a finished flight is moved into place as a whole
		if info.IsDir() {
			return filepath.Walk(evt.Name,
				func(path string, info os.FileInfo, err error) error {
					if err == nil && !info.IsDir() {
						return i.addSource(i.makeRelative(path))
					}
					return err
				})
		}
		return i.addSource(rel)

	case evt.Op&(fsnotify.Rename|fsnotify.Remove) != 0:
		return i.removeSource(rel)

	default:
		log.Debug("no index update required")
	}

	return nil
}

//
func (i *Index) flushEvent() error {
	return i.batched(true)
}

// addSource indexes the messages of a log messages file. Other files are
// ignored.
func (i *Index) addSource(path string) error {

	src := filepath.ToSlash(path)
	dir, file := filepath.Split(path)
	if file != string(base.StreamLogMessages) {
		return nil
	}

	m := flightDir.FindStringSubmatch(filepath.Base(filepath.Clean(dir)))
	if m == nil {
		log.WithField("file", src).Debug("not in a flight directory, skipping")
		return nil
	}
	flight, _ := strconv.Atoi(m[1])

	logger := log.WithField("file", src)
	logger.Debug("adding log messages to index")

	f, err := os.Open(filepath.Join(i.repo, path))
	if err != nil {
		logger.Errorf("cannot open: %v", err)
		return err
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = 2

	for row := 0; ; row++ {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Errorf("cannot read row %d: %v", row, err)
			return err
		}
		if row == 0 {
			// header
			continue
		}

		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			logger.Warnf("invalid mission time in row %d: %v", row, err)
		}

		if err := i.batch.Index(docID(src, row), Message{
			Source:  src,
			Flight:  flight,
			Time:    t,
			Message: rec[1],
		}); err != nil {
			logger.Errorf("failed to batch entry add: %v", err)
			return err
		}

		if err := i.batched(false); err != nil {
			return err
		}
	}

	return nil
}

// removeSource removes all messages from the given file, or from all files
// below it if it is a directory.
func (i *Index) removeSource(path string) error {

	src := filepath.ToSlash(path)
	log.WithField("path", src).Debug("removing deleted entries from index")

	if err := i.batched(true); err != nil {
		return err
	}

	exact := bleve.NewTermQuery(src)
	exact.SetField("source")
	below := bleve.NewPrefixQuery(strings.TrimSuffix(src, "/") + "/")
	below.SetField("source")
	query := bleve.NewDisjunctionQuery(exact, below)

	for {
		res, err := i.index.Search(
			bleve.NewSearchRequestOptions(query, 1000, 0, false))
		if err != nil {
			return err
		}
		if len(res.Hits) == 0 {
			return nil
		}
		for _, h := range res.Hits {
			i.batch.Delete(h.ID)
		}
		if err := i.batched(true); err != nil {
			return err
		}
	}
}

// This is not thread safe. However, after setting up an index instance, add and
// remove are only ever called from the dir watcher, no concurrency.
func (i *Index) batched(flush bool) error {

	if i.batchCount++; flush || i.batchCount > 100 {
		log.Debug("flushing pending index actions")
		if err := i.index.Batch(i.batch); err != nil {
			log.Errorf("failed to execute index batch: %v", err)
			return err
		}
		i.batch = i.index.NewBatch()
		i.batchCount = 0
	}

	return nil
}

//
func (i *Index) makeRelative(path string) string {
	if len(path) > len(i.repo) && strings.HasPrefix(path, i.repo) {
		return path[len(i.repo)+1:]
	}
	return path
}

//
func docID(source string, row int) string {
	return fmt.Sprintf("%s#%d", source, row)
}

//
func sourceOf(id string) string {
	if ix := strings.LastIndex(id, "#"); ix > -1 {
		return id[:ix]
	}
	return id
}

//
func isPartial(path string) bool {
	return strings.HasSuffix(filepath.Base(path), sink.PartialSuffix)
}
