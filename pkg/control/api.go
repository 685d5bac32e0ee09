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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/cuinspace/sdctl/pkg/repo"
	"github.com/cuinspace/sdctl/pkg/sdcard/block"
)

const imageLockTimeout = 10 * time.Second

//
type APIServer interface {
	Serve() error
	Stop() error
}

/*
	NewAPIServer creates an API server for the card image img, whose flight
	data partition starts at sector partition. index may be nil, in which
	case search is not available.
*/
func NewAPIServer(addr string, img io.ReadSeeker, partition uint32,
	l block.Layout, index *repo.Index) APIServer {
	return newAPI(addr, img, partition, l, index)
}

//
func newAPI(addr string, img io.ReadSeeker, partition uint32, l block.Layout,
	index *repo.Index) *api {

	a := &api{
		address:   addr,
		image:     img,
		partition: partition,
		layout:    l,
		index:     index,
		lock:      make(chan bool, 1),
	}

	a.router = mux.NewRouter().StrictSlash(true)
	a.addRoute("superblock", "GET", "/superblock", a.superblock)
	a.addRoute("flight", "GET", "/flight/{num:[0-9]+}", a.flight)
	a.addRoute("export", "GET", "/export", a.export)
	a.addRoute("search", "GET", "/search", a.search)
	a.addRoute("version", "GET", "/version", a.version)

	return a
}

//
type api struct {
	address   string
	image     io.ReadSeeker
	partition uint32
	layout    block.Layout
	index     *repo.Index
	//
	lock   chan bool
	router *mux.Router
	server *http.Server
}

//
func (a *api) addRoute(name, method, pattern string, handler http.HandlerFunc) {
	a.router.Methods(method).Path(pattern).Name(name).Handler(
		logged(handler, name))
}

//
func (a *api) Serve() error {

	log.WithField("address", a.address).Info("API server starting")

	a.server = &http.Server{
		Addr:         a.address,
		Handler:      a.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	if err := a.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	log.Info("API server stopped")
	return nil
}

//
func (a *api) Stop() error {
	if a.server == nil {
		return nil
	}
	log.Info("API server stopping")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}

// lockImage serializes access to the image, handlers seek on it. Returns false
// and replies with an error if the image stays busy.
func (a *api) lockImage(w http.ResponseWriter) bool {
	select {
	case a.lock <- true:
		return true
	case <-time.After(imageLockTimeout):
		handleError(fmt.Errorf("image busy"), http.StatusLocked, w)
		return false
	}
}

//
func (a *api) unlockImage() {
	<-a.lock
}

//
func logged(h http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, req)
		log.WithFields(log.Fields{
			"method":   req.Method,
			"uri":      req.RequestURI,
			"name":     name,
			"duration": time.Since(start),
		}).Debug("API call")
	})
}

//
func getArg(req *http.Request, arg string) string {
	return req.URL.Query().Get(arg)
}

//
func getIntArg(req *http.Request, arg string, def int) (int, error) {
	v := getArg(req, arg)
	if v == "" {
		return def, nil
	}
	ret, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid value for %s: '%s'", arg, v)
	}
	return ret, nil
}

//
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

//
func sendReply(body []byte, statusCode int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendJSONReply(obj interface{}, statusCode int, w http.ResponseWriter) {
	body, err := json.Marshal(obj)
	if handleError(err, http.StatusInternalServerError, w) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Errorf("problem sending JSON reply: %v", err)
	}
}

// sendStreamReply copies r into the response, and closes it when done.
func sendStreamReply(r io.ReadCloser, statusCode int, w http.ResponseWriter) {
	defer r.Close()
	w.WriteHeader(statusCode)
	if _, err := io.Copy(w, r); err != nil {
		log.Errorf("problem sending stream reply: %v", err)
	}
}

//
func handleError(e error, statusCode int, w http.ResponseWriter) bool {
	if e == nil {
		return false
	}
	log.Errorf("%v", e)
	sendReply([]byte(e.Error()), statusCode, w)
	return true
}
