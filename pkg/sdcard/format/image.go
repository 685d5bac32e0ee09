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

package format

import (
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"

	log "github.com/sirupsen/logrus"
)

/*
	Image is a card image opened for reading. Card images are accessed at
	arbitrary sector offsets, so compressed images are inflated into a
	temporary file first, which is removed again on Close.
*/
type Image struct {
	file *os.File
	temp bool
	//
	name       string
	typ        string
	compressor string
	size       int64
}

// OpenImage opens the card image at path. Compression is detected by file
// extension, and may be gzip, zip, or 7z. Archives need to contain the image
// as their first entry.
func OpenImage(path string) (*Image, error) {

	name, typ, compressor := SplitNameTypeCompressor(path)

	log.WithFields(log.Fields{
		"path":       path,
		"compressor": compressor,
	}).Debug("opening card image")

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var ret *Image

	switch compressor {

	case "gzip":
		fallthrough
	case "gz":
		ret, err = inflateGZip(f)

	case "zip":
		ret, err = inflateZip(f, false)

	case "7z":
		ret, err = inflateZip(f, true)

	case "":
		ret = &Image{file: f, name: name, typ: typ}
		err = ret.stat()
	}

	if ret == nil && err == nil {
		err = fmt.Errorf("unsupported compressor: %s", compressor)
	}

	// compressed images have been inflated into a temporary file
	if compressor != "" || err != nil {
		f.Close()
	}

	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"compressor": ret.compressor,
		"name":       ret.name,
		"type":       ret.typ,
		"size":       ret.size}).Debug("card image opened")

	return ret, nil
}

//
func (i *Image) Read(p []byte) (n int, err error) {
	return i.file.Read(p)
}

//
func (i *Image) Seek(offset int64, whence int) (int64, error) {
	return i.file.Seek(offset, whence)
}

//
func (i *Image) ReadAt(p []byte, off int64) (n int, err error) {
	return i.file.ReadAt(p, off)
}

//
func (i *Image) Close() error {
	err := i.file.Close()
	if i.temp {
		if e := os.Remove(i.file.Name()); e != nil && err == nil {
			err = e
		}
	}
	return err
}

//
func (i *Image) Name() string {
	return i.name
}

//
func (i *Image) Type() string {
	return i.typ
}

//
func (i *Image) Compressor() string {
	return i.compressor
}

// Size returns the size of the (uncompressed) image in bytes.
func (i *Image) Size() int64 {
	return i.size
}

//
func (i *Image) stat() error {
	fi, err := i.file.Stat()
	if err != nil {
		return err
	}
	i.size = fi.Size()
	return nil
}

// inflate copies the uncompressed image from r into a temporary file.
func inflate(r io.Reader, entry, compressor string) (*Image, error) {

	tmp, err := os.CreateTemp("", "sdctl-*.img")
	if err != nil {
		return nil, err
	}

	ret := &Image{file: tmp, temp: true, compressor: compressor}
	ret.name, ret.typ, _ = SplitNameTypeCompressor(entry)

	if ret.size, err = io.Copy(tmp, r); err != nil {
		ret.Close()
		return nil, fmt.Errorf("error inflating %s image: %v", compressor, err)
	}

	if _, err = tmp.Seek(0, io.SeekStart); err != nil {
		ret.Close()
		return nil, err
	}

	return ret, nil
}

//
func inflateGZip(f *os.File) (*Image, error) {

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gzr.Close()

	entry := gzr.Name
	if entry == "" {
		entry = strings.TrimSuffix(filepath.Base(f.Name()), filepath.Ext(f.Name()))
	}

	return inflate(gzr, entry, "gzip")
}

//
func inflateZip(f *os.File, zip7 bool) (*Image, error) {

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var entry string
	var rc io.ReadCloser

	if zip7 {
		zr, err := sevenzip.NewReader(f, fi.Size())
		if err != nil {
			return nil, err
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("empty 7-zip archive")
		}
		if len(zr.File) > 1 {
			log.Warn("7-zip archive has more than one entry, using first")
		}
		entry = zr.File[0].Name
		if rc, err = zr.File[0].Open(); err != nil {
			return nil, err
		}

	} else {
		zr, err := zip.NewReader(f, fi.Size())
		if err != nil {
			return nil, err
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("empty zip archive")
		}
		if len(zr.File) > 1 {
			log.Warn("zip archive has more than one entry, using first")
		}
		entry = zr.File[0].Name
		if rc, err = zr.File[0].Open(); err != nil {
			return nil, err
		}
	}

	defer rc.Close()

	compressor := "zip"
	if zip7 {
		compressor = "7z"
	}

	return inflate(rc, entry, compressor)
}

//
func SplitNameTypeCompressor(file string) (name, typ, compressor string) {

	_, n := filepath.Split(file)

	for {
		raw := filepath.Ext(n)
		if raw == "" {
			name = n
			break
		}

		ext := strings.ToLower(strings.TrimPrefix(raw, "."))

		switch ext {

		case "img":
			fallthrough
		case "bin":
			fallthrough
		case "raw":
			fallthrough
		case "dd":
			typ = ext

		case "gz":
			fallthrough
		case "gzip":
			fallthrough
		case "zip":
			fallthrough
		case "7z":
			compressor = ext

		default:
			// not an image extension, e.g. a dot in a date
			name = n
			return name, typ, compressor
		}

		n = strings.TrimSuffix(n, raw)
	}

	return name, typ, compressor
}
