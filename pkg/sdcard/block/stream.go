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

package block

import (
	"errors"
	"fmt"
	"io"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
	"github.com/cuinspace/sdctl/pkg/sdcard/superblock"
)

// ErrFrameOverrun signals a corrupt record frame.
var ErrFrameOverrun = errors.New("block: record frame overruns flight")

// FrameError describes a record whose length is invalid or exceeds the bytes
// left in its flight.
type FrameError struct {
	// offset of the record relative to flight start
	Offset int64
	Length int
	Budget int64
}

//
func (e *FrameError) Error() string {
	if e.Length < HeaderSize {
		return fmt.Sprintf("%v: record at offset %d has invalid length %d",
			ErrFrameOverrun, e.Offset, e.Length)
	}
	return fmt.Sprintf(
		"%v: record of length %d at offset %d would read %d bytes from %d byte flight",
		ErrFrameOverrun, e.Length, e.Offset, e.Offset+int64(e.Length), e.Budget)
}

//
func (e *FrameError) Unwrap() error {
	return ErrFrameOverrun
}

// Record is one framed record of a flight.
type Record struct {
	Header
	// offset relative to flight start
	Offset int64
	// header plus payload
	Raw []byte
}

//
func (r *Record) Payload() []byte {
	return r.Raw[HeaderSize:]
}

/*
	StreamReader frames the byte range of a flight into records. Next returns
	the records in storage order. It returns io.EOF once the stream ended
	cleanly, which happens when fewer than HeaderSize bytes of the flight are
	left, the source is exhausted, or a blank header is found. A record whose
	length is invalid or exceeds the flight yields a *FrameError. Errors are
	sticky, no further records are returned after one. A StreamReader cannot
	be restarted.
*/
type StreamReader struct {
	src      io.Reader
	layout   Layout
	budget   int64
	consumed int64
	err      error
}

// NewStreamReader creates a stream reader for a flight of numBlocks sectors.
// src needs to be positioned at flight start.
func NewStreamReader(src io.Reader, numBlocks uint32, l Layout) *StreamReader {
	return &StreamReader{
		src:    src,
		layout: l,
		budget: base.SectorOffset(numBlocks),
	}
}

// OpenFlight seeks rs to the start of flight f within the partition starting
// at partitionOffset, and returns a stream reader over it.
func OpenFlight(rs io.ReadSeeker, partitionOffset uint32, f superblock.Flight,
	l Layout) (*StreamReader, error) {

	start := uint64(partitionOffset) + uint64(f.FirstBlock)
	if start > uint64(^uint32(0)) {
		return nil, fmt.Errorf("flight start beyond addressable range: %d", start)
	}

	if err := base.SeekSector(rs, uint32(start)); err != nil {
		return nil, err
	}

	return NewStreamReader(rs, f.NumBlocks, l), nil
}

// Consumed returns the number of flight bytes covered by records read so far.
func (s *StreamReader) Consumed() int64 {
	return s.consumed
}

// Budget returns the size of the flight in bytes.
func (s *StreamReader) Budget() int64 {
	return s.budget
}

//
func (s *StreamReader) Next() (*Record, error) {

	if s.err != nil {
		return nil, s.err
	}

	rec, err := s.next()
	if err != nil {
		s.err = err
		return nil, err
	}

	return rec, nil
}

//
func (s *StreamReader) next() (*Record, error) {

	if s.budget-s.consumed < HeaderSize {
		return nil, io.EOF
	}

	hdr := make([]byte, HeaderSize)
	if _, err := io.ReadFull(s.src, hdr); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("error reading record header at offset %d: %w",
			s.consumed, err)
	}

	h, ok := ParseHeader(hdr, s.layout)
	if !ok {
		return nil, io.EOF
	}

	if h.Length < HeaderSize || s.consumed+int64(h.Length) > s.budget {
		return nil, &FrameError{
			Offset: s.consumed,
			Length: h.Length,
			Budget: s.budget,
		}
	}

	raw := make([]byte, h.Length)
	copy(raw, hdr)
	if _, err := io.ReadFull(s.src, raw[HeaderSize:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("error reading payload of record at offset %d: %w",
			s.consumed, err)
	}

	rec := &Record{Header: h, Offset: s.consumed, Raw: raw}
	s.consumed += int64(h.Length)

	return rec, nil
}
