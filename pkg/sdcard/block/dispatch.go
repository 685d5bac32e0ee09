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
	"fmt"

	"github.com/cuinspace/sdctl/pkg/sdcard/base"
	"github.com/cuinspace/sdctl/pkg/sdcard/data"
)

// Decoded is the result of dispatching a record.
type Decoded struct {
	Record *Record
	Block  Block
	// StreamNone for blocks that produce no output
	Stream base.Stream
}

//
func (d *Decoded) IsUnknown() bool {
	_, ok := d.Block.(*Unknown)
	return ok
}

//
type kind struct {
	class Class
	typ   uint16
}

//
type handler struct {
	decode func(r *Record) (Block, error)
	stream base.Stream
}

// telemetry records are dispatched by data block subtype instead
var handlers = map[kind]handler{
	{ClassLoggingMetadata, TypeSpacer}: {
		decodeSpacer, base.StreamNone},
	{ClassDiagnostic, TypeLogMessage}: {
		decodeLogMessage, base.StreamLogMessages},
	{ClassDiagnostic, TypeOutgoingRadioPacket}: {
		decodeRadioPacket(Outgoing), base.StreamOutgoingRadioPackets},
	{ClassDiagnostic, TypeIncomingRadioPacket}: {
		decodeRadioPacket(Incoming), base.StreamIncomingRadioPackets},
}

/*
	Dispatch decodes a record according to its class and type. Records for
	which there is no decoder yield an *Unknown block and no error. An error
	is returned only if a known record's payload is malformed, in which case
	the record is lost, but the stream it came from remains usable.
*/
func Dispatch(r *Record) (*Decoded, error) {

	if r.Class == ClassTelemetry {
		return dispatchTelemetry(r)
	}

	h, ok := handlers[kind{r.Class, r.Type}]
	if !ok {
		return unknown(r), nil
	}

	b, err := h.decode(r)
	if err != nil {
		return nil, fmt.Errorf("record at offset %d: %w", r.Offset, err)
	}

	return &Decoded{Record: r, Block: b, Stream: h.stream}, nil
}

//
func dispatchTelemetry(r *Record) (*Decoded, error) {

	if r.DataType() != data.TypeData || !data.IsKnown(r.Subtype()) {
		return unknown(r), nil
	}

	d, stream, err := data.Decode(r.Subtype(), r.Payload())
	if err != nil {
		return nil, fmt.Errorf("record at offset %d: %w", r.Offset, err)
	}

	return &Decoded{Record: r, Block: &Telemetry{Data: d}, Stream: stream}, nil
}

//
func unknown(r *Record) *Decoded {
	return &Decoded{
		Record: r,
		Block:  &Unknown{Class: r.Class, Type: r.Type, Length: r.Length},
		Stream: base.StreamNone,
	}
}
