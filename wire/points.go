/*
Copyright (C) 2026  Andrew Cowie

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package wire

import (
	"encoding/binary"
	"errors"
)

// ErrTruncatedBurst is returned when a point burst's arithmetic overruns
// the buffer it is being decoded from.
var ErrTruncatedBurst = errors.New("truncated point burst")

// RecordHeaderSize is the fixed 24-byte (address, time, payload) header
// shared by simple and extended points.
const RecordHeaderSize = 24

// Point is a single decoded record from a point burst. For a simple point,
// PayloadLen carries the u64 value inline; for an extended point
// (Address&1), Extended carries the inline payload string and PayloadLen is
// its byte length.
type Point struct {
	Address    uint64
	Time       uint64
	PayloadLen uint64 // simple: the u64 payload value; extended: byte length
	Extended   []byte // only set for extended points
}

// IsExtended reports whether the low bit of Address marks this an extended
// point.
func (p Point) IsExtended() bool { return p.Address&1 != 0 }

// MaskedAddress strips the extended-flag bit, identifying the bucket lane.
func (p Point) MaskedAddress() uint64 { return p.Address &^ 1 }

// DecodePointBurst parses a contiguous byte stream of records. The burst is
// exhausted when the cursor reaches len(data) exactly; any arithmetic
// overrun is a decode failure and no partial result is returned.
func DecodePointBurst(data []byte) ([]Point, error) {
	var points []Point
	o := 0
	for o != len(data) {
		if o+RecordHeaderSize > len(data) {
			return nil, ErrTruncatedBurst
		}
		addr := binary.LittleEndian.Uint64(data[o : o+8])
		t := binary.LittleEndian.Uint64(data[o+8 : o+16])
		payload := binary.LittleEndian.Uint64(data[o+16 : o+24])
		o += RecordHeaderSize
		if addr&1 != 0 {
			if payload > uint64(len(data)-o) {
				return nil, ErrTruncatedBurst
			}
			str := data[o : o+int(payload)]
			points = append(points, Point{Address: addr, Time: t, PayloadLen: payload, Extended: str})
			o += int(payload)
		} else {
			points = append(points, Point{Address: addr, Time: t, PayloadLen: payload})
		}
	}
	return points, nil
}

// EncodePointBurst renders a slice of points back to wire bytes; the
// inverse of DecodePointBurst.
func EncodePointBurst(points []Point) []byte {
	out := make([]byte, 0, len(points)*RecordHeaderSize)
	var hdr [RecordHeaderSize]byte
	for _, p := range points {
		binary.LittleEndian.PutUint64(hdr[0:8], p.Address)
		binary.LittleEndian.PutUint64(hdr[8:16], p.Time)
		binary.LittleEndian.PutUint64(hdr[16:24], p.PayloadLen)
		out = append(out, hdr[:]...)
		if p.IsExtended() {
			out = append(out, p.Extended...)
		}
	}
	return out
}

// SimpleRecord renders a simple point's fixed 24-byte on-disk form.
func SimpleRecord(address, t, payload uint64) [RecordHeaderSize]byte {
	var rec [RecordHeaderSize]byte
	binary.LittleEndian.PutUint64(rec[0:8], address)
	binary.LittleEndian.PutUint64(rec[8:16], t)
	binary.LittleEndian.PutUint64(rec[16:24], payload)
	return rec
}

// DecodeSimpleRecord parses one fixed 24-byte simple record.
func DecodeSimpleRecord(rec []byte) (address, t, payload uint64, err error) {
	if len(rec) != RecordHeaderSize {
		return 0, 0, 0, ErrTruncatedBurst
	}
	return binary.LittleEndian.Uint64(rec[0:8]),
		binary.LittleEndian.Uint64(rec[8:16]),
		binary.LittleEndian.Uint64(rec[16:24]),
		nil
}

// ExtendedEntry is one length-prefixed payload string in an extended-bucket
// object.
type ExtendedEntry struct {
	Offset  uint64 // byte offset of the payload (past its length prefix) within the object
	Payload []byte
}

// EncodeExtendedEntry renders u64LE(len) ‖ str.
func EncodeExtendedEntry(payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(out[0:8], uint64(len(payload)))
	copy(out[8:], payload)
	return out
}

// DecodeExtendedStream parses a stream of (u64 len, len bytes) records,
// returning each payload with the byte offset of its value (i.e. past the
// 8-byte length prefix) within the stream.
func DecodeExtendedStream(data []byte) ([]ExtendedEntry, error) {
	var entries []ExtendedEntry
	o := 0
	for o < len(data) {
		if o+8 > len(data) {
			return nil, ErrTruncatedBurst
		}
		n := binary.LittleEndian.Uint64(data[o : o+8])
		o += 8
		if n > uint64(len(data)-o) {
			return nil, ErrTruncatedBurst
		}
		entries = append(entries, ExtendedEntry{Offset: uint64(o), Payload: data[o : o+int(n)]})
		o += int(n)
	}
	return entries, nil
}
