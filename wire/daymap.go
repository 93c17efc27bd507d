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

// ErrCorruptDayMap is returned when a day-map file's length is not a
// multiple of the 16-byte record size.
var ErrCorruptDayMap = errors.New("corrupt")

// DayMapEntry is one (epoch, bucket-count) record from a day-map file.
type DayMapEntry struct {
	Epoch     uint64
	NoBuckets uint64
}

// DecodeDayMapFile parses a stream of 16-byte (epoch, no_buckets) records.
func DecodeDayMapFile(data []byte) ([]DayMapEntry, error) {
	if len(data)%16 != 0 {
		return nil, ErrCorruptDayMap
	}
	entries := make([]DayMapEntry, 0, len(data)/16)
	for o := 0; o < len(data); o += 16 {
		entries = append(entries, DayMapEntry{
			Epoch:     binary.LittleEndian.Uint64(data[o : o+8]),
			NoBuckets: binary.LittleEndian.Uint64(data[o+8 : o+16]),
		})
	}
	return entries, nil
}

// EncodeDayMapFile renders a slice of entries back to wire bytes.
func EncodeDayMapFile(entries []DayMapEntry) []byte {
	out := make([]byte, 16*len(entries))
	for i, e := range entries {
		o := i * 16
		binary.LittleEndian.PutUint64(out[o:o+8], e.Epoch)
		binary.LittleEndian.PutUint64(out[o+8:o+16], e.NoBuckets)
	}
	return out
}
