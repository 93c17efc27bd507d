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
)

// VaultPoint is the self-describing disk record used for the internal KV
// store's extended objects (§4.A "disk record"; pool.ReadBucket does not
// use it): a VaultPrefix (u32 length) followed by the point's
// fields. The teacher's stack carries no protobuf dependency, so this is
// framed directly over encoding/binary rather than through a generated
// protobuf message — see DESIGN.md.
type VaultPoint struct {
	Address uint64
	Time    uint64
	Payload uint64 // inline value for simple points, byte length for extended
	Extra   []byte // inline extended payload, when present
}

// EncodeVaultPoint renders one VaultPrefix ‖ VaultPoint record.
func EncodeVaultPoint(p VaultPoint) []byte {
	body := make([]byte, RecordHeaderSize+len(p.Extra))
	binary.LittleEndian.PutUint64(body[0:8], p.Address)
	binary.LittleEndian.PutUint64(body[8:16], p.Time)
	binary.LittleEndian.PutUint64(body[16:24], p.Payload)
	copy(body[24:], p.Extra)

	out := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(body)))
	copy(out[4:], body)
	return out
}

// DecodeVaultStream parses sequential VaultPrefix‖VaultPoint records until
// the buffer is empty, discarding any record whose timestamp duplicates one
// already seen (first write wins).
func DecodeVaultStream(data []byte) ([]VaultPoint, error) {
	seen := make(map[uint64]struct{})
	var out []VaultPoint
	o := 0
	for o < len(data) {
		if o+4 > len(data) {
			return nil, ErrTruncatedBurst
		}
		n := binary.LittleEndian.Uint32(data[o : o+4])
		o += 4
		if int(n) < RecordHeaderSize || o+int(n) > len(data) {
			return nil, ErrTruncatedBurst
		}
		body := data[o : o+int(n)]
		o += int(n)

		addr := binary.LittleEndian.Uint64(body[0:8])
		t := binary.LittleEndian.Uint64(body[8:16])
		payload := binary.LittleEndian.Uint64(body[16:24])
		var extra []byte
		if len(body) > RecordHeaderSize {
			extra = body[RecordHeaderSize:]
		}

		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, VaultPoint{Address: addr, Time: t, Payload: payload, Extra: extra})
	}
	return out, nil
}
