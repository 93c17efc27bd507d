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

// Package wire implements the little-endian framing for client operations,
// point bursts, on-disk records and the day-map file, as specified in §4.A.
package wire

import (
	"encoding/binary"
	"errors"
)

// Opcode identifies a ContentsOperation.
type Opcode uint64

const (
	OpContentsListRequest Opcode = 0x0
	OpGenerateNewAddress  Opcode = 0x1
	OpUpdateSourceTag     Opcode = 0x2
	OpRemoveSourceTag     Opcode = 0x3
)

// ErrIllegalOpcode is returned when a ContentsOperation frame carries an
// unrecognized header.
var ErrIllegalOpcode = errors.New("Illegal op code")

// ContentsOperation is a decoded client<->contents-service message.
type ContentsOperation struct {
	Op      Opcode
	Addr    uint64 // UpdateSourceTag / RemoveSourceTag
	DictRaw []byte // canonical sourcedict.Dict encoding, for tag ops
}

// EncodeContentsOperation renders an operation back to wire bytes.
func EncodeContentsOperation(op ContentsOperation) []byte {
	switch op.Op {
	case OpContentsListRequest, OpGenerateNewAddress:
		out := make([]byte, 8)
		binary.LittleEndian.PutUint64(out, uint64(op.Op))
		return out
	case OpUpdateSourceTag, OpRemoveSourceTag:
		out := make([]byte, 24+len(op.DictRaw))
		binary.LittleEndian.PutUint64(out[0:8], uint64(op.Op))
		binary.LittleEndian.PutUint64(out[8:16], op.Addr)
		binary.LittleEndian.PutUint64(out[16:24], uint64(len(op.DictRaw)))
		copy(out[24:], op.DictRaw)
		return out
	default:
		panic("wire: unknown opcode in EncodeContentsOperation")
	}
}

// DecodeContentsOperation parses a ContentsOperation frame. Inner dict bytes
// are returned undecoded; callers delegate to sourcedict.Decode and
// propagate its failure.
func DecodeContentsOperation(data []byte) (ContentsOperation, error) {
	if len(data) < 8 {
		return ContentsOperation{}, ErrIllegalOpcode
	}
	op := Opcode(binary.LittleEndian.Uint64(data[0:8]))
	switch op {
	case OpContentsListRequest, OpGenerateNewAddress:
		if len(data) != 8 {
			return ContentsOperation{}, ErrIllegalOpcode
		}
		return ContentsOperation{Op: op}, nil
	case OpUpdateSourceTag, OpRemoveSourceTag:
		if len(data) < 24 {
			return ContentsOperation{}, ErrIllegalOpcode
		}
		addr := binary.LittleEndian.Uint64(data[8:16])
		dictLen := binary.LittleEndian.Uint64(data[16:24])
		if uint64(len(data)-24) < dictLen {
			return ContentsOperation{}, ErrIllegalOpcode
		}
		dict := data[24 : 24+dictLen]
		return ContentsOperation{Op: op, Addr: addr, DictRaw: dict}, nil
	default:
		return ContentsOperation{}, ErrIllegalOpcode
	}
}
