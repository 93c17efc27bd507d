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

// Package contents implements the minimal handler behind §4.A's
// ContentsOperation wire format: the contents service itself is out of
// scope (§1), but its wire format is in scope (§6), and SourceDict
// registration needs a concrete home to be testable end-to-end. This
// closes that gap using kvstore.RegisterSource and wire.AddressGenerator.
package contents

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/afcowie/vaultaire/kvstore"
	"github.com/afcowie/vaultaire/pool"
	"github.com/afcowie/vaultaire/sourcedict"
	"github.com/afcowie/vaultaire/wire"
)

// Handler answers decoded ContentsOperation requests for one origin.
type Handler struct {
	pool      pool.Pool
	origin    string
	addresses *wire.AddressGenerator
}

// NewHandler returns a Handler backed by p for origin.
func NewHandler(p pool.Pool, origin string) *Handler {
	return &Handler{pool: p, origin: origin, addresses: wire.NewAddressGenerator()}
}

// Handle dispatches op to its operation and returns the raw reply body: an
// 8-byte address for GenerateNewAddress; for ContentsListRequest, each
// entry as u64 address ‖ u64 length ‖ bytes; otherwise empty on success.
func (h *Handler) Handle(ctx context.Context, op wire.ContentsOperation, t uint64) ([]byte, error) {
	switch op.Op {
	case wire.OpGenerateNewAddress:
		addr := h.addresses.Next()
		var out [8]byte
		binary.LittleEndian.PutUint64(out[:], addr)
		return out[:], nil

	case wire.OpUpdateSourceTag:
		dict, err := sourcedict.Decode(op.DictRaw)
		if err != nil {
			return nil, fmt.Errorf("contents: decode source dict: %w", err)
		}
		if _, err := kvstore.RegisterSource(ctx, h.pool, h.origin, dict, t); err != nil {
			return nil, err
		}
		return nil, nil

	case wire.OpRemoveSourceTag:
		// The internal store has no delete; tombstone by overwriting the
		// address with an empty dict, matching kvstore's "mutable,
		// last-write-wins" semantics (§4.H).
		if err := kvstore.WriteTo(ctx, h.pool, h.origin, op.Addr, nil); err != nil {
			return nil, err
		}
		return nil, nil

	case wire.OpContentsListRequest:
		entries, err := kvstore.EnumerateOrigin(ctx, h.pool, h.origin)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, len(entries)*16)
		for _, e := range entries {
			var hdr [16]byte
			binary.LittleEndian.PutUint64(hdr[0:8], e.Address)
			binary.LittleEndian.PutUint64(hdr[8:16], uint64(len(e.Data)))
			out = append(out, hdr[:]...)
			out = append(out, e.Data...)
		}
		return out, nil

	default:
		return nil, wire.ErrIllegalOpcode
	}
}
