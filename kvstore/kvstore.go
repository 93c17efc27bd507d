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

// Package kvstore implements the small address-keyed internal store (§4.H)
// used for bookkeeping such as the source-dict registry. Unlike the point
// buckets, which are append-only and first-write-wins, every key here is
// mutable and last-write wins: a WriteTo overwrites whatever was there.
package kvstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/afcowie/vaultaire/objectname"
	"github.com/afcowie/vaultaire/pool"
	"github.com/afcowie/vaultaire/sourcedict"
	"github.com/afcowie/vaultaire/wire"
)

// Entry is one (address, bytes) pair returned by EnumerateOrigin.
type Entry struct {
	Address uint64
	Data    []byte
}

// WriteTo writes bytes under (origin, address): a 24-byte simple-shaped
// record (addr=address, time=0, payload=len(bytes)) plus an extended object
// holding VaultPrefix(len) ‖ VaultPoint (§4.A's disk-record framing), both
// full overwrites (last-write-wins). Payloads at or above
// pool.CompressThreshold are LZ4-framed before they are written; ReadFrom
// reverses this transparently.
func WriteTo(ctx context.Context, p pool.Pool, origin string, address uint64, data []byte) error {
	simpleKey := objectname.InternalLabel(origin, address, objectname.Simple)
	extKey := objectname.InternalLabel(origin, address, objectname.Extended)

	stored, err := pool.CompressMaybe(data)
	if err != nil {
		return fmt.Errorf("kvstore: compress payload for %s: %w", extKey, err)
	}

	rec := wire.SimpleRecord(address, 0, uint64(len(data)))
	if err := p.WriteFull(ctx, simpleKey, rec[:]).Wait(ctx); err != nil {
		return fmt.Errorf("kvstore: write simple record for %s: %w", simpleKey, err)
	}
	vp := wire.VaultPoint{Address: address, Time: 0, Payload: uint64(len(stored)), Extra: stored}
	if err := p.WriteFull(ctx, extKey, wire.EncodeVaultPoint(vp)).Wait(ctx); err != nil {
		return fmt.Errorf("kvstore: write extended object for %s: %w", extKey, err)
	}
	return addToManifest(ctx, p, origin, address)
}

// ReadFrom reads the extended object at (origin, address), inflating it if
// it was LZ4-compressed by WriteTo, and returns the payload past its
// VaultPrefix length. pool.ErrNotFound is returned unchanged when no such
// key has ever been written.
func ReadFrom(ctx context.Context, p pool.Pool, origin string, address uint64) ([]byte, error) {
	extKey := objectname.InternalLabel(origin, address, objectname.Extended)
	data, err := p.ReadFull(ctx, extKey)
	if err != nil {
		return nil, err
	}
	points, err := wire.DecodeVaultStream(data)
	if err != nil {
		return nil, fmt.Errorf("kvstore: corrupt extended object %s: %w", extKey, err)
	}
	if len(points) != 1 {
		return nil, fmt.Errorf("kvstore: extended object %s holds %d records, want 1", extKey, len(points))
	}
	payload, err := pool.DecompressMaybe(points[0].Extra)
	if err != nil {
		return nil, fmt.Errorf("kvstore: decompress payload for %s: %w", extKey, err)
	}
	return payload, nil
}

// EnumerateOrigin returns every live (address, bytes) pair registered under
// origin, ordered by ascending address. Since the Pool interface has no
// native key-listing operation, the set of known addresses is tracked in a
// manifest object maintained by addToManifest, mirroring the teacher's
// log-manifest pattern in storage/persistence-ceph.go
// (writeLogManifest/listLogSegments) applied to a mutable key set instead
// of an append-only log.
func EnumerateOrigin(ctx context.Context, p pool.Pool, origin string) ([]Entry, error) {
	addrs, err := readManifest(ctx, p, origin)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint64]struct{}, len(addrs))
	out := make([]Entry, 0, len(addrs))
	for _, addr := range addrs {
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		data, err := ReadFrom(ctx, p, origin, addr)
		if err == pool.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Address: addr, Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// RegisterSource persists a source dict under the internal KV store (keyed
// by its content-derived address, so repeated registrations of the same
// dict are idempotent no-ops) and, separately, under its §4.C contents-hash
// bucket label so a reader resolving a burst's Addr can find the dict by
// hash without knowing its KV address. t is the point timestamp the dict
// was attached to; it only affects the window-aligned contents-hash label.
func RegisterSource(ctx context.Context, p pool.Pool, origin string, dict *sourcedict.Dict, t uint64) (address uint64, err error) {
	address = dict.Address()
	if err := WriteTo(ctx, p, origin, address, dict.Encode()); err != nil {
		return 0, err
	}
	hashKey := objectname.ContentsHashLabel(origin, dict.HashID(), t, objectname.WindowSeconds)
	if err := p.WriteFull(ctx, hashKey, wire.EncodeExtendedEntry(dict.Encode())).Wait(ctx); err != nil {
		return 0, fmt.Errorf("kvstore: write contents-hash label %s: %w", hashKey, err)
	}
	return address, nil
}

func addToManifest(ctx context.Context, p pool.Pool, origin string, address uint64) error {
	manifestKey := objectname.ManifestLabel(origin)
	return p.ExclusiveLock(ctx, manifestKey, func() error {
		addrs, err := readManifest(ctx, p, origin)
		if err != nil {
			return err
		}
		for _, a := range addrs {
			if a == address {
				return nil
			}
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], address)
		return p.Append(ctx, manifestKey, buf[:]).Wait(ctx)
	})
}

func readManifest(ctx context.Context, p pool.Pool, origin string) ([]uint64, error) {
	manifestKey := objectname.ManifestLabel(origin)
	data, err := p.ReadFull(ctx, manifestKey)
	if err == pool.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("kvstore: manifest %s has non-8-aligned length %d", manifestKey, len(data))
	}
	addrs := make([]uint64, 0, len(data)/8)
	for o := 0; o < len(data); o += 8 {
		addrs = append(addrs, binary.LittleEndian.Uint64(data[o:o+8]))
	}
	return addrs, nil
}
