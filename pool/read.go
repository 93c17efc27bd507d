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
package pool

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/afcowie/vaultaire/objectname"
)

// ReadPoint is one reconstructed record from a simple-bucket read, with
// its extended payload (if any) already resolved.
type ReadPoint struct {
	Address uint64
	Time    uint64
	Value   uint64 // simple points only
	Extra   []byte // extended points only
}

// ReadBucket reads a simple-bucket object, follows every extended point's
// inlined offset into the matching extended object, and deduplicates by
// timestamp keeping the first write (§3 invariant 5, §8 idempotence).
//
// This closes the gap §1 leaves open ("no query/aggregation engine") just
// enough to make the on-disk layout end-to-end testable, without building
// a query engine: it is a single linear pass, no indexing, no predicates.
func ReadBucket(ctx context.Context, p Pool, origin string, bucket, epoch uint64) ([]ReadPoint, error) {
	simpleKey := objectname.BucketLabel(origin, bucket, epoch, objectname.Simple)
	simpleData, err := p.ReadFull(ctx, simpleKey)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(simpleData)%24 != 0 {
		return nil, fmt.Errorf("pool: simple bucket %s has non-24-aligned length %d", simpleKey, len(simpleData))
	}

	var extendedData []byte
	extendedKey := objectname.BucketLabel(origin, bucket, epoch, objectname.Extended)

	seen := make(map[uint64]struct{}, len(simpleData)/24)
	out := make([]ReadPoint, 0, len(simpleData)/24)
	for o := 0; o < len(simpleData); o += 24 {
		addr := binary.LittleEndian.Uint64(simpleData[o : o+8])
		t := binary.LittleEndian.Uint64(simpleData[o+8 : o+16])
		payload := binary.LittleEndian.Uint64(simpleData[o+16 : o+24])

		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		if addr&1 == 0 {
			out = append(out, ReadPoint{Address: addr, Time: t, Value: payload})
			continue
		}

		if extendedData == nil {
			extendedData, err = p.ReadFull(ctx, extendedKey)
			if err != nil {
				return nil, fmt.Errorf("pool: extended bucket %s: %w", extendedKey, err)
			}
		}
		offset := payload
		if offset+8 > uint64(len(extendedData)) {
			return nil, fmt.Errorf("pool: extended offset %d out of range for %s", offset, extendedKey)
		}
		length := binary.LittleEndian.Uint64(extendedData[offset : offset+8])
		start := offset + 8
		if start+length > uint64(len(extendedData)) {
			return nil, fmt.Errorf("pool: extended payload at %d out of range for %s", offset, extendedKey)
		}
		out = append(out, ReadPoint{Address: addr, Time: t, Extra: extendedData[start : start+length]})
	}
	return out, nil
}
