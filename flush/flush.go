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

// Package flush implements the origin-locked flush writer (§4.F): the
// five-phase protocol that turns a batch.State into durable bucket objects
// and either acks every queued reply or aborts the whole batch.
package flush

import (
	"context"
	"fmt"
	"time"

	"github.com/afcowie/vaultaire/batch"
	"github.com/afcowie/vaultaire/daymap"
	"github.com/afcowie/vaultaire/objectname"
	"github.com/afcowie/vaultaire/pool"
)

// BucketSize is the §4.F rollover threshold: a bucket object that grows
// past this many bytes triggers a day-map rollover for its lane.
const BucketSize = 4 * 1024 * 1024

// Execute runs the five-phase flush for one origin's batch under that
// origin's exclusive write lock. On success every reply handle in st has
// been acknowledged; on failure no reply has been touched and the caller
// must treat the whole batch as lost (the client retries via the broker).
// bucketSize is the rollover threshold (§4.F); pass BucketSize for the
// spec default, or an operator-configured value (see config.Config).
func Execute(ctx context.Context, p pool.Pool, reg *daymap.Registry, origin string, st *batch.State, bucketSize uint64) error {
	lockKey := objectname.WriteLockLabel(origin)
	return p.ExclusiveLock(ctx, lockKey, func() error {
		return runPhases(ctx, p, reg, origin, st, bucketSize)
	})
}

func runPhases(ctx context.Context, p pool.Pool, reg *daymap.Registry, origin string, st *batch.State, bucketSize uint64) error {
	// Phase 1 — extended pre-stat + append.
	baseOffsets := make(map[batch.Key]uint64, len(st.Extended))
	type pendingAppend struct {
		key  batch.Key
		wait pool.AsyncWrite
	}
	appends := make([]pendingAppend, 0, len(st.Extended))

	for k, buf := range st.Extended {
		extKey := objectname.BucketLabel(origin, k.Bucket, k.Epoch, objectname.Extended)
		size, err := statSizeOrZero(ctx, p, extKey)
		if err != nil {
			return fmt.Errorf("flush: stat %s: %w", extKey, err)
		}
		baseOffsets[k] = size
		appends = append(appends, pendingAppend{key: k, wait: p.Append(ctx, extKey, buf)})
	}
	for _, a := range appends {
		if err := a.wait.Wait(ctx); err != nil {
			return fmt.Errorf("flush: append extended bucket for %v: %w", a.key, err)
		}
	}

	// Phase 2 — offset patching. Every key touched by either buffer gets a
	// final simple-object payload: its own simple records (if any) followed
	// by the patched closures from any pending extended entries.
	finalSimple := make(map[batch.Key][]byte, len(st.Simple))
	for _, k := range st.Keys() {
		buf := append([]byte(nil), st.Simple[k]...)
		if closures, ok := st.PendingClosures(k); ok {
			base, known := baseOffsets[k]
			if !known {
				panic(fmt.Sprintf("flush: pending closures for %v with no pre-stat base offset", k))
			}
			for _, c := range closures {
				rec := c.Resolve(base)
				buf = append(buf, rec[:]...)
			}
		}
		finalSimple[k] = buf
	}

	// Phase 3 — simple write, and stat to observe post-write size.
	type pendingWrite struct {
		key  batch.Key
		wait pool.AsyncWrite
	}
	writes := make([]pendingWrite, 0, len(finalSimple))
	for k, buf := range finalSimple {
		simpleKey := objectname.BucketLabel(origin, k.Bucket, k.Epoch, objectname.Simple)
		writes = append(writes, pendingWrite{key: k, wait: p.WriteFull(ctx, simpleKey, buf)})
	}
	for _, w := range writes {
		if err := w.wait.Wait(ctx); err != nil {
			return fmt.Errorf("flush: write simple bucket for %v: %w", w.key, err)
		}
	}

	var maxSimpleSize uint64
	for k := range finalSimple {
		simpleKey := objectname.BucketLabel(origin, k.Bucket, k.Epoch, objectname.Simple)
		size, err := statSizeOrZero(ctx, p, simpleKey)
		if err != nil {
			return fmt.Errorf("flush: post-write stat %s: %w", simpleKey, err)
		}
		if size > maxSimpleSize {
			maxSimpleSize = size
		}
	}
	var maxExtendedSize uint64
	for k, buf := range st.Extended {
		total := baseOffsets[k] + uint64(len(buf))
		if total > maxExtendedSize {
			maxExtendedSize = total
		}
	}

	// Phase 4 — acknowledge. Only after every write above succeeded.
	for _, h := range st.ReplyHandles {
		h.Success()
	}

	// Phase 5 — rollover, triggered independently per lane.
	now := uint64(time.Now().UnixNano())
	if maxSimpleSize > bucketSize {
		if dm := reg.Simple(origin); dm != nil {
			reg.RollOver(origin, dm, now, maxSimpleSize, bucketSize)
		}
	}
	if maxExtendedSize > bucketSize {
		if dm := reg.Extended(origin); dm != nil {
			reg.RollOver(origin, dm, now, maxExtendedSize, bucketSize)
		}
	}
	return nil
}

func statSizeOrZero(ctx context.Context, p pool.Pool, key string) (uint64, error) {
	stat, err := p.Stat(ctx, key).Wait(ctx)
	if err == pool.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return stat.Size, nil
}
