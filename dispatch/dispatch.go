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

// Package dispatch implements the process-wide dispatcher actor (§4.G): it
// owns the origin->batcher_channel map, spawning a batcher on demand and
// routing every ingress frame to the one actor that owns that origin's
// BatchState.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/launix-de/NonLockingReadMap"

	"github.com/afcowie/vaultaire/batcher"
	"github.com/afcowie/vaultaire/broker"
	"github.com/afcowie/vaultaire/daymap"
	"github.com/afcowie/vaultaire/pool"
)

// mailboxEntry is the value type stored in the dispatcher's origin table.
// NonLockingReadMap keys every entry by the KeyGetter it implements, so the
// origin string rides along with the channel it addresses.
type mailboxEntry struct {
	origin string
	ch     batcher.Mailbox
}

func (e mailboxEntry) GetKey() string   { return e.origin }
func (e mailboxEntry) ComputeSize() uint { return uint(len(e.origin)) + 8 }

// Dispatcher routes ingress frames to a per-origin batcher, spawning one
// the first time an origin is seen and lazily dropping the map entry once
// a batcher seals itself. The origin table is read on every dispatched
// frame and written only on spawn or seal, so it is kept in a
// NonLockingReadMap rather than a mutex-guarded map: lookups never block
// behind a writer rebuilding the table.
type Dispatcher struct {
	ctx         context.Context
	registry    *daymap.Registry
	pool        pool.Pool
	batchPeriod time.Duration
	bucketSize  uint64

	channels NonLockingReadMap.NonLockingReadMap[mailboxEntry, string]
}

// New returns a Dispatcher whose spawned batchers run for the lifetime of
// ctx.
func New(ctx context.Context, reg *daymap.Registry, p pool.Pool, batchPeriod time.Duration, bucketSize uint64) *Dispatcher {
	return &Dispatcher{
		ctx:         ctx,
		registry:    reg,
		pool:        p,
		batchPeriod: batchPeriod,
		bucketSize:  bucketSize,
		channels:    NonLockingReadMap.New[mailboxEntry, string](),
	}
}

// Dispatch routes f to its origin's batcher, spawning one if none exists
// yet or if the existing one has sealed (§4.G step 1-2).
func (d *Dispatcher) Dispatch(f broker.Frame) {
	if entry := d.channels.Get(f.Origin); entry != nil {
		if d.trySend(entry.ch, f) {
			return
		}
		d.channels.Remove(f.Origin)
	}

	d.spawnAndSend(f)
}

func (d *Dispatcher) spawnAndSend(f broker.Frame) {
	ch := make(batcher.Mailbox, 1) // bounded single-slot, per §4.G
	act := batcher.New(f.Origin, ch, d.registry, d.pool, d.batchPeriod, d.bucketSize)
	act.OnSeal = func(origin string) {
		if cur := d.channels.Get(origin); cur != nil && sameChan(cur.ch, ch) {
			d.channels.Remove(origin)
		}
	}

	d.channels.Set(&mailboxEntry{origin: f.Origin, ch: ch})

	go act.Run(d.ctx)

	if !d.trySend(ch, f) {
		// §4.G: "if the immediate first send fails, abort the process
		// (invariant violation)" — a freshly spawned, undrained mailbox
		// rejecting its first send means the actor never started.
		panic(fmt.Sprintf("dispatch: first send to freshly spawned batcher for origin %q failed", f.Origin))
	}
}

// trySend delivers f to ch, reporting false instead of panicking if ch has
// been closed by a sealed batcher.
func (d *Dispatcher) trySend(ch batcher.Mailbox, f broker.Frame) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case ch <- f:
		return true
	case <-d.ctx.Done():
		return false
	}
}

func sameChan(a, b batcher.Mailbox) bool {
	return a == b
}
