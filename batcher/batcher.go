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

// Package batcher runs the per-origin actor loop (§4.E): it owns one
// origin's BatchState exclusively, draining a mailbox of ingress frames and
// an internal 100ms tick, and hands completed batches to the flush writer.
// This is the single-owner-state idiom the teacher uses for its scheduler
// goroutine (scm/scheduler.go) and that other_examples' dd-trace-go
// datastreams processor uses for its batching select loop, applied to one
// goroutine per origin instead of one per process.
package batcher

import (
	"context"
	"fmt"
	"time"

	"github.com/afcowie/vaultaire/batch"
	"github.com/afcowie/vaultaire/broker"
	"github.com/afcowie/vaultaire/daymap"
	"github.com/afcowie/vaultaire/flush"
	"github.com/afcowie/vaultaire/pool"
	"github.com/afcowie/vaultaire/wire"
)

// TickInterval is the internal tick generator's period (§4.E: "every
// 100 ms").
const TickInterval = 100 * time.Millisecond

type tickMsg struct{}

// Mailbox is the bounded single-slot channel the dispatcher sends frames
// into, and the batcher drains. A closed Mailbox seals the batcher.
type Mailbox chan any

// Actor owns one origin's open BatchState. It must only be driven from the
// single goroutine that calls Run.
type Actor struct {
	origin      string
	mailbox     Mailbox
	registry    *daymap.Registry
	pool        pool.Pool
	batchPeriod time.Duration
	bucketSize  uint64

	// OnSeal, if set, is invoked once Run returns because the mailbox was
	// closed and the final batch (if non-empty) has been flushed — the
	// dispatcher's cue to drop this origin's stale map entry.
	OnSeal func(origin string)
}

// New returns an Actor for origin, reading from mailbox and flushing
// through p. batchPeriod is the minimum age a batch must reach on a tick
// before it is flushed; bucketSize is the rollover threshold passed to
// flush.Execute (flush.BucketSize for the spec default).
func New(origin string, mailbox Mailbox, reg *daymap.Registry, p pool.Pool, batchPeriod time.Duration, bucketSize uint64) *Actor {
	return &Actor{
		origin:      origin,
		mailbox:     mailbox,
		registry:    reg,
		pool:        p,
		batchPeriod: batchPeriod,
		bucketSize:  bucketSize,
	}
}

// Run drains the mailbox until ctx is cancelled or the mailbox is closed,
// flushing a batch whenever a tick finds it older than batchPeriod. It
// blocks; callers run it in its own goroutine.
func (a *Actor) Run(ctx context.Context) {
	tickCtx, stopTicks := context.WithCancel(ctx)
	defer stopTicks()
	go a.generateTicks(tickCtx)

	state := batch.New()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-a.mailbox:
			if !ok {
				a.flushIfNonEmpty(ctx, state)
				if a.OnSeal != nil {
					a.OnSeal(a.origin)
				}
				return
			}
			switch v := m.(type) {
			case broker.Frame:
				a.handleFrame(state, v)
			case tickMsg:
				if time.Since(state.Start) >= a.batchPeriod {
					a.flushIfNonEmpty(ctx, state)
					state = batch.New()
				}
			}
		}
	}
}

func (a *Actor) generateTicks(ctx context.Context) {
	t := time.NewTicker(TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			select {
			case a.mailbox <- tickMsg{}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleFrame implements §4.E's Msg transition, including the cold-start
// rule: an origin with no loaded day-map fails every arriving message
// without accumulating any state.
func (a *Actor) handleFrame(state *batch.State, f broker.Frame) {
	simpleDM := a.registry.Simple(a.origin)
	extDM := a.registry.Extended(a.origin)
	if simpleDM == nil || extDM == nil {
		f.Reply.Failure("No such origin")
		return
	}

	points, err := wire.DecodePointBurst(f.Payload)
	if err != nil {
		f.Reply.Failure(err.Error())
		return
	}

	state.AddReply(f.Reply)
	for _, pt := range points {
		// §9 open question 1: the simple day-map resolves both simple and
		// extended points. Preserved as specified, not re-derived.
		epoch, bucket := simpleDM.Bucket(pt.MaskedAddress(), pt.Time)
		if pt.IsExtended() {
			state.AppendExtended(epoch, bucket, pt.Address, pt.Time, pt.PayloadLen, pt.Extended)
		} else {
			state.AppendSimple(epoch, bucket, wire.SimpleRecord(pt.Address, pt.Time, pt.PayloadLen))
		}
	}
}

func (a *Actor) flushIfNonEmpty(ctx context.Context, state *batch.State) {
	if len(state.ReplyHandles) == 0 {
		return
	}
	if err := flush.Execute(ctx, a.pool, a.registry, a.origin, state, a.bucketSize); err != nil {
		// §7: a flush error is fatal to the batch; no acks are sent for it.
		// The actor itself survives to process the next batch.
		fmt.Printf("batcher: flush failed for origin %q: %v\n", a.origin, err)
	}
}
