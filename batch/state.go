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

// Package batch holds the per-origin, per-flush-window accumulator
// (§3 BatchState, §4.D) as pure data plus pure transitions. Nothing in
// this package touches the network or the object store: a BatchState is
// built up by a single batcher goroutine and handed to the flush writer
// once a batch period elapses.
package batch

import (
	"encoding/binary"
	"time"

	"github.com/afcowie/vaultaire/broker"
)

// Key addresses one (epoch, bucket) lane within a batch.
type Key struct {
	Epoch  uint64
	Bucket uint64
}

// OffsetClosure is the non-functional replacement for the "function of
// base-offset -> bytes" pending-closure pattern described in §9: the three
// captured scalars (address, time, local offset) are emitted as the three
// u64s of a simple record once the flush writer learns the extended
// object's pre-existing size.
type OffsetClosure struct {
	Address     uint64
	Time        uint64
	LocalOffset uint64
}

// Resolve produces the patched 24-byte simple record this closure
// represents, given the extended object's pre-existing size.
func (c OffsetClosure) Resolve(baseOffset uint64) [24]byte {
	var rec [24]byte
	binary.LittleEndian.PutUint64(rec[0:8], c.Address)
	binary.LittleEndian.PutUint64(rec[8:16], c.Time)
	binary.LittleEndian.PutUint64(rec[16:24], baseOffset+c.LocalOffset)
	return rec
}

// pendingEntry tracks one (epoch, bucket) lane's running extended-object
// length and the closures awaiting that lane's base offset.
type pendingEntry struct {
	runningLen uint64
	closures   []OffsetClosure // accumulated in ingress order
}

// State is the BatchState for one origin's open batch.
type State struct {
	ReplyHandles []broker.ReplyHandle
	Simple       map[Key][]byte
	Extended     map[Key][]byte
	pending      map[Key]*pendingEntry
	Start        time.Time
}

// New opens a fresh BatchState, starting its clock now.
func New() *State {
	return &State{
		Simple:   make(map[Key][]byte),
		Extended: make(map[Key][]byte),
		pending:  make(map[Key]*pendingEntry),
		Start:    time.Now(),
	}
}

// AddReply enqueues a reply handle, acknowledged only once the whole batch
// flushes successfully (§3 invariant 4: no partial acknowledgment).
func (s *State) AddReply(h broker.ReplyHandle) {
	s.ReplyHandles = append(s.ReplyHandles, h)
}

// AppendSimple concatenates a 24-byte simple record into its (epoch,
// bucket) lane.
func (s *State) AppendSimple(epoch, bucket uint64, record [24]byte) {
	k := Key{Epoch: epoch, Bucket: bucket}
	s.Simple[k] = append(s.Simple[k], record[:]...)
}

// AppendExtended implements §4.D's four-step transition: look up the
// lane's running length, form the deferred offset closure, advance the
// running length, and append the length-prefixed payload.
func (s *State) AppendExtended(epoch, bucket, addr, t, length uint64, payload []byte) {
	k := Key{Epoch: epoch, Bucket: bucket}
	pe, ok := s.pending[k]
	if !ok {
		pe = &pendingEntry{}
		s.pending[k] = pe
	}

	closure := OffsetClosure{Address: addr, Time: t, LocalOffset: pe.runningLen}
	pe.closures = append(pe.closures, closure) // append preserves ingress order
	pe.runningLen += length

	var lenbuf [8]byte
	binary.LittleEndian.PutUint64(lenbuf[:], length)
	s.Extended[k] = append(s.Extended[k], lenbuf[:]...)
	s.Extended[k] = append(s.Extended[k], payload...)
}

// PendingClosures returns the (epoch, bucket) lane's offset closures in
// ingress order, and whether the lane has any pending entry at all.
func (s *State) PendingClosures(k Key) ([]OffsetClosure, bool) {
	pe, ok := s.pending[k]
	if !ok {
		return nil, false
	}
	out := make([]OffsetClosure, len(pe.closures))
	copy(out, pe.closures)
	return out, true
}

// Keys returns every (epoch, bucket) touched by either the simple or the
// extended buffers, without duplicates.
func (s *State) Keys() []Key {
	seen := make(map[Key]struct{}, len(s.Simple)+len(s.Extended))
	for k := range s.Simple {
		seen[k] = struct{}{}
	}
	for k := range s.Extended {
		seen[k] = struct{}{}
	}
	keys := make([]Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return keys
}
