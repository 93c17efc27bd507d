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
package broker

import (
	"context"
	"errors"
)

// ErrClosed is returned by Recv once a MemorySource has been closed and
// drained.
var ErrClosed = errors.New("broker: source closed")

// MemorySource is an in-process Source for tests and embedding callers;
// cmd/vaultaired does not use it (it serves a WSSource).
type MemorySource struct {
	frames chan Frame
}

// NewMemorySource returns a MemorySource with the given mailbox depth.
func NewMemorySource(depth int) *MemorySource {
	return &MemorySource{frames: make(chan Frame, depth)}
}

// Send enqueues a frame for a future Recv. It blocks if the mailbox is
// full.
func (s *MemorySource) Send(f Frame) {
	s.frames <- f
}

// Close seals the mailbox; pending frames still drain via Recv before it
// starts returning ErrClosed.
func (s *MemorySource) Close() {
	close(s.frames)
}

// Recv implements Source.
func (s *MemorySource) Recv(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			return Frame{}, ErrClosed
		}
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// ChanReply is a ReplyHandle backed by a result channel, letting a test or
// an in-process caller observe how a frame was acknowledged.
type ChanReply struct {
	Result chan Reply
}

// Reply is the outcome delivered to a ChanReply's Result channel.
type Reply struct {
	OK  bool
	Msg string
}

// NewChanReply returns a ChanReply with a single-slot result channel.
func NewChanReply() *ChanReply {
	return &ChanReply{Result: make(chan Reply, 1)}
}

func (r *ChanReply) Success() {
	r.Result <- Reply{OK: true}
}

func (r *ChanReply) Failure(msg string) {
	r.Result <- Reply{OK: false, Msg: msg}
}
