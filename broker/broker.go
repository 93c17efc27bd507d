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

// Package broker models the message-ingress transport as the abstract
// request source §1 declares out of scope: a stream of
// (reply_handle, origin, payload) frames, each reply answered with
// Success or Failure(msg).
package broker

import "context"

// ReplyHandle is the acknowledgment channel for one ingress frame. A
// handle must be answered exactly once.
type ReplyHandle interface {
	Success()
	Failure(msg string)
}

// Frame is one decoded ingress burst: a reply handle, the origin it was
// addressed to, and its raw point-burst payload (§6).
type Frame struct {
	Reply   ReplyHandle
	Origin  string
	Payload []byte
}

// Source yields ingress frames until the underlying transport is closed,
// at which point Recv returns a non-nil error.
type Source interface {
	Recv(ctx context.Context) (Frame, error)
}
