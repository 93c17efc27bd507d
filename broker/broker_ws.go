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
	"encoding/binary"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WSSource is a websocket-framed ingress: one connection per client, each
// binary message framed as OriginLen(u16) ‖ Origin ‖ point-burst payload.
// It is a dev/local-harness transport, not part of the core per §1, but
// gives the broker interface a concrete, runnable home.
type WSSource struct {
	upgrader websocket.Upgrader
	frames   chan Frame
}

// NewWSSource returns a WSSource ready to be registered as an http.Handler.
func NewWSSource(mailboxDepth int) *WSSource {
	return &WSSource{
		upgrader: websocket.Upgrader{ReadBufferSize: 1 << 16, WriteBufferSize: 1 << 16, CheckOrigin: func(*http.Request) bool { return true }},
		frames:   make(chan Frame, mailboxDepth),
	}
}

// ServeHTTP upgrades the connection and runs its read loop until the peer
// closes it, delivering each decoded frame to Recv.
func (s *WSSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("broker: websocket upgrade failed: %v", err)
		return
	}
	go s.readLoop(conn)
}

func (s *WSSource) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("broker: websocket read loop panic: %v", r)
		}
	}()
	for {
		messageType, msg, err := conn.ReadMessage()
		if err != nil {
			if _, ok := err.(*websocket.CloseError); ok {
				return
			}
			log.Printf("broker: websocket read error: %v", err)
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		frame, err := decodeWSFrame(msg)
		if err != nil {
			s.replyOnWire(conn, fmt.Sprintf("decode error: %v", err))
			continue
		}
		handle := &wsReply{conn: conn}
		frame.Reply = handle
		s.frames <- frame
	}
}

func (s *WSSource) replyOnWire(conn *websocket.Conn, msg string) {
	(&wsReply{conn: conn}).Failure(msg)
}

func decodeWSFrame(msg []byte) (Frame, error) {
	if len(msg) < 2 {
		return Frame{}, fmt.Errorf("short frame")
	}
	originLen := int(binary.LittleEndian.Uint16(msg[0:2]))
	if 2+originLen > len(msg) {
		return Frame{}, fmt.Errorf("short origin")
	}
	origin := string(msg[2 : 2+originLen])
	payload := msg[2+originLen:]
	return Frame{Origin: origin, Payload: payload}, nil
}

// Recv implements Source.
func (s *WSSource) Recv(ctx context.Context) (Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// wsReply answers a frame by writing a one-byte status (0 = success) plus
// an optional UTF-8 message back over the same connection.
type wsReply struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (h *wsReply) Success() {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.conn.WriteMessage(websocket.BinaryMessage, []byte{0})
}

func (h *wsReply) Failure(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := append([]byte{1}, []byte(msg)...)
	_ = h.conn.WriteMessage(websocket.BinaryMessage, out)
}
