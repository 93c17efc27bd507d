package batcher

import (
	"context"
	"testing"
	"time"

	"github.com/afcowie/vaultaire/broker"
	"github.com/afcowie/vaultaire/daymap"
	"github.com/afcowie/vaultaire/objectname"
	"github.com/afcowie/vaultaire/pool"
	"github.com/afcowie/vaultaire/wire"
)

// TestActorFailsFramesForUnloadedOrigin exercises the cold-start rule: a
// mailbox reachable before any day-map has been loaded for its origin
// answers every frame with a failure and accumulates no state.
func TestActorFailsFramesForUnloadedOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := daymap.NewRegistry()
	p := pool.NewMemoryPool()
	mailbox := make(Mailbox, 1)
	a := New("PONY", mailbox, reg, p, time.Hour, 4096)
	go a.Run(ctx)

	reply := broker.NewChanReply()
	mailbox <- broker.Frame{Reply: reply, Origin: "PONY", Payload: nil}

	select {
	case r := <-reply.Result:
		if r.OK {
			t.Fatalf("reply = %+v, want failure for an unloaded origin", r)
		}
		if r.Msg != "No such origin" {
			t.Errorf("Msg = %q, want %q", r.Msg, "No such origin")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

// TestActorFlushesOnTickAfterBatchPeriod drives a real point through a
// loaded origin and waits for the 100ms ticker to age the batch past a
// short batchPeriod, then checks the simple object landed in the pool.
func TestActorFlushesOnTickAfterBatchPeriod(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const origin = "PONY"
	reg := daymap.NewRegistry()
	simple := daymap.New()
	simple.Insert(0, 1)
	ext := daymap.New()
	ext.Insert(0, 1)
	reg.SetSimple(origin, simple)
	reg.SetExtended(origin, ext)

	p := pool.NewMemoryPool()
	mailbox := make(Mailbox, 1)
	a := New(origin, mailbox, reg, p, 50*time.Millisecond, 4096)
	go a.Run(ctx)

	reply := broker.NewChanReply()
	burst := wire.EncodePointBurst([]wire.Point{{Address: 200, Time: 1, PayloadLen: 42}})
	mailbox <- broker.Frame{Reply: reply, Origin: origin, Payload: burst}

	select {
	case r := <-reply.Result:
		if !r.OK {
			t.Fatalf("reply = %+v, want OK", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flush to ack the frame")
	}

	key := objectname.BucketLabel(origin, 0, 0, objectname.Simple)
	data, err := p.ReadFull(ctx, key)
	if err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if len(data) != 24 {
		t.Fatalf("simple object length = %d, want 24", len(data))
	}
}

// TestActorSealsMailboxAndCallsOnSeal checks that closing the mailbox
// drains any open batch and invokes OnSeal exactly once.
func TestActorSealsMailboxAndCallsOnSeal(t *testing.T) {
	ctx := context.Background()
	reg := daymap.NewRegistry()
	p := pool.NewMemoryPool()
	mailbox := make(Mailbox, 1)
	a := New("PONY", mailbox, reg, p, time.Hour, 4096)

	sealed := make(chan string, 1)
	a.OnSeal = func(origin string) { sealed <- origin }

	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	close(mailbox)

	select {
	case origin := <-sealed:
		if origin != "PONY" {
			t.Errorf("OnSeal origin = %q, want PONY", origin)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnSeal")
	}
	<-done
}
