package dispatch

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

// TestDispatchRoutesToSameOriginSpawnsOnce sends two frames for the same
// origin, checks that the origin's table entry still holds the same mailbox
// after the second frame (no second spawn for an already-open origin, per
// §4.G), and that both frames are answered.
func TestDispatchRoutesToSameOriginSpawnsOnce(t *testing.T) {
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
	d := New(ctx, reg, p, 20*time.Millisecond, 4096)

	r1 := broker.NewChanReply()
	r2 := broker.NewChanReply()
	burst := wire.EncodePointBurst([]wire.Point{{Address: 200, Time: 1, PayloadLen: 1}})
	d.Dispatch(broker.Frame{Reply: r1, Origin: origin, Payload: burst})
	first := d.channels.Get(origin)
	d.Dispatch(broker.Frame{Reply: r2, Origin: origin, Payload: burst})
	second := d.channels.Get(origin)
	if first == nil || second == nil || first.ch != second.ch {
		t.Fatalf("second frame for %s did not reuse the first batcher's mailbox", origin)
	}

	for _, r := range []*broker.ChanReply{r1, r2} {
		select {
		case rep := <-r.Result:
			if !rep.OK {
				t.Fatalf("reply = %+v, want OK", rep)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for reply")
		}
	}
}

// TestDispatchFailsUnknownOrigin checks that an origin with no loaded
// day-map still gets a batcher spawned for it (per §4.G step 1), but every
// frame it receives fails until a day-map is provisioned.
func TestDispatchFailsUnknownOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := daymap.NewRegistry()
	p := pool.NewMemoryPool()
	d := New(ctx, reg, p, time.Hour, 4096)

	reply := broker.NewChanReply()
	d.Dispatch(broker.Frame{Reply: reply, Origin: "GHOST", Payload: nil})

	select {
	case r := <-reply.Result:
		if r.OK {
			t.Fatalf("reply = %+v, want failure for an unprovisioned origin", r)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

// TestDispatchKeepsOriginsIndependent dispatches one frame each to two
// distinct origins and checks that both are answered and that each origin's
// own simple bucket object was written.
func TestDispatchKeepsOriginsIndependent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := daymap.NewRegistry()
	for _, origin := range []string{"PONY", "POND"} {
		simple := daymap.New()
		simple.Insert(0, 1)
		ext := daymap.New()
		ext.Insert(0, 1)
		reg.SetSimple(origin, simple)
		reg.SetExtended(origin, ext)
	}

	p := pool.NewMemoryPool()
	d := New(ctx, reg, p, 20*time.Millisecond, 4096)

	burst := wire.EncodePointBurst([]wire.Point{{Address: 200, Time: 1, PayloadLen: 7}})
	rPony := broker.NewChanReply()
	rPond := broker.NewChanReply()
	d.Dispatch(broker.Frame{Reply: rPony, Origin: "PONY", Payload: burst})
	d.Dispatch(broker.Frame{Reply: rPond, Origin: "POND", Payload: burst})

	for _, r := range []*broker.ChanReply{rPony, rPond} {
		select {
		case rep := <-r.Result:
			if !rep.OK {
				t.Fatalf("reply = %+v, want OK", rep)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for reply")
		}
	}

	for _, origin := range []string{"PONY", "POND"} {
		key := objectname.BucketLabel(origin, 0, 0, objectname.Simple)
		if _, err := p.ReadFull(ctx, key); err != nil {
			t.Errorf("ReadFull(%s): %v", key, err)
		}
	}
}
