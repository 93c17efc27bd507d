package flush

import (
	"context"
	"testing"

	"github.com/afcowie/vaultaire/batch"
	"github.com/afcowie/vaultaire/broker"
	"github.com/afcowie/vaultaire/daymap"
	"github.com/afcowie/vaultaire/objectname"
	"github.com/afcowie/vaultaire/pool"
)

// TestExecutePatchesExtendedOffsetsAndAcks builds a batch with one extended
// point and one plain simple point in the same (epoch, bucket) lane, flushes
// it, and verifies the simple object holds both records with the extended
// record's offset correctly patched to point past the pre-existing extended
// object content, and that the queued reply was acknowledged.
func TestExecutePatchesExtendedOffsetsAndAcks(t *testing.T) {
	ctx := context.Background()
	p := pool.NewMemoryPool()
	reg := daymap.NewRegistry()
	const origin = "PONY"

	extKey := objectname.BucketLabel(origin, 0, 0, objectname.Extended)
	// Pre-seed the extended object so the pre-stat offset is non-zero,
	// exercising the "base_offset comes from Phase 1's pre-stat" rule.
	p.WriteFull(ctx, extKey, []byte("01234567")).Wait(ctx)

	st := batch.New()
	reply := broker.NewChanReply()
	st.AddReply(reply)
	st.AppendSimple(0, 0, simpleRec(200, 1, 42))
	st.AppendExtended(0, 0, 101, 2, 3, []byte("xyz"))

	if err := Execute(ctx, p, reg, origin, st, BucketSize); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	select {
	case r := <-reply.Result:
		if !r.OK {
			t.Fatalf("reply = %+v, want OK", r)
		}
	default:
		t.Fatalf("reply handle was never invoked")
	}

	simpleKey := objectname.BucketLabel(origin, 0, 0, objectname.Simple)
	data, err := p.ReadFull(ctx, simpleKey)
	if err != nil {
		t.Fatalf("ReadFull simple: %v", err)
	}
	if len(data) != 48 {
		t.Fatalf("simple object length = %d, want 48 (one plain record + one patched closure)", len(data))
	}

	// Second record (the patched closure) should carry offset 8 (the
	// pre-existing extended object's size).
	offset := get64(data[40:48])
	if offset != 8 {
		t.Fatalf("patched offset = %d, want 8", offset)
	}
}

func TestExecuteWithNoExtendedWritesSimpleAsIs(t *testing.T) {
	ctx := context.Background()
	p := pool.NewMemoryPool()
	reg := daymap.NewRegistry()

	st := batch.New()
	reply := broker.NewChanReply()
	st.AddReply(reply)
	st.AppendSimple(5, 1, simpleRec(10, 1, 99))

	if err := Execute(ctx, p, reg, "PONY", st, BucketSize); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	select {
	case r := <-reply.Result:
		if !r.OK {
			t.Fatalf("reply = %+v, want OK", r)
		}
	default:
		t.Fatalf("reply handle was never invoked")
	}
}

func simpleRec(address, t, payload uint64) [24]byte {
	var rec [24]byte
	put64(rec[0:8], address)
	put64(rec[8:16], t)
	put64(rec[16:24], payload)
	return rec
}

func put64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func get64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
