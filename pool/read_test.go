package pool

import (
	"context"
	"testing"

	"github.com/afcowie/vaultaire/objectname"
)

// TestReadBucketReconstructsExtendedOffsets exercises §8's second quantified
// invariant: simple records whose inlined extended offsets, followed into
// the extended object, reconstruct each original extended payload
// byte-exactly.
func TestReadBucketReconstructsExtendedOffsets(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPool()
	const origin = "PONY"

	extKey := objectname.BucketLabel(origin, 0, 0, objectname.Extended)
	simpleKey := objectname.BucketLabel(origin, 0, 0, objectname.Simple)

	// Two extended entries at offsets 0 and 8+len("first").
	ext := append(extendedEntry("first"), extendedEntry("second-longer")...)
	p.WriteFull(ctx, extKey, ext).Wait(ctx)

	offset2 := uint64(8 + len("first"))
	simple := append(simpleRecord(101, 1, 0), simpleRecord(103, 2, offset2)...)
	p.WriteFull(ctx, simpleKey, simple).Wait(ctx)

	points, err := ReadBucket(ctx, p, origin, 0, 0)
	if err != nil {
		t.Fatalf("ReadBucket: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if string(points[0].Extra) != "first" {
		t.Errorf("points[0].Extra = %q, want \"first\"", points[0].Extra)
	}
	if string(points[1].Extra) != "second-longer" {
		t.Errorf("points[1].Extra = %q, want \"second-longer\"", points[1].Extra)
	}
}

func TestReadBucketMixesSimpleAndExtended(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPool()
	const origin = "PONY"

	simpleKey := objectname.BucketLabel(origin, 0, 0, objectname.Simple)
	simple := simpleRecord(100, 1, 999) // even address: inline simple value
	p.WriteFull(ctx, simpleKey, simple).Wait(ctx)

	points, err := ReadBucket(ctx, p, origin, 0, 0)
	if err != nil {
		t.Fatalf("ReadBucket: %v", err)
	}
	if len(points) != 1 || points[0].Value != 999 {
		t.Fatalf("got %+v, want a single simple point with Value=999", points)
	}
}

func TestReadBucketDedupesByTimestampFirstWins(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPool()
	const origin = "PONY"

	simpleKey := objectname.BucketLabel(origin, 0, 0, objectname.Simple)
	simple := append(simpleRecord(100, 5, 111), simpleRecord(100, 5, 222)...)
	p.WriteFull(ctx, simpleKey, simple).Wait(ctx)

	points, err := ReadBucket(ctx, p, origin, 0, 0)
	if err != nil {
		t.Fatalf("ReadBucket: %v", err)
	}
	if len(points) != 1 || points[0].Value != 111 {
		t.Fatalf("got %+v, want a single point with Value=111 (first write wins)", points)
	}
}

func TestReadBucketMissingReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPool()
	points, err := ReadBucket(ctx, p, "GHOST", 0, 0)
	if err != nil {
		t.Fatalf("ReadBucket: %v", err)
	}
	if points != nil {
		t.Fatalf("got %v, want nil for a never-written bucket", points)
	}
}

func extendedEntry(s string) []byte {
	out := make([]byte, 8+len(s))
	put64(out[0:8], uint64(len(s)))
	copy(out[8:], s)
	return out
}

func simpleRecord(address, t, payload uint64) []byte {
	out := make([]byte, 24)
	put64(out[0:8], address)
	put64(out[8:16], t)
	put64(out[16:24], payload)
	return out
}

func put64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
