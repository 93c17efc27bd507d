package contents

import (
	"context"
	"testing"

	"github.com/afcowie/vaultaire/kvstore"
	"github.com/afcowie/vaultaire/pool"
	"github.com/afcowie/vaultaire/sourcedict"
	"github.com/afcowie/vaultaire/wire"
)

func TestHandleGenerateNewAddressClearsLowBit(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(pool.NewMemoryPool(), "PONY")

	out, err := h.Handle(ctx, wire.ContentsOperation{Op: wire.OpGenerateNewAddress}, 0)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(out) != 8 {
		t.Fatalf("len(out) = %d, want 8", len(out))
	}
	addr := littleEndianUint64(out)
	if addr&1 != 0 {
		t.Fatalf("generated address %d has its low bit set", addr)
	}
}

func TestHandleGenerateNewAddressIsMonotonic(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(pool.NewMemoryPool(), "PONY")

	out1, _ := h.Handle(ctx, wire.ContentsOperation{Op: wire.OpGenerateNewAddress}, 0)
	out2, _ := h.Handle(ctx, wire.ContentsOperation{Op: wire.OpGenerateNewAddress}, 0)
	a1 := littleEndianUint64(out1)
	a2 := littleEndianUint64(out2)
	if a2 <= a1 {
		t.Fatalf("second address %d did not advance past first %d", a2, a1)
	}
}

func TestHandleUpdateSourceTagRegistersDict(t *testing.T) {
	ctx := context.Background()
	p := pool.NewMemoryPool()
	h := NewHandler(p, "PONY")

	dict := sourcedict.New(map[string]string{"host": "a"})
	op := wire.ContentsOperation{Op: wire.OpUpdateSourceTag, DictRaw: dict.Encode()}
	if _, err := h.Handle(ctx, op, 0); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	entries, err := kvstore.EnumerateOrigin(ctx, p, "PONY")
	if err != nil {
		t.Fatalf("EnumerateOrigin: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestHandleRemoveSourceTagTombstones(t *testing.T) {
	ctx := context.Background()
	p := pool.NewMemoryPool()
	h := NewHandler(p, "PONY")

	if err := kvstore.WriteTo(ctx, p, "PONY", 128, []byte("Hai1")); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if _, err := h.Handle(ctx, wire.ContentsOperation{Op: wire.OpRemoveSourceTag, Addr: 128}, 0); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	data, err := kvstore.ReadFrom(ctx, p, "PONY", 128)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("got %q, want the address tombstoned to empty", data)
	}
}

func TestHandleContentsListRequestEncodesEntries(t *testing.T) {
	ctx := context.Background()
	p := pool.NewMemoryPool()
	h := NewHandler(p, "PONY")

	kvstore.WriteTo(ctx, p, "PONY", 0, []byte("Hai2"))
	kvstore.WriteTo(ctx, p, "PONY", 128, []byte("Hai3"))

	out, err := h.Handle(ctx, wire.ContentsOperation{Op: wire.OpContentsListRequest}, 0)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(out) != 2*16+4+4 {
		t.Fatalf("len(out) = %d, want %d", len(out), 2*16+4+4)
	}
	if string(out[16:20]) != "Hai2" {
		t.Errorf("first entry payload = %q, want Hai2", out[16:20])
	}
}

func TestHandleUnknownOpcode(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(pool.NewMemoryPool(), "PONY")
	if _, err := h.Handle(ctx, wire.ContentsOperation{Op: wire.Opcode(99)}, 0); err != wire.ErrIllegalOpcode {
		t.Fatalf("Handle = %v, want ErrIllegalOpcode", err)
	}
}

func littleEndianUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
