package daymap

import "testing"

func TestRollOverGrowsBucketCountFromObservedSize(t *testing.T) {
	reg := NewRegistry()
	dm := New()
	dm.Insert(0, 2)
	reg.SetSimple("PONY", dm)

	const bucketSize = 4 * 1024 * 1024
	reg.RollOver("PONY", dm, 1000, 10*bucketSize, bucketSize)

	epoch, noBuckets := dm.Lookup(1000)
	if epoch != 1000 {
		t.Fatalf("epoch = %d, want 1000", epoch)
	}
	if noBuckets != 10 {
		t.Fatalf("noBuckets = %d, want 10 (observed growth should dominate prior count of 2)", noBuckets)
	}
}

func TestRollOverNeverShrinksBelowPriorCount(t *testing.T) {
	dm := New()
	dm.Insert(0, 16)
	reg := NewRegistry()

	const bucketSize = 4 * 1024 * 1024
	reg.RollOver("PONY", dm, 1000, bucketSize/2, bucketSize) // growth = 0

	_, noBuckets := dm.Lookup(1000)
	if noBuckets != 16 {
		t.Fatalf("noBuckets = %d, want 16 (floored at prior generation)", noBuckets)
	}
}

func TestRegistrySimpleExtendedIsolation(t *testing.T) {
	reg := NewRegistry()
	if reg.Simple("PONY") != nil || reg.Extended("PONY") != nil {
		t.Fatalf("fresh registry should report nil for an unloaded origin")
	}
	simple := New()
	reg.SetSimple("PONY", simple)
	if reg.Simple("PONY") != simple {
		t.Fatalf("SetSimple/Simple mismatch")
	}
	if reg.Extended("PONY") != nil {
		t.Fatalf("setting Simple must not affect Extended")
	}
}
