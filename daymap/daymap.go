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

// Package daymap implements the DayMap resolver (§4.B): an ordered
// Epoch->NoBuckets table per origin, and the (out-of-core-scope-but-needed)
// rollover operation that extends it.
package daymap

import (
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/afcowie/vaultaire/wire"
)

type entry struct {
	epoch     uint64
	noBuckets uint64
}

func lessEntry(a, b entry) bool { return a.epoch < b.epoch }

// DayMap is an ordered epoch->bucket-count table, backed by a google/btree
// for the "greatest epoch <= t" lookup §4.B requires. Every method takes an
// internal RWMutex, so lookups are safe alongside Insert, RollOver and
// WatchFile reloads; a Registry hands the same *DayMap to every caller for
// an origin.
type DayMap struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

// New returns an empty DayMap.
func New() *DayMap {
	return &DayMap{tree: btree.NewG(32, lessEntry)}
}

// Load returns a new DayMap holding the decoded day-map file entries.
func Load(data []byte) (*DayMap, error) {
	entries, err := wire.DecodeDayMapFile(data)
	if err != nil {
		return nil, err
	}
	dm := New()
	for _, e := range entries {
		dm.tree.ReplaceOrInsert(entry{epoch: e.Epoch, noBuckets: e.NoBuckets})
	}
	return dm, nil
}

// Insert adds or replaces the bucket count for an epoch.
func (dm *DayMap) Insert(epoch, noBuckets uint64) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.tree.ReplaceOrInsert(entry{epoch: epoch, noBuckets: noBuckets})
}

// Empty reports whether the DayMap holds no entries yet.
func (dm *DayMap) Empty() bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.tree.Len() == 0
}

// Lookup returns the greatest epoch <= t and its bucket count (§4.B). It
// panics if the map is empty or t is before the smallest epoch: per §9
// open question 2, that is an undefined precondition violation — callers
// must ensure a day-map has been loaded before resolving any point.
func (dm *DayMap) Lookup(t uint64) (epoch uint64, noBuckets uint64) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	var found entry
	ok := false
	dm.tree.DescendLessOrEqual(entry{epoch: t}, func(e entry) bool {
		found = e
		ok = true
		return false // first hit descending is the greatest epoch <= t
	})
	if !ok {
		panic(fmt.Sprintf("daymap: lookup(%d) before first loaded epoch", t))
	}
	return found.epoch, found.noBuckets
}

// Bucket resolves the storage lane for a masked address at a given time:
// masked_address mod NoBuckets(time).
func (dm *DayMap) Bucket(maskedAddress, t uint64) (epoch uint64, bucket uint64) {
	epoch, noBuckets := dm.Lookup(t)
	return epoch, maskedAddress % noBuckets
}

// Encode renders the DayMap back to its day-map file wire form, in
// ascending epoch order.
func (dm *DayMap) Encode() []byte {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	entries := make([]wire.DayMapEntry, 0, dm.tree.Len())
	dm.tree.Ascend(func(e entry) bool {
		entries = append(entries, wire.DayMapEntry{Epoch: e.epoch, NoBuckets: e.noBuckets})
		return true
	})
	return wire.EncodeDayMapFile(entries)
}

// LatestBucketCount returns the bucket count of the greatest epoch in the
// map (0 if it is empty), used by RollOver to decide the next generation's
// fan-out.
func (dm *DayMap) LatestBucketCount() uint64 {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	var nb uint64
	dm.tree.Descend(func(e entry) bool {
		nb = e.noBuckets
		return false
	})
	return nb
}
