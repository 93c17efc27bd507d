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
package daymap

import "sync"

// Registry owns the per-origin, per-kind DayMaps a running process has
// loaded, and serializes rollover so concurrent flushes in this process
// never race extending the same origin's map (§5 "per-origin lock ensures
// serialization within a process").
type Registry struct {
	mu     sync.Mutex
	simple map[string]*DayMap
	ext    map[string]*DayMap
	locks  map[string]*sync.Mutex
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		simple: make(map[string]*DayMap),
		ext:    make(map[string]*DayMap),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (r *Registry) originLock(origin string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[origin]
	if !ok {
		l = &sync.Mutex{}
		r.locks[origin] = l
	}
	return l
}

// Simple returns the origin's simple DayMap, or nil if it has not been
// loaded (cold start).
func (r *Registry) Simple(origin string) *DayMap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.simple[origin]
}

// Extended returns the origin's extended DayMap, or nil if it has not been
// loaded.
func (r *Registry) Extended(origin string) *DayMap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ext[origin]
}

// SetSimple installs an origin's simple DayMap, e.g. after loading its
// day-map file.
func (r *Registry) SetSimple(origin string, dm *DayMap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.simple[origin] = dm
}

// SetExtended installs an origin's extended DayMap.
func (r *Registry) SetExtended(origin string, dm *DayMap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ext[origin] = dm
}

// RollOver extends an origin's DayMap with a new epoch starting at nowNanos,
// re-hashing the bucket count from the observed post-write object size: the
// new count is the number of whole bucketSizeBytes multiples the busiest
// bucket grew to, floored at the prior generation's count. It is idempotent
// under concurrent callers within this process because it runs under the
// origin's rollover lock; the Insert call itself is also idempotent for a
// repeated epoch.
func (r *Registry) RollOver(origin string, dm *DayMap, nowNanos uint64, observedMaxSize uint64, bucketSizeBytes uint64) {
	lock := r.originLock(origin)
	lock.Lock()
	defer lock.Unlock()

	prior := dm.LatestBucketCount()
	if prior == 0 {
		prior = 1
	}
	growth := observedMaxSize / bucketSizeBytes
	next := prior
	if growth > prior {
		next = growth
	}
	dm.Insert(nowNanos, next)
}
