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

import (
	"log"
	"os"

	"github.com/fsnotify/fsnotify"
)

// WatchFile re-loads path into dst whenever it changes on disk, e.g. after
// a peer process performs RollOver and rewrites the day-map file out of
// process (§5 "day-maps are read-through-cache ... refresh ... after a
// rollover"). It runs until the returned *fsnotify.Watcher is closed.
func WatchFile(path string, dst *DayMap) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	reload := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("daymap: reload %s: %v", path, err)
			return
		}
		fresh, err := Load(data)
		if err != nil {
			log.Printf("daymap: reload %s: %v", path, err)
			return
		}
		dst.replaceFrom(fresh)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("daymap: watch %s: %v", path, err)
			}
		}
	}()

	return watcher, nil
}

// replaceFrom swaps dst's tree for src's, under dst's own lock, so readers
// never observe a partially rebuilt map.
func (dm *DayMap) replaceFrom(src *DayMap) {
	src.mu.RLock()
	tree := src.tree.Clone()
	src.mu.RUnlock()

	dm.mu.Lock()
	dm.tree = tree
	dm.mu.Unlock()
}
