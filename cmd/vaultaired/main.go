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

// Command vaultaired is the process entry point: it wires a broker
// ingress, an object-store pool, the day-map registry, and the dispatcher
// together and runs until interrupted.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dc0d/onexit"

	"github.com/afcowie/vaultaire/broker"
	"github.com/afcowie/vaultaire/config"
	"github.com/afcowie/vaultaire/daymap"
	"github.com/afcowie/vaultaire/dispatch"
	"github.com/afcowie/vaultaire/objectname"
	"github.com/afcowie/vaultaire/pool"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <config.json>", os.Args[0])
	}
	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatalf("vaultaired: %v", err)
	}

	factory, ok := pool.Registry[cfg.Pool.Backend]
	if !ok {
		log.Fatalf("vaultaired: unknown pool backend %q", cfg.Pool.Backend)
	}
	store, err := factory(cfg.Pool.Config)
	if err != nil {
		log.Fatalf("vaultaired: pool %q: %v", cfg.Pool.Backend, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// onexit fires even when a later log.Fatalf below short-circuits past
	// this defer via os.Exit, so the shutdown line is never swallowed.
	onexit.Register(func() { log.Printf("vaultaired: process exiting") })

	registry := daymap.NewRegistry()
	dispatcher := dispatch.New(ctx, registry, store, cfg.BatchPeriod, cfg.BucketSize)

	source := broker.NewWSSource(64)
	mux := http.NewServeMux()
	mux.Handle("/ingest", source)
	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("vaultaired: listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("vaultaired: http server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Printf("vaultaired: shutting down")
		server.Close()
		cancel()
	}()

	for {
		frame, err := source.Recv(ctx)
		if err != nil {
			log.Printf("vaultaired: broker closed: %v", err)
			return
		}
		ensureDayMaps(registry, cfg.DayMapDir, frame.Origin)
		dispatcher.Dispatch(frame)
	}
}

// ensureDayMaps lazily loads an origin's simple/extended day-map files the
// first time it is seen, and starts watching each for out-of-process
// rollovers (§5 "day-maps are read-through-cache"). A missing file is not
// an error: the batcher keeps replying "No such origin" until one appears.
func ensureDayMaps(reg *daymap.Registry, dir, origin string) {
	base := objectname.TidyOriginName(origin)
	if reg.Simple(origin) == nil {
		loadAndWatch(dir, filepath.Join(dir, base+".simple.daymap"), reg.SetSimple, origin)
	}
	if reg.Extended(origin) == nil {
		loadAndWatch(dir, filepath.Join(dir, base+".extended.daymap"), reg.SetExtended, origin)
	}
}

func loadAndWatch(dir, path string, set func(origin string, dm *daymap.DayMap), origin string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // not yet provisioned for this origin
	}
	dm, err := daymap.Load(data)
	if err != nil {
		log.Printf("vaultaired: day-map %s: %v", path, err)
		return
	}
	set(origin, dm)
	if _, err := daymap.WatchFile(path, dm); err != nil {
		log.Printf("vaultaired: watch %s: %v", path, err)
	}
}
