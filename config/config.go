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

// Package config loads vaultaired's process configuration: broker
// transport, object-store backend, batch period, and day-map directory.
// Grounded on the teacher's LoadDatabases (database.go), which decodes a
// JSON schema file the same thin way.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/docker/go-units"

	"github.com/afcowie/vaultaire/flush"
)

// PoolConfig names a pool.Registry backend and its raw JSON config blob.
type PoolConfig struct {
	Backend string          `json:"backend"`
	Config  json.RawMessage `json:"config"`
}

// raw mirrors the on-disk JSON shape; BucketSize is parsed through
// units.RAMInBytes so operators can write "4MiB" instead of a byte count.
type raw struct {
	ListenAddr        string     `json:"listen_addr"`
	Pool              PoolConfig `json:"pool"`
	BatchPeriodMillis int        `json:"batch_period_millis"`
	BucketSize        string     `json:"bucket_size"`
	DayMapDir         string     `json:"day_map_dir"`
}

// Config is the decoded, validated process configuration.
type Config struct {
	ListenAddr  string
	Pool        PoolConfig
	BatchPeriod time.Duration
	BucketSize  uint64
	DayMapDir   string
}

// Load reads and decodes a JSON config file from path. Fields absent from
// the file fall back to the spec defaults (100ms tick aside, a 1s batch
// period and flush.BucketSize are reasonable operator starting points).
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	cfg := Config{
		ListenAddr:  r.ListenAddr,
		Pool:        r.Pool,
		BatchPeriod: time.Second,
		BucketSize:  flush.BucketSize,
		DayMapDir:   r.DayMapDir,
	}
	if r.BatchPeriodMillis > 0 {
		cfg.BatchPeriod = time.Duration(r.BatchPeriodMillis) * time.Millisecond
	}
	if r.BucketSize != "" {
		n, err := units.RAMInBytes(r.BucketSize)
		if err != nil {
			return Config{}, fmt.Errorf("config: bucket_size %q: %w", r.BucketSize, err)
		}
		cfg.BucketSize = uint64(n)
	}
	if cfg.Pool.Backend == "" {
		return Config{}, fmt.Errorf("config: pool.backend is required")
	}
	return cfg, nil
}
