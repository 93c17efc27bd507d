//go:build ceph

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
package pool

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ceph/go-ceph/rados"
)

func init() {
	Registry["ceph"] = func(raw json.RawMessage) (Pool, error) {
		var cfg struct {
			UserName    string `json:"username"`
			ClusterName string `json:"cluster"`
			ConfFile    string `json:"conf_file"`
			RadosPool   string `json:"pool"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		return NewCephPool(cfg.ClusterName, cfg.UserName, cfg.ConfFile, cfg.RadosPool)
	}
}

// CephPool is a RADOS-backed Pool. It maps the §6 surface directly onto
// librados: Append/WriteFull onto the matching IOContext calls, Stat/
// ReadFull onto Stat/Read, and ExclusiveLock onto a RADOS object lock
// (grounded on storage/persistence-ceph.go's ensureOpen/IOContext idiom).
type CephPool struct {
	mu    sync.Mutex
	conn  *rados.Conn
	ioctx *rados.IOContext
}

// NewCephPool connects to the named cluster/user and opens the pool.
func NewCephPool(cluster, user, confFile, radosPool string) (*CephPool, error) {
	conn, err := rados.NewConnWithClusterAndUser(cluster, user)
	if err != nil {
		return nil, err
	}
	if confFile != "" {
		if err := conn.ReadConfigFile(confFile); err != nil {
			return nil, err
		}
	} else {
		_ = conn.ReadDefaultConfigFile()
	}
	if err := conn.Connect(); err != nil {
		return nil, err
	}
	ioctx, err := conn.OpenIOContext(radosPool)
	if err != nil {
		conn.Shutdown()
		return nil, err
	}
	return &CephPool{conn: conn, ioctx: ioctx}, nil
}

// Append implements Pool via IOContext.Append, which appends server-side,
// avoiding the stat-then-write-at-offset race a client-computed append
// would have.
func (p *CephPool) Append(ctx context.Context, key string, data []byte) AsyncWrite {
	err := p.ioctx.Append(key, data)
	return immediateWrite{err: err}
}

// WriteFull implements Pool: atomic overwrite.
func (p *CephPool) WriteFull(ctx context.Context, key string, data []byte) AsyncWrite {
	err := p.ioctx.WriteFull(key, data)
	return immediateWrite{err: err}
}

// Stat implements Pool; NotFound from RADOS is folded into ErrNotFound.
func (p *CephPool) Stat(ctx context.Context, key string) AsyncStat {
	stat, err := p.ioctx.Stat(key)
	if err == rados.ErrNotFound {
		return immediateStat{err: ErrNotFound}
	}
	if err != nil {
		return immediateStat{err: err}
	}
	return immediateStat{stat: Stat{Size: stat.Size}}
}

// ReadFull implements Pool.
func (p *CephPool) ReadFull(ctx context.Context, key string) ([]byte, error) {
	stat, err := p.ioctx.Stat(key)
	if err == rados.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	data := make([]byte, stat.Size)
	n, err := p.ioctx.Read(key, data, 0)
	if err != nil {
		return nil, err
	}
	return data[:n], nil
}

// ExclusiveLock implements Pool via a RADOS exclusive object lock, so the
// flush lock (§5, §4.F) is enforced across processes, not just within
// this one.
func (p *CephPool) ExclusiveLock(ctx context.Context, key string, fn func() error) error {
	cookie := "vaultaire-flush"
	_, err := p.ioctx.LockExclusive(key, "flush", cookie, "vaultaire origin flush", 30*time.Second, nil)
	if err != nil {
		return err
	}
	defer p.ioctx.Unlock(key, "flush", cookie)
	return fn()
}
