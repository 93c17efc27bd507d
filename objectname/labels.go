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
package objectname

import "fmt"

// Kind distinguishes a bucket's simple lane from its extended lane.
type Kind int

const (
	Simple Kind = iota
	Extended
)

func (k Kind) String() string {
	if k == Extended {
		return "extended"
	}
	return "simple"
}

// WindowSeconds and NanosPerSecond resolve §9 open question 3: the original
// implementation fixed these via preprocessor macros; here they are plain
// constants. ContentsHashLabel takes the window as a parameter; config has
// no window setting, and kvstore.RegisterSource passes WindowSeconds.
const (
	WindowSeconds  = 60
	NanosPerSecond = 1_000_000_000
)

// EpochTag prefixes contents-hash bucket labels.
const EpochTag = "02"

// BucketLabel names a bucket object: "02_{origin}_{bucket:020}_{epoch:020}_{simple|extended}".
func BucketLabel(origin string, bucket uint64, epoch uint64, kind Kind) string {
	return fmt.Sprintf("%s_%s_%020d_%020d_%s", EpochTag, TidyOriginName(origin), bucket, epoch, kind)
}

// WriteLockLabel names an origin's exclusive flush lock: "02_{origin}_write_lock".
func WriteLockLabel(origin string) string {
	return fmt.Sprintf("%s_%s_write_lock", EpochTag, TidyOriginName(origin))
}

// InternalLabel names an internal KV object:
// "02_{origin}_INTERNAL_{address:020}_{0:020}_{simple|extended}".
func InternalLabel(origin string, address uint64, kind Kind) string {
	return fmt.Sprintf("%s_%s_INTERNAL_%020d_%020d_%s", EpochTag, TidyOriginName(origin), address, 0, kind)
}

// ManifestLabel names the per-origin address manifest the internal KV store
// keeps so enumerateOrigin can list keys without a native prefix-listing
// operation on the underlying Pool (§4.H).
func ManifestLabel(origin string) string {
	return fmt.Sprintf("%s_%s_INTERNAL_manifest", EpochTag, TidyOriginName(origin))
}

// ContentsHashLabel names a contents-hash bucket object:
// "{EPOCH_TAG}_{origin}_{sha1_base62_source}_{(t / (window*ns)) * window}".
func ContentsHashLabel(origin string, sourceHash string, t uint64, windowSeconds uint64) string {
	windowNanos := windowSeconds * NanosPerSecond
	aligned := (t / windowNanos) * windowSeconds
	return fmt.Sprintf("%s_%s_%s_%d", EpochTag, TidyOriginName(origin), sourceHash, aligned)
}
