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
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
)

// CompressThreshold is the minimum payload size compress/decompress
// wrapping below this package bothers with; small KV payloads are not
// worth the frame overhead.
const CompressThreshold = 4096

// lz4Magic prefixes a compressed blob so DecompressMaybe can tell it apart
// from an uncompressed one written by an older process or a small payload
// that skipped compression.
var lz4Magic = [4]byte{'v', 'l', 'z', '4'}

// CompressMaybe LZ4-frames data when it is at least CompressThreshold
// bytes, prefixing it with lz4Magic; otherwise it returns data unchanged.
// Used by the internal KV store (§4.H) for its out-of-band blob payloads,
// which can be arbitrarily large (e.g. a big SourceDict encoding).
func CompressMaybe(data []byte) ([]byte, error) {
	if len(data) < CompressThreshold {
		return data, nil
	}
	var buf bytes.Buffer
	buf.Write(lz4Magic[:])
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressMaybe reverses CompressMaybe: if data carries the lz4Magic
// prefix it is inflated, otherwise it is returned unchanged.
func DecompressMaybe(data []byte) ([]byte, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], lz4Magic[:]) {
		return data, nil
	}
	r := lz4.NewReader(bytes.NewReader(data[4:]))
	return io.ReadAll(r)
}
