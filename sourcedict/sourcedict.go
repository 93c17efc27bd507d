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

// Package sourcedict implements the canonical text->text source-description
// mapping and its content-addressed identifier.
package sourcedict

import (
	"crypto/sha1"
	"encoding/binary"
	"sort"
)

// Dict is a canonical sorted text->text mapping; keys are unique.
type Dict struct {
	pairs map[string]string
}

// New builds a Dict from an unordered set of pairs; later duplicate keys
// overwrite earlier ones.
func New(pairs map[string]string) *Dict {
	d := &Dict{pairs: make(map[string]string, len(pairs))}
	for k, v := range pairs {
		d.pairs[k] = v
	}
	return d
}

// Get returns the value for a key and whether it was present.
func (d *Dict) Get(key string) (string, bool) {
	v, ok := d.pairs[key]
	return v, ok
}

// Len reports the number of distinct keys.
func (d *Dict) Len() int { return len(d.pairs) }

// sortedKeys returns the dict's keys in ascending order, giving the encoding
// its canonical form.
func (d *Dict) sortedKeys() []string {
	keys := make([]string, 0, len(d.pairs))
	for k := range d.pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode produces the canonical byte serialization: the ordered
// (key, value) pairs, each length-prefixed with a little-endian u32.
func (d *Dict) Encode() []byte {
	keys := d.sortedKeys()
	out := make([]byte, 0, 64*len(keys))
	var lenbuf [4]byte
	for _, k := range keys {
		v := d.pairs[k]
		binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(k)))
		out = append(out, lenbuf[:]...)
		out = append(out, k...)
		binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(v)))
		out = append(out, lenbuf[:]...)
		out = append(out, v...)
	}
	return out
}

// Decode parses the canonical byte serialization produced by Encode.
func Decode(data []byte) (*Dict, error) {
	d := &Dict{pairs: make(map[string]string)}
	o := 0
	for o < len(data) {
		k, next, err := readLenPrefixed(data, o)
		if err != nil {
			return nil, err
		}
		o = next
		v, next, err := readLenPrefixed(data, o)
		if err != nil {
			return nil, err
		}
		o = next
		d.pairs[k] = v
	}
	return d, nil
}

func readLenPrefixed(data []byte, o int) (string, int, error) {
	if o+4 > len(data) {
		return "", 0, errCorrupt
	}
	n := int(binary.LittleEndian.Uint32(data[o : o+4]))
	o += 4
	if n < 0 || o+n > len(data) {
		return "", 0, errCorrupt
	}
	return string(data[o : o+n]), o + n, nil
}

var errCorrupt = &corruptError{"corrupt source dict encoding"}

type corruptError struct{ msg string }

func (e *corruptError) Error() string { return e.msg }

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// HashID returns the 27-digit base-62 encoding of the SHA1 of the dict's
// canonical encoding, used as its content-addressed identifier.
func (d *Dict) HashID() string {
	sum := sha1.Sum(d.Encode())
	return base62Digits(sum[:], 27)
}

// Address derives a stable internal-KV-store address from the dict's
// content hash, so a source dict can be registered and enumerated without a
// separately assigned address.
func (d *Dict) Address() uint64 {
	sum := sha1.Sum(d.Encode())
	return binary.BigEndian.Uint64(sum[:8])
}

// base62Digits renders the big-endian byte string as exactly n base-62
// digits, left-padded with the zero digit.
func base62Digits(b []byte, n int) string {
	// Treat b as a big-endian unsigned integer and repeatedly divide by 62.
	num := append([]byte(nil), b...)
	digits := make([]byte, 0, n)
	for isNonZero(num) {
		var rem uint32
		for i := 0; i < len(num); i++ {
			cur := rem<<8 | uint32(num[i])
			num[i] = byte(cur / 62)
			rem = cur % 62
		}
		digits = append(digits, base62Alphabet[rem])
	}
	for len(digits) < n {
		digits = append(digits, base62Alphabet[0])
	}
	if len(digits) > n {
		digits = digits[:n]
	}
	// digits were produced least-significant first; reverse for display.
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

func isNonZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return true
		}
	}
	return false
}
