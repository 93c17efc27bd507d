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

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// OriginWidth is the fixed byte width an origin is sanitized to. It is used
// as a namespace prefix in every object label formed by this package.
const OriginWidth = 10

// TidyOriginName sanitizes a raw origin string into the canonical form used
// as a namespace prefix: drop non-ASCII/non-printable bytes and underscores,
// then right-pad with ':' to OriginWidth bytes, then truncate to it.
//
// NFC-normalizing first (golang.org/x/text/unicode/norm) collapses combining
// sequences a naive byte filter would otherwise split into mojibake before
// the ASCII filter ever sees them.
func TidyOriginName(raw string) string {
	normalized := norm.NFC.String(raw)

	var b strings.Builder
	b.Grow(OriginWidth)
	for _, r := range normalized {
		if r > unicode.MaxASCII {
			continue
		}
		if r == '_' {
			continue
		}
		if !unicode.IsPrint(r) {
			continue
		}
		b.WriteRune(r)
	}

	out := b.String()
	for len(out) < OriginWidth {
		out += ":"
	}
	if len(out) > OriginWidth {
		out = out[:OriginWidth]
	}
	return out
}
