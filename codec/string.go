// Copyright 2026 The bitpunch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package codec

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/leanderhang/bitpunch/schema"
	"github.com/leanderhang/bitpunch/value"
)

// StringFilter implements the `string` builtin: it decodes the whole input
// as text. Its default charset is UTF-8 (a no-op byte-to-string relabeling);
// @charset selects a narrower or wider encoding for fields whose bytes are
// not already UTF-8 (spec.md §4.3 leaves the charset set open-ended, folded
// into the filter's attributes rather than the grammar).
type StringFilter struct{}

func (StringFilter) Name() string { return "string" }

func (StringFilter) Apply(in []byte, attrs map[string]schema.AttrValue) (value.Value, int64, error) {
	charset := "utf-8"
	if a, ok := attrs["charset"]; ok {
		if a.Kind != schema.AttrString {
			return value.Value{}, 0, errf("@charset must be a string")
		}
		charset = a.Str
	}

	enc, err := encodingFor(charset)
	if err != nil {
		return value.Value{}, 0, err
	}
	if enc == nil {
		return value.OfString(string(in)), int64(len(in)), nil
	}
	out, err := enc.NewDecoder().Bytes(in)
	if err != nil {
		return value.Value{}, 0, errf("string filter: decoding %s: %w", charset, err)
	}
	return value.OfString(string(out)), int64(len(in)), nil
}

// encodingFor returns the x/text encoding for a named charset, or nil for
// utf-8 (handled as a direct conversion, with no transcoding cost).
func encodingFor(charset string) (encoding.Encoding, error) {
	switch charset {
	case "utf-8", "":
		return nil, nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252":
		return charmap.Windows1252, nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	default:
		return nil, errf("string filter: unknown @charset %q", charset)
	}
}
