// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package tags

import (
	"os"
	"strconv"

	"github.com/dhowden/tag"
)

// ReadSource opens path and extracts a TagMap normalized to canonical
// ASCII keys (spec §4.6 "Tag reader responsibility"). An unsupported
// container returns an empty TagMap, not an error; write-back to the
// source file never happens here or anywhere in this package.
func ReadSource(path string) (TagMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// tag.ErrNoTagsFound and any format-specific parse failure both
		// mean "nothing usable here", not a hard error.
		return TagMap{}, nil
	}

	out := TagMap{}
	putSingle(out, "TITLE", m.Title())
	putSingle(out, "ARTIST", m.Artist())
	putSingle(out, "ALBUM", m.Album())
	putSingle(out, "ALBUMARTIST", m.AlbumArtist())
	putSingle(out, "COMPOSER", m.Composer())
	putSingle(out, "GENRE", m.Genre())
	if year := m.Year(); year != 0 {
		putSingle(out, "DATE", strconv.Itoa(year))
	}
	if track, _ := m.Track(); track != 0 {
		putSingle(out, "TRACKNUMBER", strconv.Itoa(track))
	}
	if disc, _ := m.Disc(); disc != 0 {
		putSingle(out, "DISCNUMBER", strconv.Itoa(disc))
	}

	for k, v := range m.Raw() {
		if s, ok := v.(string); ok && s != "" {
			if _, known := out[canonicalRawKey(k)]; !known {
				putSingle(out, canonicalRawKey(k), s)
			}
		}
	}

	return out, nil
}

func putSingle(m TagMap, key, value string) {
	if value == "" {
		return
	}
	m[key] = []string{value}
}

// canonicalRawKey uppercases vendor-specific raw tag names so the
// merge rule in spec §3 always compares canonical keys, never mixed
// case from one container format vs. another.
func canonicalRawKey(k string) string {
	out := make([]byte, len(k))
	for i := 0; i < len(k); i++ {
		c := k[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
