// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeOverlayReplacesSourceKey(t *testing.T) {
	source := TagMap{"TITLE": {"Original"}, "ARTIST": {"Band"}}
	overlay := TagMap{"TITLE": {"Edited"}}

	merged := Merge(source, overlay)
	assert.Equal(t, []string{"Edited"}, merged["TITLE"])
	assert.Equal(t, []string{"Band"}, merged["ARTIST"])
}

func TestMergeTombstoneHidesSourceKey(t *testing.T) {
	source := TagMap{"GENRE": {"Rock"}}
	overlay := TagMap{"GENRE": tombstone()}

	merged := Merge(source, overlay)
	_, present := merged["GENRE"]
	assert.False(t, present)
}

func TestMergeAbsentOverlayKeyFallsThrough(t *testing.T) {
	source := TagMap{"ALBUM": {"Greatest Hits"}}
	merged := Merge(source, TagMap{})
	assert.Equal(t, []string{"Greatest Hits"}, merged["ALBUM"])
}

func TestCloneIsIndependent(t *testing.T) {
	original := TagMap{"TITLE": {"A"}}
	clone := original.Clone()
	clone["TITLE"][0] = "B"
	assert.Equal(t, "A", original["TITLE"][0])
}
