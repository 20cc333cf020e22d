// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package identity

import "fmt"

// Key builders for the namespace table in spec §3. Centralizing them here
// keeps every component (C1 readers/writers) agreeing on layout; nothing
// outside this file should format a "track:"/"album:"/"artwork:"/"file:"
// key by hand.

func TrackOverlayKey(album ID, disc, index int) string {
	return fmt.Sprintf("track:%s:%d:%d:overlay", album, disc, index)
}

func TrackCoverKey(album ID, disc, index int) string {
	return fmt.Sprintf("track:%s:%d:%d:cover", album, disc, index)
}

func AlbumCoverKey(album ID) string {
	return fmt.Sprintf("album:%s:cover", album)
}

func AlbumCueKey(album ID) string {
	return fmt.Sprintf("album:%s:cue", album)
}

func ArtworkKey(contentHashHex string) string {
	return fmt.Sprintf("artwork:%s", contentHashHex)
}

func FileStatKey(pathHashHex string) string {
	return fmt.Sprintf("file:%s:stat", pathHashHex)
}

const ScanLastRunKey = "scan:last_run"

func PolicyKey(profile string) string {
	return fmt.Sprintf("policy:%s", profile)
}
