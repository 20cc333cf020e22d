// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package router

import "strings"

// SanitizeName turns a raw tag value into a safe virtual path component
// (spec §4.10): characters outside [A-Za-z0-9 _.()-] and printable CJK
// are replaced with '_'; leading/trailing spaces and dots are trimmed;
// an empty result falls back to "Unknown".
func SanitizeName(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if isAllowedASCII(r) || isPrintableCJK(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), " .")
	if name == "" {
		return "Unknown"
	}
	return name
}

func isAllowedASCII(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == ' ' || r == '_' || r == '.' || r == '(' || r == ')' || r == '-':
		return true
	default:
		return false
	}
}

// isPrintableCJK covers the common CJK Unified Ideographs block plus
// Hiragana/Katakana and Hangul syllables, enough to preserve East Asian album/track titles
// without smuggling in unrelated Unicode control or symbol ranges.
func isPrintableCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0x3040 && r <= 0x309F: // Hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // Katakana
		return true
	case r >= 0xAC00 && r <= 0xD7A3: // Hangul syllables
		return true
	default:
		return false
	}
}
